package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewdesk/crewdesk/internal/provider"
)

// Task routes. Chosen once per top-level request; a request that cannot be
// classified falls back to RouteGeneral so the system always makes progress.
const (
	RouteGeneral  = "general"
	RouteDocument = "document"
	RouteRecord   = "record"
	RoutePolicy   = "policy"
)

var validRoutes = map[string]bool{
	RouteGeneral:  true,
	RouteDocument: true,
	RouteRecord:   true,
	RoutePolicy:   true,
}

const maxTopicWords = 6

type routeResult struct {
	Route    string
	Topic    string
	Fallback bool
}

// classifyRoute asks the model for a route and topic label. Classification
// is read-only; it never invokes tools. Any failure or out-of-set answer
// falls back to the general route.
func (o *Orchestrator) classifyRoute(ctx context.Context, query, documentName string) routeResult {
	user := query
	if documentName != "" {
		user = fmt.Sprintf("%s\n\n(The request references the document %q.)", query, documentName)
	}
	var out struct {
		Route string `json:"route"`
		Topic string `json:"topic"`
	}
	err := provider.StructuredJSON(ctx, o.provider, o.model, routingPrompt, user, &out)
	if err != nil {
		o.logger.Warn("route classification failed, using general", "error", err)
		return routeResult{Route: RouteGeneral, Topic: "unclassified request", Fallback: true}
	}
	route := strings.ToLower(strings.TrimSpace(out.Route))
	if !validRoutes[route] {
		o.logger.Warn("route classification out of set, using general", "route", route)
		return routeResult{Route: RouteGeneral, Topic: clampTopic(out.Topic), Fallback: true}
	}
	return routeResult{Route: route, Topic: clampTopic(out.Topic)}
}

// clampTopic bounds the topic label. The label is for display and audit
// only; nothing branches on it.
func clampTopic(topic string) string {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "unclassified request"
	}
	words := strings.Fields(topic)
	if len(words) > maxTopicWords {
		words = words[:maxTopicWords]
	}
	return strings.Join(words, " ")
}

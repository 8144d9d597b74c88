package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/sqlscan"
	"github.com/crewdesk/crewdesk/internal/tools"
)

// renderExplanation produces the plain-language description shown to the
// approver. It asks the model first; on any failure it falls back to a
// template built from the statement itself, because a pending write must
// never be presented without an explanation.
func (o *Orchestrator) renderExplanation(ctx context.Context, call provider.ToolCall) string {
	sql := tools.GetString(call.Arguments, "query", "")
	if sql != "" {
		req := &provider.ChatRequest{
			Messages: []provider.Message{
				{Role: "system", Content: explanationPrompt},
				{Role: "user", Content: sql},
			},
			Model:       o.model,
			MaxTokens:   300,
			Temperature: 0,
		}
		resp, err := o.provider.Chat(ctx, req)
		if err == nil && strings.TrimSpace(resp.Content) != "" {
			return strings.TrimSpace(resp.Content)
		}
		if err != nil {
			o.logger.Warn("explanation generation failed, using template", "error", err)
		}
		return templateExplanation(sql)
	}
	return fmt.Sprintf("The assistant wants to run the operation %q, which may change stored data.", call.Name)
}

func templateExplanation(sql string) string {
	op := sqlscan.Operation(sql)
	verbs := map[string]string{
		"insert":   "create a new",
		"update":   "change an existing",
		"delete":   "remove an existing",
		"upsert":   "create or change a",
		"merge":    "create or change a",
		"create":   "set up a new",
		"drop":     "permanently remove a",
		"alter":    "restructure a",
		"truncate": "clear all entries in a",
		"grant":    "extend access to a",
		"revoke":   "withdraw access to a",
	}
	verb, ok := verbs[op]
	if !ok {
		verb = "change a"
	}
	subject := "record"
	if t := sqlscan.Tables(sql); len(t) > 0 {
		subject = strings.ReplaceAll(t[0], "_", " ") + " record"
	}
	return fmt.Sprintf("This will %s %s. Do you approve?", verb, subject)
}

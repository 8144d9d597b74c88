package audit

import "github.com/crewdesk/crewdesk/internal/sqlscan"

// Scope is a request-scoped emitter: every event carries the request id,
// thread id and actor captured at the start of the request.
type Scope struct {
	emitter   *Emitter
	requestID string
	threadID  string
	actor     *Actor
}

func (s *Scope) emit(kind, level, component string, data map[string]any) {
	if s == nil || s.emitter == nil {
		return
	}
	s.emitter.Emit(Event{
		Event:     kind,
		Level:     level,
		RequestID: s.requestID,
		ThreadID:  s.threadID,
		Actor:     s.actor,
		Component: component,
		Data:      data,
	})
}

// RequestReceived records an inbound request. The query is stored verbatim
// (it is the first-class display field of the trail) plus its hash when
// hashing is enabled, matching the privacy contract for derived content.
func (s *Scope) RequestReceived(query, documentName string) {
	data := map[string]any{"query": query}
	if s != nil && s.emitter != nil && !s.emitter.StoreFullText() {
		data["query_hash"] = HashText(query)
	}
	if documentName != "" {
		data["document_name"] = documentName
	}
	s.emit(EventRequestReceived, "info", "router", map[string]any{"input": data})
}

// RouteChosen records the intent routing decision and topic label.
func (s *Scope) RouteChosen(route, topic string, fallback bool) {
	data := map[string]any{"route": route, "topic": topic}
	if fallback {
		data["fallback"] = true
	}
	s.emit(EventRouteChosen, "info", "router", data)
}

// ResourceAccessed records a document or policy read performed for context.
func (s *Scope) ResourceAccessed(kind, name, resourceID string, contentLen int) {
	s.emit(EventResourceAccessed, "info", "loop", map[string]any{
		"resource": map[string]any{
			"kind":        kind,
			"name":        name,
			"id":          resourceID,
			"content_len": contentLen,
		},
	})
}

// WriteProposed records a write operation entering the approval state.
func (s *Scope) WriteProposed(callID, tool, sql, explanation string) {
	data := map[string]any{
		"hitl": map[string]any{
			"tool_call_id":              callID,
			"tool":                      tool,
			"tables":                    sqlscan.Tables(sql),
			"operation":                 sqlscan.Operation(sql),
			"explanation_shown_to_user": explanation,
		},
	}
	if s != nil && s.emitter != nil {
		data["proposed_write"] = s.emitter.TextField("sql", sql)
	}
	s.emit(EventWriteProposed, "info", "gate", data)
}

// WriteDecision records the human decision on a pending write.
func (s *Scope) WriteDecision(callID string, approved bool, feedback string) {
	decision := "reject"
	if approved {
		decision = "approve"
	}
	s.emit(EventWriteDecision, "info", "approval", map[string]any{
		"hitl": map[string]any{
			"tool_call_id":  callID,
			"decision":      decision,
			"user_feedback": feedback,
		},
	})
}

// WriteExecuted records the terminal outcome of a proposed write.
// Status is "success", "error" or "blocked".
func (s *Scope) WriteExecuted(callID, sql, status, detail string) {
	level := "info"
	if status == "error" {
		level = "error"
	}
	db := map[string]any{
		"tool_call_id": callID,
		"tables":       sqlscan.Tables(sql),
		"operation":    sqlscan.Operation(sql),
		"executed":     status == "success",
	}
	result := map[string]any{"status": status}
	if detail != "" {
		if status == "error" {
			result["error"] = detail
		} else {
			result["reason"] = detail
		}
	}
	s.emit(EventWriteExecuted, level, "approval", map[string]any{
		"db":     db,
		"result": result,
	})
}

// SQLRead records a read statement executed through the tool registry.
func (s *Scope) SQLRead(tool, sql string, latencyMS int64) {
	db := map[string]any{
		"tool":   tool,
		"tables": sqlscan.Tables(sql),
	}
	if s != nil && s.emitter != nil {
		for k, v := range s.emitter.TextField("sql", sql) {
			db[k] = v
		}
	}
	s.emit(EventSQLRead, "info", "loop", map[string]any{
		"db":     db,
		"result": map[string]any{"status": "success", "latency_ms": latencyMS},
	})
}

// ToolError records a failed tool execution.
func (s *Scope) ToolError(tool, callID, errText string) {
	s.emit(EventToolError, "error", "loop", map[string]any{
		"tool": map[string]any{
			"name":         tool,
			"tool_call_id": callID,
			"error":        errText,
		},
	})
}

// ResponseSent records the final answer leaving the orchestrator.
func (s *Scope) ResponseSent(status string, responseLen int, iterations int) {
	s.emit(EventResponseSent, "info", "loop", map[string]any{
		"output": map[string]any{
			"status":       status,
			"response_len": responseLen,
			"iterations":   iterations,
		},
	})
}

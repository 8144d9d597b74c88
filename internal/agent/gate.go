package agent

import (
	"encoding/json"
	"strings"

	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/thread"
)

// repeatedAfterRejection reports whether the proposed invocation is a retry
// of a write the user already rejected in the current turn. Without this
// check the model can bounce the same statement between rejection and a new
// approval prompt forever. Only rejections after the most recent user
// message count; a fresh user request legitimately re-opens the question.
func repeatedAfterRejection(t *thread.Thread, call provider.ToolCall) bool {
	rejected := map[string]bool{}
	for i := len(t.Messages) - 1; i >= 0; i-- {
		m := t.Messages[i]
		if m.Role == "user" {
			break
		}
		if m.Role == "tool" && isRejectionResult(m.Content) {
			rejected[m.ToolCallID] = true
		}
	}
	if len(rejected) == 0 {
		return false
	}
	want := invocationKey(call.Name, call.Arguments)
	for i := len(t.Messages) - 1; i >= 0; i-- {
		m := t.Messages[i]
		if m.Role == "user" {
			break
		}
		if m.Role != "assistant" {
			continue
		}
		for _, tc := range m.ToolCalls {
			if rejected[tc.ID] && invocationKey(tc.Name, tc.Arguments) == want {
				return true
			}
		}
	}
	return false
}

func isRejectionResult(content string) bool {
	return strings.HasPrefix(content, rejectionResultText) ||
		strings.HasPrefix(content, repeatedResultText)
}

// invocationKey identifies an invocation by name and arguments. JSON
// marshaling of a map sorts keys, so equal argument sets compare equal.
func invocationKey(name string, args map[string]any) string {
	enc, err := json.Marshal(args)
	if err != nil {
		enc = []byte("{}")
	}
	return name + ":" + string(enc)
}

// Package thread provides durable per-actor conversation state.
//
// A thread is the unit of work for one ongoing conversation, keyed by a
// stable id tied to the requesting actor. The thread carries the message
// log and, while execution is suspended for a write approval, the pending
// write descriptor that lets an unrelated process resume it.
package thread

import (
	"fmt"
	"time"

	"github.com/crewdesk/crewdesk/internal/provider"
)

// Actor identifies the authenticated requester. Supplied fresh on each
// request and immutable for the life of that request.
type Actor struct {
	EmployeeID  string `json:"employee_id"`
	DisplayName string `json:"display_name"`
	JobTitle    string `json:"job_title"`
	Role        string `json:"role"`
}

// PendingWrite describes the suspended tool call awaiting human approval.
// Present exactly while the thread is suspended; nil otherwise.
type PendingWrite struct {
	CallID      string         `json:"call_id"`
	ToolName    string         `json:"tool_name"`
	Args        map[string]any `json:"args"`
	Explanation string         `json:"explanation"`
	ProposedAt  time.Time      `json:"proposed_at"`
}

// Thread is the conversation state for one actor.
type Thread struct {
	ID        string             `json:"id"`
	Messages  []provider.Message `json:"messages"`
	Actor     Actor              `json:"actor"`
	Route     string             `json:"route"`
	Pending   *PendingWrite      `json:"pending,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// New creates an empty thread.
func New(id string) *Thread {
	now := time.Now()
	return &Thread{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds messages to the log. The log is append-only; callers never
// mutate or remove earlier entries.
func (t *Thread) Append(msgs ...provider.Message) {
	t.Messages = append(t.Messages, msgs...)
	t.UpdatedAt = time.Now()
}

// Suspended reports whether the thread is awaiting an approval decision.
func (t *Thread) Suspended() bool {
	return t.Pending != nil
}

// Suspend records the pending write. The caller persists the thread and
// returns the suspension payload in the same operation.
func (t *Thread) Suspend(p *PendingWrite) {
	p.ProposedAt = time.Now()
	t.Pending = p
	t.UpdatedAt = time.Now()
}

// ClearPending leaves the suspended state.
func (t *Thread) ClearPending() {
	t.Pending = nil
	t.UpdatedAt = time.Now()
}

// UnresolvedCalls returns the tool-call ids of assistant tool requests that
// have no matching tool result yet, in request order.
func (t *Thread) UnresolvedCalls() []string {
	resolved := map[string]bool{}
	for _, m := range t.Messages {
		if m.Role == "tool" && m.ToolCallID != "" {
			resolved[m.ToolCallID] = true
		}
	}
	var open []string
	for _, m := range t.Messages {
		if m.Role != "assistant" {
			continue
		}
		for _, tc := range m.ToolCalls {
			if !resolved[tc.ID] {
				open = append(open, tc.ID)
			}
		}
	}
	return open
}

// CheckCorrelation verifies the tool-call correlation invariant: every tool
// result matches exactly one prior unresolved request. Used by tests and by
// the store before persisting.
func (t *Thread) CheckCorrelation() error {
	requested := map[string]int{}
	resultCount := map[string]int{}
	for _, m := range t.Messages {
		switch m.Role {
		case "assistant":
			for _, tc := range m.ToolCalls {
				requested[tc.ID]++
			}
		case "tool":
			if m.ToolCallID == "" {
				return fmt.Errorf("tool result without call id")
			}
			if requested[m.ToolCallID] == 0 {
				return fmt.Errorf("tool result %s precedes any matching request", m.ToolCallID)
			}
			resultCount[m.ToolCallID]++
			if resultCount[m.ToolCallID] > 1 {
				return fmt.Errorf("tool call %s resolved more than once", m.ToolCallID)
			}
		}
	}
	for id, n := range requested {
		if n > 1 {
			return fmt.Errorf("tool call id %s requested %d times", id, n)
		}
	}
	return nil
}

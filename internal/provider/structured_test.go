package provider

import (
	"context"
	"testing"
)

// canned implements LLMProvider with a fixed response.
type canned struct {
	content string
	err     error
}

func (c *canned) Chat(_ context.Context, _ *ChatRequest) (*ChatResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &ChatResponse{Content: c.content}, nil
}

func (c *canned) DefaultModel() string { return "test-model" }

func TestStructuredJSON(t *testing.T) {
	type verdict struct {
		Approved bool   `json:"approved"`
		Reason   string `json:"reason"`
	}

	cases := []struct {
		name    string
		content string
		want    bool
		wantErr bool
	}{
		{"plain", `{"approved": true, "reason": "ok"}`, true, false},
		{"fenced", "```json\n{\"approved\": false}\n```", false, false},
		{"surrounded", `Sure! Here is the result: {"approved": true} Hope that helps.`, true, false},
		{"nested braces in string", `{"approved": true, "reason": "use {caution}"}`, true, false},
		{"no json", "I cannot help with that.", false, true},
		{"truncated", `{"approved": tr`, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var v verdict
			err := StructuredJSON(context.Background(), &canned{content: tc.content}, "", "sys", "user", &v)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Approved != tc.want {
				t.Errorf("approved = %v, want %v", v.Approved, tc.want)
			}
		})
	}
}

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredJSON asks the model for a single JSON object and unmarshals it
// into out. The system prompt must describe the expected schema. Code fences
// around the object are tolerated; anything else is an error the caller
// handles with its safe default.
func StructuredJSON(ctx context.Context, p LLMProvider, model, system, user string, out any) error {
	resp, err := p.Chat(ctx, &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Model:       model,
		MaxTokens:   1024,
		Temperature: 0,
		JSONOnly:    true,
	})
	if err != nil {
		return fmt.Errorf("classification call: %w", err)
	}

	raw := extractJSONObject(resp.Content)
	if raw == "" {
		return fmt.Errorf("no JSON object in response: %q", truncate(resp.Content, 200))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("parse classification %q: %w", truncate(raw, 200), err)
	}
	return nil
}

// extractJSONObject pulls the first top-level {...} from a response,
// stripping markdown fences if present.
func extractJSONObject(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

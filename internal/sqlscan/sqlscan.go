// Package sqlscan classifies SQL statements as reads or writes and extracts
// best-effort metadata for audit records.
//
// The classification is a lexical heuristic, not a parser: a fixed list of
// mutating verbs at the start of the normalized statement marks it a write.
// A write disguised as a read-shaped statement can slip through; that risk is
// documented and accepted. Statements that cannot be confidently classified
// are treated as writes so they are never executed unapproved.
package sqlscan

import (
	"regexp"
	"sort"
	"strings"
)

// writePrefixes are the statement verbs that mark a mutation.
var writePrefixes = []string{
	"insert", "update", "delete", "upsert", "merge",
	"alter", "drop", "create", "truncate", "grant", "revoke",
}

// IsWrite reports whether the statement mutates durable state.
// A leading read-only CTE prefix (WITH ... SELECT) is allowed as a read.
// Empty or unrecognizable statements classify as writes (fail closed).
func IsWrite(sql string) bool {
	s := strings.ToLower(strings.TrimSpace(stripComments(sql)))
	if s == "" {
		return true
	}
	if strings.HasPrefix(s, "with") {
		// WITH ... SELECT is a common read shape, but the CTE prefix can
		// also feed INSERT/UPDATE/DELETE. Skip past the CTE bodies and
		// classify whatever statement they feed.
		rest := skipCTEPrefix(s)
		if rest == "" {
			return true
		}
		s = rest
	}
	for _, p := range writePrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	if strings.HasPrefix(s, "select") || strings.HasPrefix(s, "explain") || strings.HasPrefix(s, "pragma") || strings.HasPrefix(s, "show") {
		return false
	}
	// Unknown verb: conservatively a write.
	return true
}

// Operation returns the mutating verb of a statement ("insert", "update", ...)
// or "unknown" when none of the known verbs lead the statement.
func Operation(sql string) string {
	s := strings.ToLower(strings.TrimSpace(stripComments(sql)))
	for _, p := range writePrefixes {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	return "unknown"
}

var tablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFROM\s+(?:(\w+)\.)?(\w+)`),
	regexp.MustCompile(`(?i)\bINSERT\s+INTO\s+(?:(\w+)\.)?(\w+)`),
	regexp.MustCompile(`(?i)\bUPDATE\s+(?:(\w+)\.)?(\w+)`),
	regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+(?:(\w+)\.)?(\w+)`),
	regexp.MustCompile(`(?i)\b(?:INNER|LEFT|RIGHT|FULL|CROSS)?\s*JOIN\s+(?:(\w+)\.)?(\w+)`),
}

// Tables extracts the table names referenced by a statement. Best effort:
// the result may be empty or incomplete and is used only for audit records.
func Tables(sql string) []string {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	normalized := normalizeSpace(stripComments(sql))

	seen := map[string]bool{}
	for _, re := range tablePatterns {
		for _, m := range re.FindAllStringSubmatch(normalized, -1) {
			table := strings.ToLower(m[2])
			if table != "" {
				seen[table] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// skipCTEPrefix returns the statement that a WITH clause feeds, or "" when
// the clause never closes. Parenthesis counting only; good enough for the
// audit-gating heuristic.
func skipCTEPrefix(s string) string {
	depth := 0
	sawBody := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
			sawBody = true
		case ')':
			depth--
			if depth == 0 && sawBody {
				rest := strings.TrimSpace(s[i+1:])
				// Another CTE follows after a comma; keep skipping.
				if strings.HasPrefix(rest, ",") {
					next := strings.TrimSpace(rest[1:])
					idx := strings.Index(next, "(")
					if idx < 0 {
						return ""
					}
					tail := skipCTEPrefix(next[idx:])
					return tail
				}
				return rest
			}
		}
	}
	return ""
}

var (
	lineCommentRe  = regexp.MustCompile(`(?m)--.*?$`)
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

func stripComments(sql string) string {
	sql = lineCommentRe.ReplaceAllString(sql, "")
	return blockCommentRe.ReplaceAllString(sql, "")
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

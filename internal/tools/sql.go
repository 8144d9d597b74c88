package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/crewdesk/crewdesk/internal/sqlscan"
)

const maxResultRows = 200

// ExecuteSQLTool runs SQL against the HR database. Its effect depends on the
// statement, so the registry classifies it per invocation: read statements
// execute directly, write statements go through the approval gate. The
// classification is the lexical heuristic in sqlscan, documented there.
type ExecuteSQLTool struct {
	db *sql.DB
}

// NewExecuteSQLTool creates the SQL tool over an opened store.
func NewExecuteSQLTool(db *sql.DB) *ExecuteSQLTool {
	return &ExecuteSQLTool{db: db}
}

func (t *ExecuteSQLTool) Name() string { return "execute_sql" }

func (t *ExecuteSQLTool) Description() string {
	return "Execute a SQL statement against the HR database. Use SELECT to look up " +
		"employees, leave requests, documents and policies. INSERT/UPDATE/DELETE " +
		"statements create or change records and require human approval before they run."
}

func (t *ExecuteSQLTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The SQL statement to execute.",
			},
		},
		"required": []string{"query"},
	}
}

// Kind is the fallback classification when no statement is available:
// conservative, so a malformed call can never execute ungated.
func (t *ExecuteSQLTool) Kind() Kind { return KindWrite }

// ClassifyInvocation classifies the proposed statement.
func (t *ExecuteSQLTool) ClassifyInvocation(params map[string]any) Kind {
	query := GetString(params, "query", "")
	if sqlscan.IsWrite(query) {
		return KindWrite
	}
	return KindRead
}

func (t *ExecuteSQLTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	query := strings.TrimSpace(GetString(params, "query", ""))
	if query == "" {
		return "", fmt.Errorf("query parameter is required")
	}

	if sqlscan.IsWrite(query) {
		res, err := t.db.ExecContext(ctx, query)
		if err != nil {
			return "", fmt.Errorf("execute statement: %w", err)
		}
		affected, _ := res.RowsAffected()
		return fmt.Sprintf("OK, %d row(s) affected", affected), nil
	}

	rows, err := t.db.QueryContext(ctx, query)
	if err != nil {
		return "", fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()
	return formatRows(rows)
}

// formatRows renders a result set as one "col=val | col=val" line per row,
// the same shape document rows use, so the model sees a uniform format.
func formatRows(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", fmt.Errorf("read columns: %w", err)
	}

	var b strings.Builder
	count := 0
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", fmt.Errorf("scan row: %w", err)
		}

		count++
		if count > maxResultRows {
			fmt.Fprintf(&b, "... truncated at %d rows\n", maxResultRows)
			break
		}
		parts := make([]string, len(cols))
		for i, col := range cols {
			parts[i] = fmt.Sprintf("%s=%s", col, renderValue(values[i]))
		}
		fmt.Fprintf(&b, "Row %d: %s\n", count, strings.Join(parts, " | "))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rows: %w", err)
	}
	if count == 0 {
		return "No rows returned.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func renderValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// ListTablesTool lists the tables of the HR database.
type ListTablesTool struct {
	db *sql.DB
}

// NewListTablesTool creates the table-listing tool.
func NewListTablesTool(db *sql.DB) *ListTablesTool {
	return &ListTablesTool{db: db}
}

func (t *ListTablesTool) Name() string { return "list_tables" }

func (t *ListTablesTool) Description() string {
	return "List the tables available in the HR database."
}

func (t *ListTablesTool) Parameters() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t *ListTablesTool) Kind() Kind { return KindRead }

func (t *ListTablesTool) Execute(ctx context.Context, _ map[string]any) (string, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return strings.Join(names, "\n"), nil
}

// DescribeTableTool returns the column layout of one table.
type DescribeTableTool struct {
	db *sql.DB
}

// NewDescribeTableTool creates the table-describing tool.
func NewDescribeTableTool(db *sql.DB) *DescribeTableTool {
	return &DescribeTableTool{db: db}
}

func (t *DescribeTableTool) Name() string { return "describe_table" }

func (t *DescribeTableTool) Description() string {
	return "Describe the columns of a table in the HR database."
}

func (t *DescribeTableTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"table": map[string]any{
				"type":        "string",
				"description": "Name of the table to describe.",
			},
		},
		"required": []string{"table"},
	}
}

func (t *DescribeTableTool) Kind() Kind { return KindRead }

func (t *DescribeTableTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	table := strings.TrimSpace(GetString(params, "table", ""))
	if table == "" {
		return "", fmt.Errorf("table parameter is required")
	}
	if !isIdent(table) {
		return "", fmt.Errorf("invalid table name: %q", table)
	}

	rows, err := t.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return "", fmt.Errorf("describe table: %w", err)
	}
	defer rows.Close()
	return formatRows(rows)
}

func isIdent(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return s != ""
}

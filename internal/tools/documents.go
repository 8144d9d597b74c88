package tools

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/crewdesk/crewdesk/internal/docs"
)

// ListDocumentsTool lists the documents stored for one employee.
type ListDocumentsTool struct {
	db *sql.DB
}

// NewListDocumentsTool creates the document-listing tool.
func NewListDocumentsTool(db *sql.DB) *ListDocumentsTool {
	return &ListDocumentsTool{db: db}
}

func (t *ListDocumentsTool) Name() string { return "list_documents" }

func (t *ListDocumentsTool) Description() string {
	return "List the documents stored for an employee, with their ids and names."
}

func (t *ListDocumentsTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"employee_id": map[string]any{
				"type":        "string",
				"description": "Employee id whose documents to list.",
			},
		},
		"required": []string{"employee_id"},
	}
}

func (t *ListDocumentsTool) Kind() Kind { return KindRead }

func (t *ListDocumentsTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	employeeID := strings.TrimSpace(GetString(params, "employee_id", ""))
	if employeeID == "" {
		return "", fmt.Errorf("employee_id parameter is required")
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM documents WHERE employee_id = ? ORDER BY created_at`, employeeID)
	if err != nil {
		return "", fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	count := 0
	for rows.Next() {
		var id, name, createdAt string
		if err := rows.Scan(&id, &name, &createdAt); err != nil {
			return "", fmt.Errorf("scan document: %w", err)
		}
		count++
		fmt.Fprintf(&b, "%s: %s (uploaded %s)\n", id, name, createdAt)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	if count == 0 {
		return "No documents stored for this employee.", nil
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// GetDocumentTool returns the full content of a document by id.
type GetDocumentTool struct {
	db *sql.DB
}

// NewGetDocumentTool creates the document-content tool.
func NewGetDocumentTool(db *sql.DB) *GetDocumentTool {
	return &GetDocumentTool{db: db}
}

func (t *GetDocumentTool) Name() string { return "get_document" }

func (t *GetDocumentTool) Description() string {
	return "Get the full content of a document by its id. Returns text content " +
		"plus structured data rows for tabular documents."
}

func (t *GetDocumentTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"document_id": map[string]any{
				"type":        "string",
				"description": "Id of the document to read.",
			},
		},
		"required": []string{"document_id"},
	}
}

func (t *GetDocumentTool) Kind() Kind { return KindRead }

func (t *GetDocumentTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	documentID := strings.TrimSpace(GetString(params, "document_id", ""))
	if documentID == "" {
		return "", fmt.Errorf("document_id parameter is required")
	}

	row := t.db.QueryRowContext(ctx,
		`SELECT content, content_structured FROM documents WHERE id = ?`, documentID)

	var content, structured string
	if err := row.Scan(&content, &structured); err != nil {
		if err == sql.ErrNoRows {
			return "Document not found or has no content.", nil
		}
		return "", fmt.Errorf("read document: %w", err)
	}

	if structured != "" {
		if formatted := docs.FormatStructured(structured); formatted != "" {
			if content != "" {
				content += "\n\n"
			}
			content += "Structured Data:\n" + formatted
		}
	}
	if content == "" {
		return "Document not found or has no content.", nil
	}
	return content, nil
}

// Package docs resolves document and policy context for the agent.
package docs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when no matching document exists.
var ErrNotFound = errors.New("document not found")

// Document is one retrievable piece of context.
type Document struct {
	ID      string
	Name    string
	Content string
}

// Resolver fetches supporting context for a request. The orchestrator only
// consumes its output; retrieval quality is the resolver's concern.
type Resolver interface {
	// Resolve returns a document by name for the given employee.
	Resolve(ctx context.Context, name, employeeID string) (*Document, error)
	// Policies returns all policy documents.
	Policies(ctx context.Context) ([]Document, error)
}

// StoreResolver resolves documents from the HR database.
type StoreResolver struct {
	db *sql.DB
}

// NewStoreResolver creates a resolver over an opened store.
func NewStoreResolver(db *sql.DB) *StoreResolver {
	return &StoreResolver{db: db}
}

// Resolve looks a document up by (case-insensitive) name for one employee
// and returns its text content plus formatted structured rows.
func (r *StoreResolver) Resolve(ctx context.Context, name, employeeID string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, content, content_structured
		 FROM documents
		 WHERE employee_id = ? AND LOWER(name) = LOWER(?)`,
		employeeID, name)

	var d Document
	var structured string
	if err := row.Scan(&d.ID, &d.Name, &d.Content, &structured); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q for employee %s", ErrNotFound, name, employeeID)
		}
		return nil, fmt.Errorf("resolve document: %w", err)
	}

	if structured != "" {
		if rows := FormatStructured(structured); rows != "" {
			if d.Content != "" {
				d.Content += "\n\n"
			}
			d.Content += "Structured Data:\n" + rows
		}
	}
	if d.Content == "" {
		d.Content = "Document found but has no content."
	}
	return &d, nil
}

// Policies returns all policy documents ordered by name.
func (r *StoreResolver) Policies(ctx context.Context) ([]Document, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, content FROM policies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Name, &d.Content); err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// FormatStructured converts structured document content (the tabular shape
// produced at upload time for spreadsheets) into readable rows:
//
//	Row 1: year=2024 | gross=72000
//	Row 2: year=2025 | gross=76000
//
// Returns "" when the payload is empty or not in the expected shape.
func FormatStructured(raw string) string {
	var payload struct {
		Columns     []string         `json:"columns"`
		PreviewRows []map[string]any `json:"preview_rows"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return ""
	}
	if len(payload.PreviewRows) == 0 {
		return ""
	}

	var b strings.Builder
	for i, row := range payload.PreviewRows {
		parts := make([]string, 0, len(payload.Columns))
		for _, col := range payload.Columns {
			val, ok := row[col]
			if !ok || val == nil {
				parts = append(parts, col+"=N/A")
				continue
			}
			parts = append(parts, fmt.Sprintf("%s=%v", col, val))
		}
		if len(parts) == 0 {
			for k, v := range row {
				if v != nil {
					parts = append(parts, fmt.Sprintf("%s=%v", k, v))
				}
			}
		}
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Row %d: %s", i+1, strings.Join(parts, " | "))
	}
	return b.String()
}

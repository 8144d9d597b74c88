// Package store opens and prepares the HR database behind the tool executor.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS employees (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	job_title  TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT 'employee'
);

CREATE TABLE IF NOT EXISTS leave_requests (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	employee_id TEXT NOT NULL REFERENCES employees(id),
	leave_type  TEXT NOT NULL DEFAULT 'vacation',
	start_date  TEXT NOT NULL,
	end_date    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS documents (
	id                 TEXT PRIMARY KEY,
	employee_id        TEXT NOT NULL DEFAULT '',
	name               TEXT NOT NULL,
	content            TEXT NOT NULL DEFAULT '',
	content_structured TEXT NOT NULL DEFAULT '',
	created_at         TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS policies (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL UNIQUE,
	content TEXT NOT NULL
);
`

// Open opens (creating if needed) the sqlite database at path and ensures
// the schema exists. Use ":memory:" for tests.
func Open(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// The driver is file-based; a single writer avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// Seed loads a small demo dataset so `crewdesk chat` works out of the box.
// Idempotent: existing rows are left alone.
func Seed(db *sql.DB) error {
	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT OR IGNORE INTO employees (id, name, job_title, role) VALUES (?, ?, ?, ?)`,
			[]any{"E-001", "Maria Lindqvist", "Software Engineer", "employee"}},
		{`INSERT OR IGNORE INTO employees (id, name, job_title, role) VALUES (?, ?, ?, ?)`,
			[]any{"E-002", "Jonas Weber", "HR Manager", "hr"}},
		{`INSERT OR IGNORE INTO leave_requests (employee_id, leave_type, start_date, end_date, status)
		  SELECT 'E-001', 'vacation', '2026-03-02', '2026-03-06', 'approved'
		  WHERE NOT EXISTS (SELECT 1 FROM leave_requests WHERE employee_id = 'E-001')`, nil},
		{`INSERT OR IGNORE INTO documents (id, employee_id, name, content, content_structured) VALUES (?, ?, ?, ?, ?)`,
			[]any{"3f2c9a1e-0000-4000-8000-000000000001", "E-001", "Employment Contract",
				"Standard employment contract. 25 vacation days per calendar year. Notice period three months.", ""}},
		{`INSERT OR IGNORE INTO documents (id, employee_id, name, content, content_structured) VALUES (?, ?, ?, ?, ?)`,
			[]any{"3f2c9a1e-0000-4000-8000-000000000002", "E-001", "Salary Overview",
				"",
				`{"columns":["year","gross","bonus"],"preview_rows":[{"year":"2024","gross":"72000","bonus":"4000"},{"year":"2025","gross":"76000","bonus":"5000"}]}`}},
		{`INSERT OR IGNORE INTO policies (name, content) VALUES (?, ?)`,
			[]any{"PTO Policy", "Employees accrue 2.08 vacation days per month. Unused days carry over up to 5 days into Q1."}},
		{`INSERT OR IGNORE INTO policies (name, content) VALUES (?, ?)`,
			[]any{"Remote Work Policy", "Up to three remote days per week with manager approval. Full-remote arrangements need HR sign-off."}},
	}

	for _, s := range stmts {
		if _, err := db.Exec(s.query, s.args...); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}

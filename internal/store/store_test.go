package store

import (
	"path/filepath"
	"testing"
)

func TestOpenCreatesSchema(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"employees", "leave_requests", "documents", "policies"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestSeedIdempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if err := Seed(db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := Seed(db); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var employees, requests int
	if err := db.QueryRow(`SELECT COUNT(*) FROM employees`).Scan(&employees); err != nil {
		t.Fatal(err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM leave_requests`).Scan(&requests); err != nil {
		t.Fatal(err)
	}
	if employees != 2 {
		t.Errorf("employees = %d, want 2", employees)
	}
	if requests != 1 {
		t.Errorf("leave_requests = %d, want 1", requests)
	}
}

package sqlscan

import (
	"reflect"
	"testing"
)

func TestIsWrite(t *testing.T) {
	cases := []struct {
		sql   string
		write bool
	}{
		{"SELECT * FROM employees", false},
		{"  select balance from leave_requests where employee_id = 'E-001'", false},
		{"INSERT INTO leave_requests (employee_id) VALUES ('E-001')", true},
		{"update employees set job_title = 'Manager'", true},
		{"DELETE FROM leave_requests WHERE id = 3", true},
		{"UPSERT INTO t VALUES (1)", true},
		{"MERGE INTO t USING s ON t.id = s.id", true},
		{"CREATE TABLE t (id INTEGER)", true},
		{"ALTER TABLE t ADD COLUMN c TEXT", true},
		{"DROP TABLE t", true},
		{"TRUNCATE t", true},
		{"GRANT SELECT ON t TO role", true},
		{"WITH recent AS (SELECT * FROM leave_requests) SELECT * FROM recent", false},
		{"WITH ids AS (SELECT id FROM t) DELETE FROM t WHERE id IN (SELECT id FROM ids)", true},
		{"-- comment\nSELECT 1", false},
		{"/* leading */ INSERT INTO t VALUES (1)", true},
		{"EXPLAIN SELECT 1", false},
		{"PRAGMA table_info(employees)", false},
		// Fail closed on the unclassifiable.
		{"", true},
		{"VACUUM", true},
	}
	for _, tc := range cases {
		if got := IsWrite(tc.sql); got != tc.write {
			t.Errorf("IsWrite(%q) = %v, want %v", tc.sql, got, tc.write)
		}
	}
}

func TestOperation(t *testing.T) {
	cases := []struct {
		sql string
		op  string
	}{
		{"INSERT INTO t VALUES (1)", "insert"},
		{"update t set a = 1", "update"},
		{"DELETE FROM t", "delete"},
		{"DROP TABLE t", "drop"},
		{"SELECT 1", "unknown"},
	}
	for _, tc := range cases {
		if got := Operation(tc.sql); got != tc.op {
			t.Errorf("Operation(%q) = %q, want %q", tc.sql, got, tc.op)
		}
	}
}

func TestTables(t *testing.T) {
	cases := []struct {
		sql  string
		want []string
	}{
		{"SELECT * FROM employees", []string{"employees"}},
		{"SELECT * FROM a JOIN b ON a.id = b.id", []string{"a", "b"}},
		{"INSERT INTO leave_requests (x) VALUES (1)", []string{"leave_requests"}},
		{"UPDATE hr.employees SET a = 1", []string{"employees"}},
		{"DELETE FROM leave_requests -- FROM nothing", []string{"leave_requests"}},
		{"", nil},
	}
	for _, tc := range cases {
		got := Tables(tc.sql)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Tables(%q) = %v, want %v", tc.sql, got, tc.want)
		}
	}
}

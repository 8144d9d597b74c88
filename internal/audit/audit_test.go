package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// memSink captures emitted lines for assertions.
type memSink struct {
	mu    sync.Mutex
	lines [][]byte
}

func (m *memSink) Write(line []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(line))
	copy(cp, line)
	m.lines = append(m.lines, cp)
}

func (m *memSink) Close() error { return nil }

func (m *memSink) events(t *testing.T) []Event {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, len(m.lines))
	for _, line := range m.lines {
		var ev Event
		if err := json.Unmarshal(line, &ev); err != nil {
			t.Fatalf("bad audit line %q: %v", line, err)
		}
		out = append(out, ev)
	}
	return out
}

func TestEmitEnvelope(t *testing.T) {
	sink := &memSink{}
	e := NewEmitterWithSinks("test", false, sink)

	scope := e.Scope("req-1", "E-001", &Actor{EmployeeID: "E-001", DisplayName: "Ada", JobTitle: "Engineer", Role: "employee"})
	scope.RouteChosen("record", "leave request creation", false)

	evs := sink.events(t)
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	ev := evs[0]
	if ev.Event != EventRouteChosen {
		t.Errorf("event = %q", ev.Event)
	}
	if ev.Level != "info" || ev.Env != "test" || ev.Component != "router" {
		t.Errorf("envelope = %+v", ev)
	}
	if ev.RequestID != "req-1" || ev.ThreadID != "E-001" {
		t.Errorf("correlation ids = %q/%q", ev.RequestID, ev.ThreadID)
	}
	if ev.Actor == nil || ev.Actor.EmployeeID != "E-001" {
		t.Errorf("actor = %+v", ev.Actor)
	}
	if _, err := time.Parse(time.RFC3339Nano, ev.TS); err != nil {
		t.Errorf("timestamp %q not RFC3339: %v", ev.TS, err)
	}
}

func TestHashByDefault(t *testing.T) {
	sink := &memSink{}
	e := NewEmitterWithSinks("test", false, sink)
	scope := e.Scope("req-1", "E-001", nil)

	sql := "INSERT INTO leave_requests (employee_id) VALUES ('E-001')"
	scope.WriteProposed("call_1", "execute_sql", sql, "Creates a leave request.")

	raw := string(sink.lines[0])
	if strings.Contains(raw, "VALUES") {
		t.Fatalf("raw SQL leaked into audit record: %s", raw)
	}
	if !strings.Contains(raw, "sha256:") {
		t.Fatalf("expected sql hash in record: %s", raw)
	}

	evs := sink.events(t)
	hitl := evs[0].Data["hitl"].(map[string]any)
	if hitl["operation"] != "insert" {
		t.Errorf("operation = %v", hitl["operation"])
	}
	tables := hitl["tables"].([]any)
	if len(tables) != 1 || tables[0] != "leave_requests" {
		t.Errorf("tables = %v", tables)
	}
}

func TestFullTextWhenEnabled(t *testing.T) {
	sink := &memSink{}
	e := NewEmitterWithSinks("test", true, sink)
	scope := e.Scope("req-1", "E-001", nil)

	scope.WriteProposed("call_1", "execute_sql", "DELETE FROM leave_requests WHERE id = 3", "x")

	if !strings.Contains(string(sink.lines[0]), "DELETE FROM leave_requests") {
		t.Fatalf("expected verbatim SQL with store_full_text enabled")
	}
}

func TestFileSinkAppends(t *testing.T) {
	dir := t.TempDir()
	e, err := NewEmitter(Options{Dir: dir, Env: "test"})
	if err != nil {
		t.Fatalf("new emitter: %v", err)
	}
	defer e.Close()

	scope := e.Scope("req-1", "E-001", nil)
	scope.RequestReceived("what is my leave balance", "")
	scope.ResponseSent("ok", 42, 1)

	day := time.Now().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, day, "audit.jsonl"))
	if err != nil {
		t.Fatalf("read audit file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	for _, line := range lines {
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line %q: %v", line, err)
		}
	}
}

func TestConcurrentEmit(t *testing.T) {
	sink := &memSink{}
	e := NewEmitterWithSinks("test", false, sink)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scope := e.Scope("req", "thread", nil)
			scope.ToolError("execute_sql", "call", "boom")
		}()
	}
	wg.Wait()

	if got := len(sink.events(t)); got != 20 {
		t.Fatalf("expected 20 events, got %d", got)
	}
}

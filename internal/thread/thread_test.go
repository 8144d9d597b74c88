package thread

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/crewdesk/crewdesk/internal/provider"
)

func TestAppendAndSuspend(t *testing.T) {
	th := New("E-001")
	th.Append(provider.Message{Role: "user", Content: "hi"})
	if len(th.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(th.Messages))
	}
	if th.Suspended() {
		t.Fatal("fresh thread should not be suspended")
	}
	th.Suspend(&PendingWrite{CallID: "call_1", ToolName: "execute_sql"})
	if !th.Suspended() {
		t.Fatal("expected suspended after Suspend")
	}
	if th.Pending.ProposedAt.IsZero() {
		t.Fatal("Suspend should stamp ProposedAt")
	}
	th.ClearPending()
	if th.Suspended() {
		t.Fatal("expected not suspended after ClearPending")
	}
}

func TestUnresolvedCalls(t *testing.T) {
	th := New("t")
	th.Append(
		provider.Message{Role: "user", Content: "q"},
		provider.Message{Role: "assistant", ToolCalls: []provider.ToolCall{
			{ID: "call_a", Name: "execute_sql"},
			{ID: "call_b", Name: "list_tables"},
		}},
		provider.Message{Role: "tool", ToolCallID: "call_a", Content: "ok"},
	)
	open := th.UnresolvedCalls()
	if len(open) != 1 || open[0] != "call_b" {
		t.Fatalf("expected [call_b], got %v", open)
	}
}

func TestCheckCorrelation(t *testing.T) {
	th := New("t")
	th.Append(
		provider.Message{Role: "assistant", ToolCalls: []provider.ToolCall{{ID: "call_a"}}},
		provider.Message{Role: "tool", ToolCallID: "call_a", Content: "ok"},
	)
	if err := th.CheckCorrelation(); err != nil {
		t.Fatalf("valid log rejected: %v", err)
	}

	dup := New("t2")
	dup.Append(
		provider.Message{Role: "assistant", ToolCalls: []provider.ToolCall{{ID: "call_a"}}},
		provider.Message{Role: "tool", ToolCallID: "call_a", Content: "ok"},
		provider.Message{Role: "tool", ToolCallID: "call_a", Content: "again"},
	)
	if err := dup.CheckCorrelation(); err == nil {
		t.Fatal("double resolution should fail")
	}

	orphan := New("t3")
	orphan.Append(provider.Message{Role: "tool", ToolCallID: "call_x", Content: "?"})
	if err := orphan.CheckCorrelation(); err == nil {
		t.Fatal("result without request should fail")
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = s.Update("E-001", func(th *Thread) error {
		th.Actor = Actor{EmployeeID: "E-001", DisplayName: "Maria Lindqvist"}
		th.Append(provider.Message{Role: "user", Content: "how many vacation days do I have?"})
		th.Suspend(&PendingWrite{CallID: "call_9", ToolName: "execute_sql", Args: map[string]any{"query": "UPDATE x"}})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// New store instance reads from disk, not cache.
	s2, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	th, err := s2.Get("E-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if th == nil {
		t.Fatal("expected persisted thread")
	}
	if th.Actor.DisplayName != "Maria Lindqvist" {
		t.Fatalf("actor not persisted: %+v", th.Actor)
	}
	if !th.Suspended() || th.Pending.CallID != "call_9" {
		t.Fatalf("pending write not persisted: %+v", th.Pending)
	}
}

func TestStoreGetMissing(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	th, err := s.Get("nobody")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if th != nil {
		t.Fatalf("expected nil for unknown thread, got %+v", th)
	}
}

func TestStoreRejectsBrokenCorrelation(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = s.Update("t", func(th *Thread) error {
		th.Append(provider.Message{Role: "tool", ToolCallID: "ghost", Content: "x"})
		return nil
	})
	if err == nil {
		t.Fatal("expected correlation error")
	}

	// The broken in-memory state must not poison later turns.
	th, err := s.Get("t")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if th != nil {
		t.Fatalf("failed turn left state behind: %+v", th)
	}
	err = s.Update("t", func(th *Thread) error {
		if len(th.Messages) != 0 {
			t.Fatalf("next turn sees %d leftover messages", len(th.Messages))
		}
		th.Append(provider.Message{Role: "user", Content: "q"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update after failed turn: %v", err)
	}
}

func TestUpdateRollsBackOnPersistFailure(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = s.Update("E-001", func(th *Thread) error {
		th.Append(provider.Message{Role: "user", Content: "first"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	// Occupy the temp file path with a directory so the next persist fails
	// after fn has already mutated the thread.
	if err := os.Mkdir(filepath.Join(dir, "E-001.json.tmp"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	err = s.Update("E-001", func(th *Thread) error {
		th.Append(
			provider.Message{Role: "user", Content: "book my vacation"},
			provider.Message{Role: "assistant", ToolCalls: []provider.ToolCall{{ID: "call_ghost", Name: "execute_sql"}}},
		)
		th.Suspend(&PendingWrite{CallID: "call_ghost", ToolName: "execute_sql"})
		return nil
	})
	if err == nil {
		t.Fatal("expected persist failure")
	}

	// The caller never saw a suspension, so none may exist: the thread must
	// roll back to the last persisted state.
	th, err := s.Get("E-001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if th == nil {
		t.Fatal("persisted state lost")
	}
	if th.Suspended() {
		t.Fatalf("failed persist left pending write %q in memory", th.Pending.CallID)
	}
	if len(th.Messages) != 1 || th.Messages[0].Content != "first" {
		t.Fatalf("expected only the persisted turn, got %+v", th.Messages)
	}
}

func TestGetReturnsSnapshot(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	err = s.Update("t", func(th *Thread) error {
		th.Append(provider.Message{Role: "user", Content: "q"})
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	th, err := s.Get("t")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	th.Append(provider.Message{Role: "user", Content: "mutated copy"})
	th.Suspend(&PendingWrite{CallID: "call_x", ToolName: "execute_sql"})

	again, err := s.Get("t")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(again.Messages) != 1 || again.Suspended() {
		t.Fatalf("mutating a snapshot leaked into the store: %+v", again)
	}
}

func TestStoreConcurrentDistinctThreads(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("E-%03d", i)
			for j := 0; j < 5; j++ {
				_ = s.Update(id, func(th *Thread) error {
					th.Append(provider.Message{Role: "user", Content: "x"})
					return nil
				})
			}
		}(i)
	}
	wg.Wait()
	for i := 0; i < 10; i++ {
		th, err := s.Get(fmt.Sprintf("E-%03d", i))
		if err != nil || th == nil {
			t.Fatalf("thread %d: %v", i, err)
		}
		if len(th.Messages) != 5 {
			t.Fatalf("thread %d: expected 5 messages, got %d", i, len(th.Messages))
		}
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("../../etc/passwd"); got != "______etc_passwd" {
		t.Fatalf("sanitize path traversal: %q", got)
	}
	if got := sanitize("E-001"); got != "E-001" {
		t.Fatalf("sanitize clean id: %q", got)
	}
}

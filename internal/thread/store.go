package thread

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Store persists threads to disk, one JSON file per thread, and serializes
// all access per thread. Two requests for the same thread never interleave;
// requests for different threads run concurrently.
type Store struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	cache map[string]*Thread
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create thread dir: %w", err)
	}
	return &Store{
		dir:   dir,
		locks: map[string]*sync.Mutex{},
		cache: map[string]*Thread{},
	}, nil
}

func (s *Store) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

// Update runs fn with exclusive access to the thread, creating it if it does
// not exist yet, and persists the result when fn returns nil. Any failed
// turn evicts the cached copy, so the next access reloads the last persisted
// state: a mutation that was never written to disk (and never returned to a
// caller) cannot survive in memory.
func (s *Store) Update(id string, fn func(*Thread) error) (err error) {
	if id == "" {
		return fmt.Errorf("empty thread id")
	}
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	defer func() {
		if err != nil {
			s.mu.Lock()
			delete(s.cache, id)
			s.mu.Unlock()
		}
	}()

	t, err := s.load(id)
	if err != nil {
		return err
	}
	if err = fn(t); err != nil {
		return err
	}
	if err = t.CheckCorrelation(); err != nil {
		return fmt.Errorf("thread %s: %w", id, err)
	}
	return s.persist(t)
}

// Get returns a snapshot of the thread, or nil if it has never been
// written. The snapshot is a deep copy; mutating it does not affect the
// stored thread.
func (s *Store) Get(id string) (*Thread, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()
	if _, err := os.Stat(s.path(id)); os.IsNotExist(err) {
		s.mu.Lock()
		_, cached := s.cache[id]
		s.mu.Unlock()
		if !cached {
			return nil, nil
		}
	}
	t, err := s.load(id)
	if err != nil {
		return nil, err
	}
	return snapshot(t)
}

func snapshot(t *Thread) (*Thread, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("snapshot thread %s: %w", t.ID, err)
	}
	var cp Thread
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("snapshot thread %s: %w", t.ID, err)
	}
	return &cp, nil
}

func (s *Store) load(id string) (*Thread, error) {
	s.mu.Lock()
	if t, ok := s.cache[id]; ok {
		s.mu.Unlock()
		return t, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if os.IsNotExist(err) {
		t := New(id)
		s.mu.Lock()
		s.cache[id] = t
		s.mu.Unlock()
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read thread %s: %w", id, err)
	}
	var t Thread
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode thread %s: %w", id, err)
	}
	s.mu.Lock()
	s.cache[id] = &t
	s.mu.Unlock()
	return &t, nil
}

func (s *Store) persist(t *Thread) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("encode thread %s: %w", t.ID, err)
	}
	tmp := s.path(t.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write thread %s: %w", t.ID, err)
	}
	if err := os.Rename(tmp, s.path(t.ID)); err != nil {
		return fmt.Errorf("write thread %s: %w", t.ID, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, sanitize(id)+".json")
}

// sanitize keeps thread files inside the store directory regardless of what
// the caller passes as an id.
func sanitize(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

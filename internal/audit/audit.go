// Package audit provides the append-only structured audit trail.
//
// Every decision point in the orchestrator emits one JSON object per line to
// a dedicated audit log, separate from application logs. Emission is
// best-effort: a failure to write an audit record is logged locally and
// swallowed, never propagated to the calling operation.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event kinds emitted by the orchestrator core.
const (
	EventRequestReceived  = "request_received"
	EventRouteChosen      = "route_chosen"
	EventResourceAccessed = "resource_accessed"
	EventWriteProposed    = "write_proposed"
	EventWriteDecision    = "write_decision"
	EventWriteExecuted    = "write_executed"
	EventToolError        = "tool_error"
	EventResponseSent     = "response_sent"
	EventSQLRead          = "sql_read"
)

// Actor identifies the authenticated requester an event belongs to.
type Actor struct {
	EmployeeID  string `json:"employee_id"`
	DisplayName string `json:"display_name"`
	JobTitle    string `json:"job_title"`
	Role        string `json:"role"`
}

// Event is one immutable audit record. Written once, never mutated.
type Event struct {
	TS        string         `json:"ts"`
	Event     string         `json:"event"`
	Level     string         `json:"level"`
	Env       string         `json:"env"`
	RequestID string         `json:"request_id,omitempty"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Actor     *Actor         `json:"actor,omitempty"`
	Component string         `json:"component"`
	Data      map[string]any `json:"data"`
}

// Sink receives serialized audit events. Implementations must be safe for
// concurrent use and must not block the caller for long.
type Sink interface {
	Write(line []byte)
	Close() error
}

// Emitter writes audit events to one or more sinks.
type Emitter struct {
	env           string
	storeFullText bool
	sinks         []Sink
	now           func() time.Time
}

// Options configures an Emitter.
type Options struct {
	// Dir is the base directory for audit logs. Files land under
	// <dir>/<YYYY-MM-DD>/audit.jsonl.
	Dir string
	// Env is stamped into every event ("dev", "prod", ...).
	Env string
	// StoreFullText stores query/content fields verbatim instead of
	// hash+length. Off by default; enable only for debugging.
	StoreFullText bool
}

// NewEmitter creates an emitter with a file sink rooted at opts.Dir.
func NewEmitter(opts Options) (*Emitter, error) {
	fs, err := newFileSink(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	env := opts.Env
	if env == "" {
		env = "dev"
	}
	return &Emitter{
		env:           env,
		storeFullText: opts.StoreFullText,
		sinks:         []Sink{fs},
		now:           time.Now,
	}, nil
}

// NewEmitterWithSinks creates an emitter over explicit sinks. Used by tests
// and by callers that add a Kafka mirror.
func NewEmitterWithSinks(env string, storeFullText bool, sinks ...Sink) *Emitter {
	if env == "" {
		env = "dev"
	}
	return &Emitter{env: env, storeFullText: storeFullText, sinks: sinks, now: time.Now}
}

// AddSink attaches an additional sink. Not safe to call after Emit has been
// invoked from other goroutines; wire sinks during startup.
func (e *Emitter) AddSink(s Sink) {
	e.sinks = append(e.sinks, s)
}

// StoreFullText reports whether verbatim content storage is enabled.
func (e *Emitter) StoreFullText() bool { return e.storeFullText }

// Close flushes and closes all sinks.
func (e *Emitter) Close() error {
	var first error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Emit writes one event to every sink. It never returns an error: sink
// failures are logged and swallowed so audit problems cannot fail requests.
func (e *Emitter) Emit(ev Event) {
	if ev.TS == "" {
		ev.TS = e.now().UTC().Format(time.RFC3339Nano)
	}
	if ev.Level == "" {
		ev.Level = "info"
	}
	if ev.Component == "" {
		ev.Component = "audit"
	}
	ev.Env = e.env
	if ev.Data == nil {
		ev.Data = map[string]any{}
	}

	line, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Audit event marshal failed", "event", ev.Event, "error", err)
		return
	}
	for _, s := range e.sinks {
		s.Write(line)
	}
}

// Scope returns a request-scoped emitter that stamps correlation ids and the
// actor onto every event.
func (e *Emitter) Scope(requestID, threadID string, actor *Actor) *Scope {
	return &Scope{emitter: e, requestID: requestID, threadID: threadID, actor: actor}
}

// HashText returns the privacy-preserving form of a free-text field:
// "sha256:<hex>". Callers store it alongside the text length.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// TextField returns the audit representation of a free-text field for the
// given key: verbatim under <key> when full-text storage is enabled,
// otherwise <key>_hash plus <key>_len.
func (e *Emitter) TextField(key, text string) map[string]any {
	if e.storeFullText {
		return map[string]any{key: text}
	}
	return map[string]any{
		key + "_hash": HashText(text),
		key + "_len":  len(text),
	}
}

// fileSink appends JSONL lines to <dir>/<YYYY-MM-DD>/audit.jsonl, rolling to
// a new directory at the first write past midnight.
type fileSink struct {
	dir  string
	mu   sync.Mutex
	day  string
	file *os.File
}

func newFileSink(dir string) (*fileSink, error) {
	if dir == "" {
		dir = filepath.Join("logs", "audit")
	}
	s := &fileSink{dir: dir}
	if err := s.rotate(time.Now()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *fileSink) rotate(now time.Time) error {
	day := now.Format("2006-01-02")
	dayDir := filepath.Join(s.dir, day)
	if err := os.MkdirAll(dayDir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(dayDir, "audit.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if s.file != nil {
		s.file.Close()
	}
	s.day = day
	s.file = f
	return nil
}

func (s *fileSink) Write(line []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if now.Format("2006-01-02") != s.day {
		if err := s.rotate(now); err != nil {
			slog.Error("Audit log rotation failed", "error", err)
			return
		}
	}
	if _, err := s.file.Write(append(line, '\n')); err != nil {
		slog.Error("Audit log write failed", "error", err)
		return
	}
	// Flush per record so the trail survives a crash mid-request.
	_ = s.file.Sync()
}

func (s *fileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Package agent implements the conversational orchestrator: intent routing,
// the model tool-calling loop, the write gate, and the approval controller
// that suspends a thread before any data-changing operation and resumes it
// when a human decision arrives.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/crewdesk/crewdesk/internal/audit"
	"github.com/crewdesk/crewdesk/internal/docs"
	"github.com/crewdesk/crewdesk/internal/provider"
	"github.com/crewdesk/crewdesk/internal/thread"
	"github.com/crewdesk/crewdesk/internal/tools"
)

// ErrNoPendingApproval is returned by Resume when the thread has no
// suspended write, either because it never suspended or because an earlier
// resume already settled it.
var ErrNoPendingApproval = errors.New("no pending approval for thread")

// Notifier is told when a write enters the pending state so an approver can
// be pinged out of band. Delivery is best effort and never blocks the turn.
type Notifier interface {
	WritePending(ctx context.Context, threadID, actorName, explanation string)
}

// Options configures an Orchestrator.
type Options struct {
	Provider      provider.LLMProvider
	Registry      *tools.Registry
	Threads       *thread.Store
	Resolver      docs.Resolver
	Audit         *audit.Emitter
	Notifier      Notifier
	Model         string
	MaxTokens     int
	Temperature   float64
	MaxIterations int
	Logger        *slog.Logger
}

// Orchestrator drives conversations. One instance serves all threads;
// per-thread serialization comes from the thread store.
type Orchestrator struct {
	provider      provider.LLMProvider
	registry      *tools.Registry
	threads       *thread.Store
	resolver      docs.Resolver
	audit         *audit.Emitter
	notifier      Notifier
	model         string
	maxTokens     int
	temperature   float64
	maxIterations int
	logger        *slog.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	if opts.Model == "" {
		opts.Model = opts.Provider.DefaultModel()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		provider:      opts.Provider,
		registry:      opts.Registry,
		threads:       opts.Threads,
		resolver:      opts.Resolver,
		audit:         opts.Audit,
		notifier:      opts.Notifier,
		model:         opts.Model,
		maxTokens:     opts.MaxTokens,
		temperature:   opts.Temperature,
		maxIterations: opts.MaxIterations,
		logger:        opts.Logger,
	}
}

// Request is one top-level user turn.
type Request struct {
	ThreadID     string
	Actor        thread.Actor
	Query        string
	DocumentName string
}

// Result is the outcome of a turn: either a final answer or a suspension
// awaiting approval.
type Result struct {
	Pending     bool
	Explanation string
	Answer      string
	Route       string
}

// Decision is a resume payload. Approved, when set, is authoritative;
// otherwise Feedback is classified, failing closed to rejection.
type Decision struct {
	Approved *bool
	Feedback string
}

// Query handles a fresh user request on a thread. If the thread is still
// suspended from an earlier turn, the stale pending write is resolved as
// blocked before the new request runs; a fresh request supersedes an
// unanswered approval.
func (o *Orchestrator) Query(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}
	requestID := uuid.NewString()
	scope := o.scope(requestID, req.ThreadID, req.Actor)
	scope.RequestReceived(req.Query, req.DocumentName)

	var res *Result
	err := o.threads.Update(req.ThreadID, func(t *thread.Thread) error {
		t.Actor = req.Actor
		if t.Suspended() {
			o.supersedePending(t, scope)
		}

		route := o.classifyRoute(ctx, req.Query, req.DocumentName)
		scope.RouteChosen(route.Route, route.Topic, route.Fallback)
		t.Route = route.Route

		if msg, ok := o.gatherContext(ctx, route.Route, req, scope); ok {
			t.Append(msg)
		}
		t.Append(provider.Message{Role: "user", Content: req.Query})

		r, err := o.runLoop(ctx, t, scope)
		if err != nil {
			return err
		}
		r.Route = route.Route
		res = r
		return nil
	})
	if err != nil {
		scope.ResponseSent("error", 0, 0)
		return nil, err
	}
	return res, nil
}

// Resume applies an approval decision to a suspended thread and continues
// the loop until the next terminal state. A stale resume (no pending write)
// returns ErrNoPendingApproval rather than re-executing anything.
func (o *Orchestrator) Resume(ctx context.Context, threadID string, d Decision) (*Result, error) {
	requestID := uuid.NewString()

	var res *Result
	err := o.threads.Update(threadID, func(t *thread.Thread) error {
		if !t.Suspended() {
			return ErrNoPendingApproval
		}
		pending := t.Pending
		scope := o.scope(requestID, threadID, t.Actor)

		approved := o.decide(ctx, d)
		scope.WriteDecision(pending.CallID, approved, d.Feedback)

		var content string
		if approved {
			content = o.executePending(ctx, pending, scope)
		} else {
			content = rejectionResultText
			scope.WriteExecuted(pending.CallID, pendingSQL(pending), "blocked", "rejected by user")
		}
		t.ClearPending()
		t.Append(provider.Message{Role: "tool", Content: content, ToolCallID: pending.CallID})

		r, err := o.runLoop(ctx, t, scope)
		if err != nil {
			return err
		}
		r.Route = t.Route
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// decide turns a Decision into an approve/reject outcome. Free-text
// feedback goes through a secondary classification; any failure there is a
// rejection. Destructive actions fail closed.
func (o *Orchestrator) decide(ctx context.Context, d Decision) bool {
	if d.Approved != nil {
		return *d.Approved
	}
	if strings.TrimSpace(d.Feedback) == "" {
		return false
	}
	var out struct {
		Approved bool `json:"approved"`
	}
	err := provider.StructuredJSON(ctx, o.provider, o.model, feedbackPrompt, d.Feedback, &out)
	if err != nil {
		o.logger.Warn("feedback classification failed, rejecting", "error", err)
		return false
	}
	return out.Approved
}

// executePending runs the approved write with the argument set unchanged
// from what the approver saw. Executor failure becomes error content on the
// same call id so the loop can carry on.
func (o *Orchestrator) executePending(ctx context.Context, p *thread.PendingWrite, scope *audit.Scope) string {
	out, err := o.registry.Execute(ctx, p.ToolName, p.Args)
	if err != nil {
		scope.WriteExecuted(p.CallID, pendingSQL(p), "error", err.Error())
		return fmt.Sprintf("Error executing %s: %v", p.ToolName, err)
	}
	scope.WriteExecuted(p.CallID, pendingSQL(p), "success", "")
	return out
}

// supersedePending settles a dangling approval when a new request arrives
// on a suspended thread. The old call id gets a blocked result so the
// message log stays correlated; the write is never executed.
func (o *Orchestrator) supersedePending(t *thread.Thread, scope *audit.Scope) {
	p := t.Pending
	scope.WriteExecuted(p.CallID, pendingSQL(p), "blocked", "superseded by new request")
	t.ClearPending()
	t.Append(provider.Message{Role: "tool", Content: supersededResultText, ToolCallID: p.CallID})
}

// runLoop drives the model until it answers, proposes a write, or hits the
// iteration cap. Reads execute inline; the first write in a turn suspends.
func (o *Orchestrator) runLoop(ctx context.Context, t *thread.Thread, scope *audit.Scope) (*Result, error) {
	defs := o.toolDefinitions()
	for iter := 1; iter <= o.maxIterations; iter++ {
		resp, err := o.provider.Chat(ctx, &provider.ChatRequest{
			Messages:    o.promptMessages(t),
			Tools:       defs,
			Model:       o.model,
			MaxTokens:   o.maxTokens,
			Temperature: o.temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}

		if len(resp.ToolCalls) == 0 {
			t.Append(provider.Message{Role: "assistant", Content: resp.Content})
			scope.ResponseSent("ok", len(resp.Content), iter)
			return &Result{Answer: resp.Content}, nil
		}

		t.Append(provider.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for i, call := range resp.ToolCalls {
			kind := o.registry.KindFor(call.Name, call.Arguments)
			if kind == tools.KindWrite {
				if repeatedAfterRejection(t, call) {
					t.Append(provider.Message{Role: "tool", Content: repeatedResultText, ToolCallID: call.ID})
					continue
				}
				res := o.suspend(ctx, t, scope, call, resp.ToolCalls[i+1:])
				return res, nil
			}
			t.Append(provider.Message{
				Role:       "tool",
				Content:    o.executeRead(ctx, call, scope),
				ToolCallID: call.ID,
			})
		}
	}

	o.logger.Warn("iteration cap reached", "thread", t.ID, "max", o.maxIterations)
	t.Append(provider.Message{Role: "assistant", Content: maxIterationsAnswer})
	scope.ResponseSent("max_iterations", len(maxIterationsAnswer), o.maxIterations)
	return &Result{Answer: maxIterationsAnswer}, nil
}

// suspend moves the thread into the pending-approval state for the given
// write and resolves any sibling calls from the same model turn so no call
// id is left dangling across the boundary.
func (o *Orchestrator) suspend(ctx context.Context, t *thread.Thread, scope *audit.Scope, call provider.ToolCall, siblings []provider.ToolCall) *Result {
	explanation := o.renderExplanation(ctx, call)

	for _, sib := range siblings {
		t.Append(provider.Message{Role: "tool", Content: siblingResultText, ToolCallID: sib.ID})
	}

	t.Suspend(&thread.PendingWrite{
		CallID:      call.ID,
		ToolName:    call.Name,
		Args:        call.Arguments,
		Explanation: explanation,
	})
	scope.WriteProposed(call.ID, call.Name, tools.GetString(call.Arguments, "query", ""), explanation)

	if o.notifier != nil {
		o.notifier.WritePending(ctx, t.ID, t.Actor.DisplayName, explanation)
	}
	return &Result{Pending: true, Explanation: explanation}
}

// executeRead runs a read tool. Failures become result content, not turn
// failures, so the model can react to them.
func (o *Orchestrator) executeRead(ctx context.Context, call provider.ToolCall, scope *audit.Scope) string {
	start := time.Now()
	out, err := o.registry.Execute(ctx, call.Name, call.Arguments)
	if err != nil {
		scope.ToolError(call.Name, call.ID, err.Error())
		return fmt.Sprintf("Error executing %s: %v", call.Name, err)
	}
	if sql := tools.GetString(call.Arguments, "query", ""); sql != "" {
		scope.SQLRead(call.Name, sql, time.Since(start).Milliseconds())
	} else {
		scope.ResourceAccessed("tool", call.Name, call.ID, len(out))
	}
	return out
}

// gatherContext fetches route-specific context before the loop starts. The
// returned message is appended ahead of the user turn.
func (o *Orchestrator) gatherContext(ctx context.Context, route string, req Request, scope *audit.Scope) (provider.Message, bool) {
	switch {
	case route == RouteDocument && req.DocumentName != "":
		doc, err := o.resolver.Resolve(ctx, req.DocumentName, req.Actor.EmployeeID)
		if errors.Is(err, docs.ErrNotFound) {
			return provider.Message{
				Role:    "system",
				Content: fmt.Sprintf("No document named %q was found for this employee. Tell the user it could not be found.", req.DocumentName),
			}, true
		}
		if err != nil {
			o.logger.Warn("document lookup failed", "name", req.DocumentName, "error", err)
			return provider.Message{}, false
		}
		scope.ResourceAccessed("document", doc.Name, doc.ID, len(doc.Content))
		return provider.Message{
			Role:    "system",
			Content: fmt.Sprintf("Context from document %q:\n%s", doc.Name, doc.Content),
		}, true
	case route == RoutePolicy:
		policies, err := o.resolver.Policies(ctx)
		if err != nil || len(policies) == 0 {
			if err != nil {
				o.logger.Warn("policy lookup failed", "error", err)
			}
			return provider.Message{}, false
		}
		var b strings.Builder
		b.WriteString("Company policies:\n")
		for _, p := range policies {
			scope.ResourceAccessed("policy", p.Name, p.ID, len(p.Content))
			fmt.Fprintf(&b, "\n## %s\n%s\n", p.Name, p.Content)
		}
		return provider.Message{Role: "system", Content: b.String()}, true
	}
	return provider.Message{}, false
}

// promptMessages builds the model input: the route prompt with actor
// details, then the persisted log.
func (o *Orchestrator) promptMessages(t *thread.Thread) []provider.Message {
	system := fmt.Sprintf("%s\n\nRequesting employee: %s (id %s, %s, role %q).",
		systemPromptFor(t.Route), t.Actor.DisplayName, t.Actor.EmployeeID, t.Actor.JobTitle, t.Actor.Role)
	msgs := make([]provider.Message, 0, len(t.Messages)+1)
	msgs = append(msgs, provider.Message{Role: "system", Content: system})
	return append(msgs, t.Messages...)
}

func (o *Orchestrator) toolDefinitions() []provider.ToolDefinition {
	list := o.registry.List()
	defs := make([]provider.ToolDefinition, 0, len(list))
	for _, tl := range list {
		defs = append(defs, provider.ToolDefinition{
			Type: "function",
			Function: provider.FunctionDef{
				Name:        tl.Name(),
				Description: tl.Description(),
				Parameters:  tl.Parameters(),
			},
		})
	}
	return defs
}

func (o *Orchestrator) scope(requestID, threadID string, actor thread.Actor) *audit.Scope {
	return o.audit.Scope(requestID, threadID, &audit.Actor{
		EmployeeID:  actor.EmployeeID,
		DisplayName: actor.DisplayName,
		JobTitle:    actor.JobTitle,
		Role:        actor.Role,
	})
}

func pendingSQL(p *thread.PendingWrite) string {
	return tools.GetString(p.Args, "query", "")
}

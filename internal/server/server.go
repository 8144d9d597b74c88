// Package server exposes the orchestrator over HTTP: one endpoint to ask,
// one to resolve a pending approval.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/crewdesk/crewdesk/internal/agent"
	"github.com/crewdesk/crewdesk/internal/thread"
)

// Agent is the orchestrator surface the gateway needs.
type Agent interface {
	Query(ctx context.Context, req agent.Request) (*agent.Result, error)
	Resume(ctx context.Context, threadID string, d agent.Decision) (*agent.Result, error)
}

// Options configures the HTTP handler.
type Options struct {
	Agent        Agent
	AllowOrigins []string
	Logger       *slog.Logger
}

type server struct {
	agent  Agent
	logger *slog.Logger
}

// New builds the HTTP handler.
func New(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &server{agent: opts.Agent, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware(opts.AllowOrigins))

	r.Get("/healthz", s.handleHealth)
	r.Post("/query", s.handleQuery)
	r.Post("/resume", s.handleResume)
	return r
}

type queryRequest struct {
	EmployeeID   string `json:"employee_id"`
	DisplayName  string `json:"display_name"`
	JobTitle     string `json:"job_title"`
	Role         string `json:"role"`
	Query        string `json:"query"`
	DocumentName string `json:"document_name,omitempty"`
}

type resumeRequest struct {
	ThreadID string `json:"thread_id"`
	Resume   struct {
		Approved     *bool  `json:"approved,omitempty"`
		UserFeedback string `json:"user_feedback,omitempty"`
	} `json:"resume"`
}

type answerBody struct {
	Response string `json:"response"`
	Route    string `json:"route,omitempty"`
}

// pendingBody is the suspension payload advertised to the caller.
type pendingBody struct {
	Type        string `json:"type"`
	Explanation string `json:"explanation"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.EmployeeID) == "" || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "employee_id and query are required")
		return
	}
	res, err := s.agent.Query(r.Context(), agent.Request{
		ThreadID: req.EmployeeID,
		Actor: thread.Actor{
			EmployeeID:  req.EmployeeID,
			DisplayName: req.DisplayName,
			JobTitle:    req.JobTitle,
			Role:        req.Role,
		},
		Query:        req.Query,
		DocumentName: req.DocumentName,
	})
	if err != nil {
		s.logger.Error("query failed", "thread", req.EmployeeID, "error", err)
		writeError(w, http.StatusInternalServerError, "request could not be processed")
		return
	}
	s.writeResult(w, res)
}

func (s *server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req resumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ThreadID) == "" {
		writeError(w, http.StatusBadRequest, "thread_id is required")
		return
	}
	if req.Resume.Approved == nil && strings.TrimSpace(req.Resume.UserFeedback) == "" {
		writeError(w, http.StatusBadRequest, "resume requires approved or user_feedback")
		return
	}
	res, err := s.agent.Resume(r.Context(), req.ThreadID, agent.Decision{
		Approved: req.Resume.Approved,
		Feedback: req.Resume.UserFeedback,
	})
	if errors.Is(err, agent.ErrNoPendingApproval) {
		writeError(w, http.StatusConflict, "no pending approval for this thread")
		return
	}
	if err != nil {
		s.logger.Error("resume failed", "thread", req.ThreadID, "error", err)
		writeError(w, http.StatusInternalServerError, "resume could not be processed")
		return
	}
	s.writeResult(w, res)
}

func (s *server) writeResult(w http.ResponseWriter, res *agent.Result) {
	if res.Pending {
		writeJSON(w, http.StatusOK, pendingBody{
			Type:        "write_approval_pending",
			Explanation: res.Explanation,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"data": answerBody{Response: res.Answer, Route: res.Route},
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// corsMiddleware allows the configured frontend origins. Kept minimal; the
// approval UI is the only cross-origin consumer.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := map[string]bool{}
	for _, o := range origins {
		allowed[strings.TrimRight(o, "/")] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin != "" && allowed[strings.TrimRight(origin, "/")] {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

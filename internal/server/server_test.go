package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crewdesk/crewdesk/internal/agent"
)

type fakeAgent struct {
	queryRes  *agent.Result
	resumeRes *agent.Result
	resumeErr error
	lastReq   agent.Request
	lastDec   agent.Decision
	lastID    string
}

func (f *fakeAgent) Query(_ context.Context, req agent.Request) (*agent.Result, error) {
	f.lastReq = req
	return f.queryRes, nil
}

func (f *fakeAgent) Resume(_ context.Context, threadID string, d agent.Decision) (*agent.Result, error) {
	f.lastID = threadID
	f.lastDec = d
	if f.resumeErr != nil {
		return nil, f.resumeErr
	}
	return f.resumeRes, nil
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestQueryFinalAnswer(t *testing.T) {
	fa := &fakeAgent{queryRes: &agent.Result{Answer: "You have 20 days left.", Route: "general"}}
	h := New(Options{Agent: fa})

	rec := post(t, h, "/query", `{"employee_id":"E-001","display_name":"Maria","query":"what is my leave balance"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data struct {
			Response string `json:"response"`
			Route    string `json:"route"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Response != "You have 20 days left." || body.Data.Route != "general" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if fa.lastReq.ThreadID != "E-001" {
		t.Fatalf("thread id should come from employee id, got %q", fa.lastReq.ThreadID)
	}
}

func TestQueryPendingApproval(t *testing.T) {
	fa := &fakeAgent{queryRes: &agent.Result{Pending: true, Explanation: "This will create a vacation request."}}
	h := New(Options{Agent: fa})

	rec := post(t, h, "/query", `{"employee_id":"E-001","query":"book my vacation"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body pendingBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Type != "write_approval_pending" {
		t.Fatalf("wrong type: %q", body.Type)
	}
	if body.Explanation == "" {
		t.Fatal("explanation missing")
	}
}

func TestQueryValidation(t *testing.T) {
	h := New(Options{Agent: &fakeAgent{}})
	if rec := post(t, h, "/query", `{"query":"no actor"}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing employee_id: status %d", rec.Code)
	}
	if rec := post(t, h, "/query", `not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: status %d", rec.Code)
	}
}

func TestResumeApproved(t *testing.T) {
	fa := &fakeAgent{resumeRes: &agent.Result{Answer: "Submitted."}}
	h := New(Options{Agent: fa})

	rec := post(t, h, "/resume", `{"thread_id":"E-001","resume":{"approved":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if fa.lastID != "E-001" {
		t.Fatalf("thread id: %q", fa.lastID)
	}
	if fa.lastDec.Approved == nil || !*fa.lastDec.Approved {
		t.Fatalf("decision not passed through: %+v", fa.lastDec)
	}
}

func TestResumeFeedback(t *testing.T) {
	fa := &fakeAgent{resumeRes: &agent.Result{Answer: "Okay."}}
	h := New(Options{Agent: fa})

	rec := post(t, h, "/resume", `{"thread_id":"E-001","resume":{"user_feedback":"yes go ahead"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if fa.lastDec.Approved != nil {
		t.Fatal("feedback resume should leave Approved unset")
	}
	if fa.lastDec.Feedback != "yes go ahead" {
		t.Fatalf("feedback: %q", fa.lastDec.Feedback)
	}
}

func TestResumeStale(t *testing.T) {
	fa := &fakeAgent{resumeErr: agent.ErrNoPendingApproval}
	h := New(Options{Agent: fa})

	rec := post(t, h, "/resume", `{"thread_id":"E-001","resume":{"approved":true}}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("stale resume: status %d", rec.Code)
	}
}

func TestResumeValidation(t *testing.T) {
	h := New(Options{Agent: &fakeAgent{}})
	if rec := post(t, h, "/resume", `{"resume":{"approved":true}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing thread_id: status %d", rec.Code)
	}
	if rec := post(t, h, "/resume", `{"thread_id":"E-001","resume":{}}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty resume: status %d", rec.Code)
	}
}

func TestHealthAndCORS(t *testing.T) {
	h := New(Options{Agent: &fakeAgent{}, AllowOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: status %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: status %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow-origin: %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin for unknown origin: %q", got)
	}
}

// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
	"github.com/aetheris-rag/aetheris-tui/internal/storage"
)

// fakeAsk records requests and replies with a scripted response.
type fakeAsk struct {
	mu    sync.Mutex
	reqs  []AskRequest
	resp  *AnswerResponse
	err   error
	block chan struct{} // when set, Ask waits before returning
}

func (f *fakeAsk) Ask(ctx context.Context, req AskRequest) (*AnswerResponse, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeAsk) requests() []AskRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AskRequest(nil), f.reqs...)
}

type fakeSession struct{ loggedIn bool }

func (f *fakeSession) IsLoggedIn() bool { return f.loggedIn }

// memoNotifier records every notice by level.
type memoNotifier struct {
	mu       sync.Mutex
	success  []string
	info     []string
	warnings []string
	errors   []string
}

func (n *memoNotifier) Success(msg string) { n.mu.Lock(); n.success = append(n.success, msg); n.mu.Unlock() }
func (n *memoNotifier) Info(msg string)    { n.mu.Lock(); n.info = append(n.info, msg); n.mu.Unlock() }
func (n *memoNotifier) Warning(msg string) { n.mu.Lock(); n.warnings = append(n.warnings, msg); n.mu.Unlock() }
func (n *memoNotifier) Error(msg string)   { n.mu.Lock(); n.errors = append(n.errors, msg); n.mu.Unlock() }

type fakeRecorder struct {
	mu      sync.Mutex
	entries []string
	err     error
}

func (r *fakeRecorder) RecordQuery(ctx context.Context, question string, latencyMs int64, evidenceInsufficient bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, question)
	return r.err
}

func unlimited() *rate.Limiter { return rate.NewLimiter(rate.Inf, 1) }

func newTestController(svc *fakeAsk, session *fakeSession, notify *memoNotifier, backend storage.Backend, opts ...ControllerOption) *Controller {
	base := []ControllerOption{WithNotifier(notify), WithLimiter(unlimited())}
	return NewController(svc, session, backend, append(base, opts...)...)
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestAsk_RequiresLogin(t *testing.T) {
	svc := &fakeAsk{}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: false}, notify, storage.NewMemoryBackend())

	if c.Ask(context.Background(), AskRequest{Question: "hi"}) {
		t.Fatal("Ask succeeded while signed out")
	}
	if len(svc.requests()) != 0 {
		t.Error("request was issued while signed out")
	}
	if len(notify.errors) != 1 || notify.errors[0] != noticeSignInFirst {
		t.Errorf("errors = %v", notify.errors)
	}
}

func TestAsk_RejectsBlankQuestion(t *testing.T) {
	svc := &fakeAsk{}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend())

	if c.Ask(context.Background(), AskRequest{Question: "   \t  "}) {
		t.Fatal("Ask accepted a blank question")
	}
	if len(svc.requests()) != 0 {
		t.Error("request was issued for a blank question")
	}
	if len(notify.errors) != 1 || notify.errors[0] != noticeEmptyQuestion {
		t.Errorf("errors = %v", notify.errors)
	}
}

func TestAsk_RateLimited(t *testing.T) {
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend(),
		WithLimiter(rate.NewLimiter(rate.Limit(0.001), 1)))

	if !c.Ask(context.Background(), AskRequest{Question: "first"}) {
		t.Fatal("first Ask failed")
	}
	if c.Ask(context.Background(), AskRequest{Question: "second"}) {
		t.Fatal("second Ask was not paced")
	}
	if got := svc.requests(); len(got) != 1 {
		t.Errorf("requests = %d, want 1", len(got))
	}
	if len(notify.warnings) != 1 || notify.warnings[0] != noticeTooFast {
		t.Errorf("warnings = %v", notify.warnings)
	}
}

func TestAsk_RejectsWhileLoading(t *testing.T) {
	block := make(chan struct{})
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}, block: block}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend())

	done := make(chan bool, 1)
	go func() { done <- c.Ask(context.Background(), AskRequest{Question: "slow"}) }()

	// Wait for the first submission to enter flight.
	for len(svc.requests()) == 0 {
		time.Sleep(time.Millisecond)
	}
	if c.Ask(context.Background(), AskRequest{Question: "eager"}) {
		t.Error("second Ask accepted while the first was in flight")
	}
	close(block)
	if !<-done {
		t.Error("blocked Ask ultimately failed")
	}
	if got := svc.requests(); len(got) != 1 {
		t.Errorf("requests = %d, want 1", len(got))
	}
}

// =============================================================================
// SUBMISSION AND RESULTS
// =============================================================================

func TestAsk_SuccessPopulatesAndPersists(t *testing.T) {
	svc := &fakeAsk{resp: &AnswerResponse{
		Answer:    "forty-two",
		Citations: []Citation{{ResourceID: "r1", Location: PDFLocation{PageStart: 7, PageEnd: 7}}},
		LatencyMs: 310,
	}}
	notify := &memoNotifier{}
	backend := storage.NewMemoryBackend()
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, backend)

	if !c.Ask(context.Background(), AskRequest{Question: "  meaning of life  ", TopK: 5}) {
		t.Fatal("Ask failed")
	}

	state := c.Snapshot()
	if state.Answer != "forty-two" {
		t.Errorf("Answer = %q", state.Answer)
	}
	if len(state.Citations) != 1 {
		t.Errorf("Citations = %d", len(state.Citations))
	}
	if state.LatencyMs != 310 {
		t.Errorf("LatencyMs = %d", state.LatencyMs)
	}
	if state.LastRequest == nil || state.LastRequest.Question != "meaning of life" {
		t.Errorf("LastRequest = %+v", state.LastRequest)
	}
	if c.Loading() {
		t.Error("still loading after success")
	}
	if len(notify.success) != 1 || notify.success[0] != noticeAnswerReady {
		t.Errorf("success notices = %v", notify.success)
	}

	// The snapshot survives in the backend for a fresh controller.
	fresh := newTestController(&fakeAsk{}, &fakeSession{}, &memoNotifier{}, backend)
	fresh.RestoreState()
	restored := fresh.Snapshot()
	if restored.Answer != "forty-two" || restored.LastRequest == nil {
		t.Errorf("restored state = %+v", restored)
	}
	loc, ok := restored.Citations[0].Location.(PDFLocation)
	if !ok || loc.PageStart != 7 {
		t.Errorf("restored citation location = %#v", restored.Citations[0].Location)
	}
}

func TestAsk_FailureKeepsNothingStale(t *testing.T) {
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "old answer"}}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend())

	if !c.Ask(context.Background(), AskRequest{Question: "works"}) {
		t.Fatal("seed Ask failed")
	}

	svc.err = errors.New("backend down")
	if c.Ask(context.Background(), AskRequest{Question: "fails"}) {
		t.Fatal("failing Ask reported success")
	}

	state := c.Snapshot()
	if state.Answer != "" || len(state.Citations) != 0 {
		t.Errorf("stale result fields survived a new submission: %+v", state)
	}
	if state.LastRequest == nil || state.LastRequest.Question != "works" {
		t.Errorf("remembered request = %+v, want the last successful one", state.LastRequest)
	}
	if c.LastError() != genericQueryFailure {
		t.Errorf("LastError = %q", c.LastError())
	}
	if c.Loading() {
		t.Error("still loading after failure")
	}
}

func TestAsk_ServerMessagePreferred(t *testing.T) {
	svc := &fakeAsk{err: &api.APIError{Status: 503, Message: "知识库维护中", Path: "/chat/ask"}}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend())

	c.Ask(context.Background(), AskRequest{Question: "anything"})
	if len(notify.errors) != 1 || notify.errors[0] != "知识库维护中" {
		t.Errorf("errors = %v", notify.errors)
	}
}

func TestAsk_EvidenceAndFallbackNotices(t *testing.T) {
	notify := &memoNotifier{}
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a", EvidenceInsufficient: true}}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend())
	c.Ask(context.Background(), AskRequest{Question: "thin"})
	if len(notify.warnings) != 1 || notify.warnings[0] != noticeEvidenceThin {
		t.Errorf("warnings = %v", notify.warnings)
	}

	svc.resp = &AnswerResponse{FallbackResources: []ResourceBrief{{ID: "r1", Title: "Doc"}}}
	c.Ask(context.Background(), AskRequest{Question: "fallback"})
	if len(notify.info) != 1 || notify.info[0] != noticeFallbackResults {
		t.Errorf("info = %v", notify.info)
	}
}

func TestAsk_RecordsHistory(t *testing.T) {
	rec := &fakeRecorder{}
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}}
	c := newTestController(svc, &fakeSession{loggedIn: true}, &memoNotifier{}, storage.NewMemoryBackend(),
		WithHistory(rec))

	c.Ask(context.Background(), AskRequest{Question: "remember me"})
	if len(rec.entries) != 1 || rec.entries[0] != "remember me" {
		t.Errorf("history entries = %v", rec.entries)
	}
}

func TestAsk_HistoryFailureIsSilent(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend(),
		WithHistory(rec))
	c.logf = func(string, ...any) {}

	if !c.Ask(context.Background(), AskRequest{Question: "q"}) {
		t.Fatal("Ask failed because history recording failed")
	}
	if len(notify.errors) != 0 {
		t.Errorf("history failure surfaced to the user: %v", notify.errors)
	}
}

// =============================================================================
// RETRY
// =============================================================================

func TestRetry_NothingToRetry(t *testing.T) {
	svc := &fakeAsk{}
	notify := &memoNotifier{}
	c := newTestController(svc, &fakeSession{loggedIn: true}, notify, storage.NewMemoryBackend())

	if c.Retry(context.Background()) {
		t.Fatal("Retry succeeded with no prior request")
	}
	if len(svc.requests()) != 0 {
		t.Error("Retry issued a request")
	}
	if len(notify.warnings) != 1 || notify.warnings[0] != noticeNothingToRetry {
		t.Errorf("warnings = %v", notify.warnings)
	}
}

func TestRetry_ResubmitsVerbatim(t *testing.T) {
	useRAG := false
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "first"}}
	c := newTestController(svc, &fakeSession{loggedIn: true}, &memoNotifier{}, storage.NewMemoryBackend())

	if !c.Ask(context.Background(), AskRequest{Question: "stable question", TopK: 8, UseRAG: &useRAG}) {
		t.Fatal("seed Ask failed")
	}

	svc.resp = &AnswerResponse{Answer: "second"}
	if !c.Retry(context.Background()) {
		t.Fatal("Retry failed")
	}

	reqs := svc.requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[1].Question != "stable question" || reqs[1].TopK != 8 || reqs[1].UseRAG == nil || *reqs[1].UseRAG {
		t.Errorf("retried request = %+v, want the original verbatim", reqs[1])
	}
	if got := c.Snapshot().Answer; got != "second" {
		t.Errorf("Answer after retry = %q", got)
	}
}

func TestRetry_AfterFailureResubmitsLastSuccess(t *testing.T) {
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}}
	c := newTestController(svc, &fakeSession{loggedIn: true}, &memoNotifier{}, storage.NewMemoryBackend())

	c.Ask(context.Background(), AskRequest{Question: "good"})
	svc.err = errors.New("down")
	c.Ask(context.Background(), AskRequest{Question: "bad"})
	svc.err = nil

	if !c.Retry(context.Background()) {
		t.Fatal("Retry failed")
	}
	reqs := svc.requests()
	if reqs[len(reqs)-1].Question != "good" {
		t.Errorf("retried %q, want the last remembered request", reqs[len(reqs)-1].Question)
	}
}

// =============================================================================
// CLEARING
// =============================================================================

func TestClearAnswer_KeepsPersistedCopy(t *testing.T) {
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}}
	backend := storage.NewMemoryBackend()
	c := newTestController(svc, &fakeSession{loggedIn: true}, &memoNotifier{}, backend)

	c.Ask(context.Background(), AskRequest{Question: "q"})
	c.ClearAnswer()

	if got := c.Snapshot(); got.Answer != "" || got.LastRequest != nil {
		t.Errorf("in-memory state survived ClearAnswer: %+v", got)
	}
	if backend.Len() != 1 {
		t.Error("persisted snapshot was dropped by ClearAnswer")
	}
}

func TestClearAll_DropsPersistedCopy(t *testing.T) {
	svc := &fakeAsk{resp: &AnswerResponse{Answer: "a"}}
	backend := storage.NewMemoryBackend()
	c := newTestController(svc, &fakeSession{loggedIn: true}, &memoNotifier{}, backend)

	c.Ask(context.Background(), AskRequest{Question: "q"})
	c.ClearAll()

	if backend.Len() != 0 {
		t.Error("persisted snapshot survived ClearAll")
	}
}

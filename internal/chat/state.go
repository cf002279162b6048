// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the question-answering client and its
// reload-surviving interaction state.
package chat

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/aetheris-rag/aetheris-tui/internal/api"
	"github.com/aetheris-rag/aetheris-tui/internal/statestore"
	"github.com/aetheris-rag/aetheris-tui/internal/storage"
)

// User-facing notices.
const (
	noticeSignInFirst     = "please sign in first"
	noticeEmptyQuestion   = "please enter a question"
	noticeTooFast         = "easy there - wait a moment between questions"
	noticeNothingToRetry  = "no previous question to retry"
	noticeEvidenceThin    = "evidence was thin for this answer - treat it with care"
	noticeFallbackResults = "the answer service is unavailable - showing retrieval results instead"
	noticeAnswerReady     = "answer ready"
	genericQueryFailure   = "the question could not be answered, please try again later"
)

// AskService is the slice of the retrieval collaborator the controller
// needs. Satisfied by *Service.
type AskService interface {
	Ask(ctx context.Context, req AskRequest) (*AnswerResponse, error)
}

// SessionState is the session read the controller performs before each
// submission.
type SessionState interface {
	IsLoggedIn() bool
}

// Notifier surfaces user-visible notices. Views and CLI provide their
// own; the zero default logs.
type Notifier interface {
	Success(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
}

// HistoryRecorder records submitted questions. Optional.
type HistoryRecorder interface {
	RecordQuery(ctx context.Context, question string, latencyMs int64, evidenceInsufficient bool) error
}

// logNotifier is the default Notifier.
type logNotifier struct{}

func (logNotifier) Success(msg string) { log.Printf("chat: %s", msg) }
func (logNotifier) Info(msg string)    { log.Printf("chat: %s", msg) }
func (logNotifier) Warning(msg string) { log.Printf("chat: warning: %s", msg) }
func (logNotifier) Error(msg string)   { log.Printf("chat: error: %s", msg) }

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the latest query/answer cycle.
//
// All result fields change together: they are reset as one before a
// request is issued and populated as one when the response lands, so a
// reader never observes a new request's loading state alongside a stale
// answer. Safe for concurrent use.
type Controller struct {
	svc     AskService
	session SessionState
	store   *statestore.Store[QueryState]
	limiter *rate.Limiter
	notify  Notifier
	history HistoryRecorder
	logf    func(format string, args ...any)

	mu      sync.Mutex
	state   QueryState
	loading bool
	lastErr string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithNotifier routes notices to a custom sink.
func WithNotifier(n Notifier) ControllerOption {
	return func(c *Controller) { c.notify = n }
}

// WithHistory records each successful question.
func WithHistory(h HistoryRecorder) ControllerOption {
	return func(c *Controller) { c.history = h }
}

// WithLimiter overrides the submission pacing.
func WithLimiter(l *rate.Limiter) ControllerOption {
	return func(c *Controller) { c.limiter = l }
}

// WithStore overrides the snapshot store (custom TTL or size cap).
func WithStore(s *statestore.Store[QueryState]) ControllerOption {
	return func(c *Controller) { c.store = s }
}

// NewController creates the interaction-state controller. Snapshots are
// persisted under storage.KeyChatState on the given backend.
func NewController(svc AskService, session SessionState, backend storage.Backend, opts ...ControllerOption) *Controller {
	c := &Controller{
		svc:     svc,
		session: session,
		store:   statestore.New[QueryState](backend, storage.KeyChatState),
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 3),
		notify:  logNotifier{},
		logf:    log.Printf,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// SNAPSHOT ACCESS
// =============================================================================

// Snapshot returns a copy of the current query/answer cycle.
func (c *Controller) Snapshot() QueryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether a submission is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError returns the last submission failure notice, or "".
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Ask submits a question and reports success. Preconditions (signed in,
// non-blank question, pacing) fail fast with a notice and no state
// change. Otherwise every result field is reset before the request goes
// out and populated atomically when the response lands.
func (c *Controller) Ask(ctx context.Context, req AskRequest) bool {
	if !c.session.IsLoggedIn() {
		c.notify.Error(noticeSignInFirst)
		return false
	}
	req.Question = NormalizeQuestion(req.Question)
	if req.Question == "" {
		c.notify.Error(noticeEmptyQuestion)
		return false
	}
	if !c.limiter.Allow() {
		c.notify.Warning(noticeTooFast)
		return false
	}

	// Reset-before-request: all result fields go together, the
	// remembered request survives for retry until a new success.
	c.mu.Lock()
	if c.loading {
		c.mu.Unlock()
		c.notify.Warning(noticeTooFast)
		return false
	}
	last := c.state.LastRequest
	c.state = QueryState{LastRequest: last}
	c.loading = true
	c.lastErr = ""
	c.mu.Unlock()

	resp, err := c.svc.Ask(ctx, req)
	if err != nil {
		msg := api.ServerMessage(err)
		if msg == "" {
			msg = genericQueryFailure
		}
		c.mu.Lock()
		c.loading = false
		c.lastErr = msg
		c.mu.Unlock()
		c.notify.Error(msg)
		return false
	}

	c.mu.Lock()
	c.state = QueryState{
		Answer:               resp.Answer,
		Citations:            resp.Citations,
		EvidenceInsufficient: resp.EvidenceInsufficient,
		FallbackResources:    resp.FallbackResources,
		LatencyMs:            resp.LatencyMs,
		LastRequest:          &req,
	}
	c.loading = false
	snapshot := c.state
	c.mu.Unlock()

	c.store.Save(snapshot)
	c.recordHistory(ctx, req.Question, resp)

	switch {
	case resp.EvidenceInsufficient:
		c.notify.Warning(noticeEvidenceThin)
	case len(resp.FallbackResources) > 0:
		c.notify.Info(noticeFallbackResults)
	default:
		c.notify.Success(noticeAnswerReady)
	}
	return true
}

// Retry resubmits the remembered request verbatim. With nothing to
// retry it fails fast with a notice.
func (c *Controller) Retry(ctx context.Context) bool {
	c.mu.Lock()
	last := c.state.LastRequest
	c.mu.Unlock()

	if last == nil {
		c.notify.Warning(noticeNothingToRetry)
		return false
	}
	return c.Ask(ctx, *last)
}

// RestoreState loads the persisted snapshot, if any. Called once at
// startup before the first view renders.
func (c *Controller) RestoreState() {
	state, ok := c.store.Restore()
	if !ok {
		return
	}
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// ClearAnswer resets the in-memory cycle, keeping the persisted copy.
func (c *Controller) ClearAnswer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = QueryState{}
	c.lastErr = ""
}

// ClearAll resets the cycle and drops the persisted snapshot.
func (c *Controller) ClearAll() {
	c.ClearAnswer()
	c.store.Clear()
}

func (c *Controller) recordHistory(ctx context.Context, question string, resp *AnswerResponse) {
	if c.history == nil {
		return
	}
	if err := c.history.RecordQuery(ctx, question, resp.LatencyMs, resp.EvidenceInsufficient); err != nil {
		c.logf("chat: failed to record history: %v", err)
	}
}

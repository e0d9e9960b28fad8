package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/model"
	"github.com/gptbots-qa/agent-tester/relay/streaming"
)

// RunSnapshot is the externally visible state of a run.
type RunSnapshot struct {
	RunID           string                `json:"run_id"`
	AgentID         int                   `json:"agent_id"`
	AgentName       string                `json:"agent_name"`
	Mode            execmode.Mode         `json:"execution_mode"`
	Status          model.RunStatus       `json:"status"`
	TotalQuestions  int                   `json:"total_questions"`
	Completed       int                   `json:"completed"`
	PassedCount     int                   `json:"passed_count"`
	FailedCount     int                   `json:"failed_count"`
	CancelRequested bool                  `json:"cancel_requested"`
	HistoryID       int                   `json:"history_id,omitempty"`
	Error           string                `json:"error,omitempty"`
	Summary         *model.TestRunSummary `json:"summary,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// RunHandle identifies one run and carries its cooperative cancel flag.
// Cancel stops new calls from being issued; in-flight calls complete.
type RunHandle struct {
	Config meta.RunConfig

	parent    context.Context
	stop      context.Context
	stopFn    context.CancelFunc
	cancelled atomic.Bool

	events *streaming.Recorder

	mu       sync.RWMutex
	snapshot RunSnapshot
	onChange func(RunSnapshot)
}

// NewRunHandle creates a pending run. Cancelling parent also stops the run.
func NewRunHandle(parent context.Context, cfg meta.RunConfig, total int) *RunHandle {
	stop, stopFn := context.WithCancel(parent)
	now := time.Now().UTC()
	return &RunHandle{
		Config: cfg,
		parent: parent,
		stop:   stop,
		stopFn: stopFn,
		events: &streaming.Recorder{},
		snapshot: RunSnapshot{
			RunID:          cfg.RunID,
			AgentID:        cfg.AgentID,
			AgentName:      cfg.AgentName,
			Mode:           cfg.Mode,
			Status:         model.RunStatusPending,
			TotalQuestions: total,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}

func (h *RunHandle) ID() string { return h.Config.RunID }

// Cancel requests a cooperative stop. It returns false when the run already finished.
func (h *RunHandle) Cancel() bool {
	if h.Snapshot().Status.Terminal() {
		return false
	}
	h.cancelled.Store(true)
	h.stopFn()
	h.update(func(s *RunSnapshot) { s.CancelRequested = true })
	return true
}

// Cancelled reports whether the run was told to stop, by Cancel or by its parent context.
func (h *RunHandle) Cancelled() bool {
	return h.cancelled.Load() || h.parent.Err() != nil
}

// Events returns every event published for the run so far.
func (h *RunHandle) Events() []streaming.Event { return h.events.Events() }

// StopContext is done once the run must not issue further calls.
func (h *RunHandle) StopContext() context.Context { return h.stop }

func (h *RunHandle) Snapshot() RunSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	s := h.snapshot
	if s.Summary != nil {
		summary := *s.Summary
		s.Summary = &summary
	}
	return s
}

func (h *RunHandle) setStatus(status model.RunStatus) {
	h.update(func(s *RunSnapshot) { s.Status = status })
}

func (h *RunHandle) recordOutcome(success bool) {
	h.update(func(s *RunSnapshot) {
		s.Completed++
		if success {
			s.PassedCount++
		} else {
			s.FailedCount++
		}
	})
}

func (h *RunHandle) finish(status model.RunStatus, historyID int, summary *model.TestRunSummary, err error) {
	h.update(func(s *RunSnapshot) {
		s.Status = status
		s.HistoryID = historyID
		s.Summary = summary
		if err != nil {
			s.Error = err.Error()
		}
	})
	h.stopFn()
}

func (h *RunHandle) setOnChange(fn func(RunSnapshot)) {
	h.mu.Lock()
	h.onChange = fn
	h.mu.Unlock()
}

func (h *RunHandle) update(fn func(*RunSnapshot)) {
	h.mu.Lock()
	fn(&h.snapshot)
	h.snapshot.UpdatedAt = time.Now().UTC()
	snap, notify := h.snapshot, h.onChange
	h.mu.Unlock()

	if notify != nil {
		notify(snap)
	}
}

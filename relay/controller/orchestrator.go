package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/Laisky/errors/v2"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"

	"github.com/gptbots-qa/agent-tester/common/logger"
	"github.com/gptbots-qa/agent-tester/monitor"
	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/model"
	"github.com/gptbots-qa/agent-tester/relay/report"
	"github.com/gptbots-qa/agent-tester/relay/streaming"
)

// AgentCaller is the agent adaptor as seen by the orchestrator.
type AgentCaller interface {
	Call(ctx context.Context, target meta.Target, userID string, question string) model.AgentCallOutcome
}

// RunRecord is everything persisted for one finished run.
type RunRecord struct {
	RunID       string
	AgentID     int
	AgentName   string
	Mode        execmode.Mode
	RPM         int
	Concurrency int
	Status      model.RunStatus
	Summary     model.TestRunSummary
	Results     []model.TestResult
	Reports     model.ReportBundle
	StartedAt   time.Time
	FinishedAt  time.Time
}

// RunPersister stores a finished run exactly once and returns its history id.
type RunPersister interface {
	SaveRun(ctx context.Context, record *RunRecord) (int, error)
}

// RunOutcome is what a finished run produced. Results are in completion order.
type RunOutcome struct {
	HistoryID int
	Status    model.RunStatus
	Summary   model.TestRunSummary
	Results   []model.TestResult
	Reports   model.ReportBundle
	// ReportFiles lists the on-disk copies, if any were written.
	ReportFiles []string
}

// Orchestrator drives runs. One Orchestrator serves any number of concurrent
// runs; everything run-scoped lives in the RunHandle and in Run's locals.
type Orchestrator struct {
	caller    AgentCaller
	persister RunPersister
	sleep     Sleeper
	now       func() time.Time
	// reportDir receives copies of every bundle when not empty.
	reportDir string
}

type OrchestratorOption func(*Orchestrator)

// WithSleeper replaces the real pauses between calls and batches.
func WithSleeper(s Sleeper) OrchestratorOption {
	return func(o *Orchestrator) { o.sleep = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.now = now }
}

// WithReportDir writes a copy of every rendered bundle to dir after persistence.
func WithReportDir(dir string) OrchestratorOption {
	return func(o *Orchestrator) { o.reportDir = dir }
}

func NewOrchestrator(caller AgentCaller, persister RunPersister, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		caller:    caller,
		persister: persister,
		sleep:     SleepContext,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes questions for handle and publishes its events to pub.
//
// Per-question failures never abort the run. The returned error is either a
// render failure or a *model.PersistenceError; with the latter the outcome still
// carries the computed summary and reports. Exactly one terminal event
// (complete or error) is published.
func (o *Orchestrator) Run(ctx context.Context, handle *RunHandle, questions []model.TestQuestion,
	pub streaming.Publisher) (*RunOutcome, error) {
	if pub == nil {
		pub = streaming.Discard
	}
	pub = streaming.Tee(pub, handle.events)
	cfg := handle.Config
	total := len(questions)
	lg := logger.Logger.With(
		zap.String("run_id", cfg.RunID),
		zap.Int("agent_id", cfg.AgentID),
		zap.String("mode", cfg.Mode.String()),
	)
	finished := monitor.RunStarted(cfg.Mode.String())

	startedAt := o.now()
	handle.setStatus(model.RunStatusRunning)
	lg.Info("test run started", zap.Int("total_questions", total),
		zap.Int("rpm", cfg.RPM), zap.Int("concurrency", cfg.Concurrency))

	pub.Publish(streaming.Event{
		Type:      streaming.EventConnected,
		RunID:     cfg.RunID,
		AgentName: cfg.AgentName,
		Mode:      cfg.Mode,
		Total:     total,
	})

	results := make([]model.TestResult, 0, total)
	call := func(callCtx context.Context, q model.TestQuestion) model.AgentCallOutcome {
		return o.caller.Call(callCtx, cfg.Target, cfg.ConversationUserID(), q.Text)
	}
	hooks := Hooks{
		Started: func(q model.TestQuestion, batch Batch) {
			ev := streaming.Event{
				Type:     streaming.EventProgress,
				RunID:    cfg.RunID,
				Index:    streaming.IntPtr(q.Index),
				Current:  q.Index + 1,
				Total:    total,
				Question: streaming.Preview(q.Text),
			}
			if cfg.Mode == execmode.Parallel {
				ev.BatchStart = streaming.IntPtr(batch.Start)
				ev.BatchSize = batch.Size
			}
			pub.Publish(ev)
		},
		Finished: func(q model.TestQuestion, outcome model.AgentCallOutcome) {
			result := model.TestResult{TestQuestion: q, AgentCallOutcome: outcome, Timestamp: o.now().UTC()}
			results = append(results, result)
			handle.recordOutcome(outcome.Success)

			running := Summarize(results, 0)
			pub.Publish(streaming.Event{
				Type:   streaming.EventResult,
				RunID:  cfg.RunID,
				Index:  streaming.IntPtr(q.Index),
				Result: &result,
				Stats: &streaming.Stats{
					Current:     len(results),
					Total:       total,
					PassedCount: running.PassedCount,
					FailedCount: running.FailedCount,
					SuccessRate: running.SuccessRate,
					TotalTokens: running.TotalTokens,
					TotalCost:   running.TotalCost,
				},
			})
		},
	}

	issued := Schedule(ctx, handle.StopContext(), &cfg, questions, call, o.sleep, hooks)

	status := model.RunStatusCompleted
	if issued < total {
		status = model.RunStatusCancelled
	}
	finishedAt := o.now()
	summary := Summarize(results, finishedAt.Sub(startedAt))
	out := &RunOutcome{Status: status, Summary: summary, Results: results}
	lg.Info("test run finished",
		zap.String("status", string(status)),
		zap.Int("passed", summary.PassedCount),
		zap.Int("failed", summary.FailedCount),
		zap.Float64("success_rate", summary.SuccessRate))

	md := model.RunMetadata{
		RunID:       cfg.RunID,
		AgentName:   cfg.AgentName,
		RunDate:     startedAt.UTC(),
		Mode:        cfg.Mode,
		RPM:         cfg.RPM,
		Concurrency: cfg.Concurrency,
		Status:      status,
	}
	bundle, err := report.Render(summary, results, md)
	if err != nil {
		return o.fail(handle, pub, lg, finished, out, "render", errors.Wrap(err, "render reports"))
	}
	out.Reports = bundle

	historyID, err := o.persister.SaveRun(ctx, &RunRecord{
		RunID:       cfg.RunID,
		AgentID:     cfg.AgentID,
		AgentName:   cfg.AgentName,
		Mode:        cfg.Mode,
		RPM:         cfg.RPM,
		Concurrency: cfg.Concurrency,
		Status:      status,
		Summary:     summary,
		Results:     report.Ordered(results),
		Reports:     bundle,
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
	})
	if err != nil {
		return o.fail(handle, pub, lg, finished, out, "persistence", &model.PersistenceError{Err: err})
	}
	out.HistoryID = historyID

	if o.reportDir != "" {
		stem := fmt.Sprintf("test_report_%s", startedAt.UTC().Format("20060102_150405"))
		if out.ReportFiles, err = report.WriteFiles(o.reportDir, stem, bundle); err != nil {
			lg.Warn("write report copies", zap.String("dir", o.reportDir), zap.Error(err))
		}
	}

	handle.finish(status, historyID, &summary, nil)
	finished(string(status))
	pub.Publish(streaming.Event{
		Type:      streaming.EventComplete,
		RunID:     cfg.RunID,
		HistoryID: historyID,
		Status:    status,
		Summary:   &summary,
	})
	return out, nil
}

func (o *Orchestrator) fail(handle *RunHandle, pub streaming.Publisher, lg glog.Logger,
	finished func(string), out *RunOutcome, kind string, err error) (*RunOutcome, error) {
	lg.Error("test run failed after execution", zap.String("stage", kind), zap.Error(err))
	handle.finish(model.RunStatusFailed, 0, &out.Summary, err)
	finished(string(model.RunStatusFailed))
	pub.Publish(streaming.Event{
		Type:      streaming.EventError,
		RunID:     handle.ID(),
		Message:   err.Error(),
		ErrorKind: kind,
	})
	return out, err
}

package controller

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/model"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the real Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CallFunc performs one agent call. It must not panic and never fails the run.
type CallFunc func(ctx context.Context, q model.TestQuestion) model.AgentCallOutcome

// Batch locates a question inside its parallel batch. Sequential runs use a batch of one.
type Batch struct {
	Start int
	Size  int
}

// Hooks observe scheduling. Both run on the goroutine that called Schedule,
// so the caller stays the only writer of its state.
type Hooks struct {
	// Started fires before the call for q is issued.
	Started func(q model.TestQuestion, batch Batch)
	// Finished fires once per question in completion order.
	Finished func(q model.TestQuestion, outcome model.AgentCallOutcome)
}

// Schedule issues call for each question under cfg's mode.
//
// Sequential mode waits cfg.SequentialDelay after every call except the last.
// Parallel mode runs consecutive batches of cfg.Concurrency questions, waits
// for the whole batch, then pauses cfg.BatchPause before the next one.
//
// stop is checked between questions and between batches and interrupts the
// pauses; a call already issued is never interrupted by it. Calls use callCtx.
// Schedule returns the number of questions that were issued.
func Schedule(callCtx, stop context.Context, cfg *meta.RunConfig, questions []model.TestQuestion,
	call CallFunc, sleep Sleeper, hooks Hooks) int {
	if sleep == nil {
		sleep = SleepContext
	}
	if hooks.Started == nil {
		hooks.Started = func(model.TestQuestion, Batch) {}
	}
	if hooks.Finished == nil {
		hooks.Finished = func(model.TestQuestion, model.AgentCallOutcome) {}
	}

	if cfg.Mode == execmode.Parallel {
		return scheduleParallel(callCtx, stop, cfg.Concurrency, cfg.BatchPause, questions, call, sleep, hooks)
	}
	return scheduleSequential(callCtx, stop, cfg.SequentialDelay(), questions, call, sleep, hooks)
}

func scheduleSequential(callCtx, stop context.Context, delay time.Duration, questions []model.TestQuestion,
	call CallFunc, sleep Sleeper, hooks Hooks) int {
	issued := 0
	for i, q := range questions {
		if stop.Err() != nil {
			break
		}

		hooks.Started(q, Batch{Start: i, Size: 1})
		issued++
		hooks.Finished(q, call(callCtx, q))

		if i < len(questions)-1 {
			_ = sleep(stop, delay)
		}
	}
	return issued
}

type indexedOutcome struct {
	question model.TestQuestion
	outcome  model.AgentCallOutcome
}

func scheduleParallel(callCtx, stop context.Context, concurrency int, pause time.Duration, questions []model.TestQuestion,
	call CallFunc, sleep Sleeper, hooks Hooks) int {
	if concurrency < 1 {
		concurrency = 1
	}

	issued := 0
	for start := 0; start < len(questions); start += concurrency {
		if stop.Err() != nil {
			break
		}

		end := min(start+concurrency, len(questions))
		batch := questions[start:end]
		info := Batch{Start: start, Size: len(batch)}

		for _, q := range batch {
			hooks.Started(q, info)
		}

		done := make(chan indexedOutcome, len(batch))
		var g errgroup.Group
		g.SetLimit(concurrency)
		for _, q := range batch {
			g.Go(func() error {
				done <- indexedOutcome{question: q, outcome: call(callCtx, q)}
				return nil
			})
		}
		issued += len(batch)

		for range batch {
			r := <-done
			hooks.Finished(r.question, r.outcome)
		}
		_ = g.Wait()

		if end < len(questions) {
			_ = sleep(stop, pause)
		}
	}
	return issued
}

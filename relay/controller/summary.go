package controller

import (
	"math"
	"time"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

type tally struct {
	total, passed int
	latencyMs     int64
	tokens        int64
	cost          float64
}

func fold(results []model.TestResult) tally {
	var t tally
	for _, r := range results {
		t.total++
		if r.Success {
			t.passed++
		}
		t.latencyMs += r.ResponseTimeMs
		t.tokens += r.Tokens
		t.cost += r.Cost
	}
	return t
}

// Summarize folds results into the run summary. It depends only on its input,
// so sequential and parallel runs with the same outcomes summarize the same.
//
// SuccessRate is rounded to 2 decimals, AvgResponseTimeMs to the nearest
// millisecond over every call including failures, TotalCost to 4 decimals and
// DurationSeconds is truncated.
func Summarize(results []model.TestResult, elapsed time.Duration) model.TestRunSummary {
	t := fold(results)
	s := model.TestRunSummary{
		TotalQuestions:  t.total,
		PassedCount:     t.passed,
		FailedCount:     t.total - t.passed,
		DurationSeconds: int64(elapsed / time.Second),
		TotalTokens:     t.tokens,
		TotalCost:       round(t.cost, 4),
	}
	if t.total > 0 {
		s.SuccessRate = round(float64(t.passed)/float64(t.total)*100, 2)
		s.AvgResponseTimeMs = int64(math.Round(float64(t.latencyMs) / float64(t.total)))
	}
	return s
}

func round(v float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(v*scale) / scale
}

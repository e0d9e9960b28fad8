package report

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

const (
	StatusPassed = "PASS"
	StatusFailed = "FAIL"

	timestampLayout = "2006-01-02 15:04:05"
)

// Render produces the three artifacts of one run. It is a pure function of its
// input: equal input yields byte-identical Markdown and JSON and the same
// spreadsheet cells. Results are rendered in question order.
func Render(summary model.TestRunSummary, results []model.TestResult, md model.RunMetadata) (model.ReportBundle, error) {
	ordered := Ordered(results)

	excel, err := renderExcel(summary, ordered, md)
	if err != nil {
		return model.ReportBundle{}, errors.Wrap(err, "render excel report")
	}
	markdown, err := renderMarkdown(summary, ordered, md)
	if err != nil {
		return model.ReportBundle{}, errors.Wrap(err, "render markdown report")
	}
	data, err := renderJSON(summary, ordered, md)
	if err != nil {
		return model.ReportBundle{}, errors.Wrap(err, "render json report")
	}

	return model.ReportBundle{Excel: excel, Markdown: markdown, JSON: data}, nil
}

// Ordered returns a copy of results sorted by question index.
func Ordered(results []model.TestResult) []model.TestResult {
	ordered := append([]model.TestResult(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	return ordered
}

// Number formatting shared by every artifact so all three print the same figures.

func formatRate(v float64) string { return fmt.Sprintf("%.2f%%", v) }

func formatCost(v float64) string { return fmt.Sprintf("%.4f", v) }

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

func statusLabel(success bool) string {
	if success {
		return StatusPassed
	}
	return StatusFailed
}

// answer is the actual-output column: the response, or the error of a failed call.
func answer(r model.TestResult) string {
	if r.Success {
		return r.ResponseText
	}
	if r.ErrorMessage == "" {
		return "error: unknown"
	}
	return "error: " + r.ErrorMessage
}

// roundCost keeps per-row cost cells on the same 4-decimal grid as the summary.
func roundCost(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

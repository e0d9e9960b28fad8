package report

import (
	"strconv"

	"github.com/Laisky/errors/v2"
	"github.com/xuri/excelize/v2"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

var resultColumns = []string{
	"No.", "Question", "Reference Output", "Actual Output", "Status",
	"Response Time (ms)", "Tokens", "Cost", "Timestamp",
}

func renderExcel(summary model.TestRunSummary, results []model.TestResult, md model.RunMetadata) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ResultsSheet); err != nil {
		return nil, errors.Wrap(err, "rename sheet")
	}

	rows := make([][]any, 0, len(results)+2)
	rows = append(rows, toAny(resultColumns))
	// the leading summary row reuses the result columns as labeled text
	rows = append(rows, []any{
		"Summary",
		"Total: " + strconv.Itoa(summary.TotalQuestions),
		"Passed: " + strconv.Itoa(summary.PassedCount),
		"Failed: " + strconv.Itoa(summary.FailedCount),
		"Success rate: " + formatRate(summary.SuccessRate),
		"Avg: " + strconv.FormatInt(summary.AvgResponseTimeMs, 10),
		"Total: " + strconv.FormatInt(summary.TotalTokens, 10),
		"Total: " + formatCost(summary.TotalCost),
		"Duration: " + strconv.FormatInt(summary.DurationSeconds, 10) + "s",
	})
	for _, r := range results {
		rows = append(rows, []any{
			r.Index + 1,
			r.Text,
			r.ReferenceOutput,
			answer(r),
			statusLabel(r.Success),
			r.ResponseTimeMs,
			r.Tokens,
			roundCost(r.Cost),
			formatTime(r.Timestamp),
		})
	}
	if err := writeRows(f, ResultsSheet, rows); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(SummarySheet); err != nil {
		return nil, errors.Wrap(err, "create summary sheet")
	}
	if err := writeRows(f, SummarySheet, summaryPairs(summary, md)); err != nil {
		return nil, err
	}

	if err := f.SetColWidth(ResultsSheet, "B", "D", 60); err != nil {
		return nil, errors.Wrap(err, "set column width")
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write workbook")
	}
	return buf.Bytes(), nil
}

// summaryPairs is the label/value listing shared by the Summary sheet.
func summaryPairs(summary model.TestRunSummary, md model.RunMetadata) [][]any {
	return [][]any{
		{"Metric", "Value"},
		{"Agent", md.AgentName},
		{"Run date", formatTime(md.RunDate)},
		{"Execution mode", md.Mode.String()},
		{"RPM", md.RPM},
		{"Concurrency", md.Concurrency},
		{"Status", string(md.Status)},
		{"Total questions", summary.TotalQuestions},
		{"Passed", summary.PassedCount},
		{"Failed", summary.FailedCount},
		{"Success rate", formatRate(summary.SuccessRate)},
		{"Duration (s)", summary.DurationSeconds},
		{"Avg response time (ms)", summary.AvgResponseTimeMs},
		{"Total tokens", summary.TotalTokens},
		{"Total cost", formatCost(summary.TotalCost)},
	}
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.WithStack(err)
		}
		if err = f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return errors.Wrapf(err, "write %s row %d", sheet, i+1)
		}
	}
	return nil
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

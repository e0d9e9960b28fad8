package report

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/model"
)

func fixture() (model.TestRunSummary, []model.TestResult, model.RunMetadata) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	results := []model.TestResult{
		{
			TestQuestion:     model.TestQuestion{Index: 1, Text: "Capital of France?", ReferenceOutput: "Paris"},
			AgentCallOutcome: model.AgentCallOutcome{ErrorMessage: "empty response", ErrorKind: model.ErrorKindEmptyResponse, ResponseTimeMs: 300},
			Timestamp:        ts.Add(2 * time.Second),
		},
		{
			TestQuestion:     model.TestQuestion{Index: 0, Text: "What is 2+2?", ReferenceOutput: "4"},
			AgentCallOutcome: model.AgentCallOutcome{Success: true, ResponseText: "4", ResponseTimeMs: 100, Tokens: 30, Cost: 0.01234},
			Timestamp:        ts.Add(time.Second),
		},
	}
	summary := model.TestRunSummary{
		TotalQuestions:    2,
		PassedCount:       1,
		FailedCount:       1,
		SuccessRate:       50,
		DurationSeconds:   3,
		AvgResponseTimeMs: 200,
		TotalTokens:       30,
		TotalCost:         0.0123,
	}
	md := model.RunMetadata{
		RunID:       "run-1",
		AgentName:   "support-bot",
		RunDate:     ts,
		Mode:        execmode.Parallel,
		RPM:         60,
		Concurrency: 2,
		Status:      model.RunStatusCompleted,
	}
	return summary, results, md
}

func TestRender(t *testing.T) {
	summary, results, md := fixture()

	Convey("Given a finished run", t, func() {
		bundle, err := Render(summary, results, md)
		So(err, ShouldBeNil)

		Convey("the json report carries the summary and question-ordered results", func() {
			doc, err := DecodeDocument(bundle.JSON)
			So(err, ShouldBeNil)
			So(doc.Summary, ShouldResemble, summary)
			So(len(doc.Results), ShouldEqual, 2)
			So(doc.Results[0].Index, ShouldEqual, 0)
			So(doc.Results[1].ErrorKind, ShouldEqual, model.ErrorKindEmptyResponse)
			So(doc.Metadata.AgentName, ShouldEqual, "support-bot")
		})

		Convey("the markdown report prints the same figures", func() {
			text := string(bundle.Markdown)
			So(text, ShouldStartWith, "# Agent Test Report")
			So(text, ShouldContainSubstring, "| Success rate ")
			So(text, ShouldContainSubstring, "50.00%")
			So(text, ShouldContainSubstring, "0.0123")
			So(strings.Index(text, "### 1. What is 2+2?"), ShouldBeLessThan, strings.Index(text, "### 2. Capital of France?"))
			So(text, ShouldContainSubstring, "> error: empty response")
		})

		Convey("the spreadsheet has a header, a summary row and one row per question", func() {
			f, err := excelize.OpenReader(bytes.NewReader(bundle.Excel))
			So(err, ShouldBeNil)
			defer f.Close()

			rows, err := f.GetRows(ResultsSheet)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 4)
			So(rows[0], ShouldResemble, resultColumns)
			So(rows[1][0], ShouldEqual, "Summary")
			So(rows[1][4], ShouldEqual, "Success rate: 50.00%")
			So(rows[2][1], ShouldEqual, "What is 2+2?")
			So(rows[2][4], ShouldEqual, StatusPassed)
			So(rows[3][3], ShouldEqual, "error: empty response")
			So(rows[3][4], ShouldEqual, StatusFailed)
		})

		Convey("rendering again yields identical artifacts", func() {
			again, err := Render(summary, results, md)
			So(err, ShouldBeNil)
			So(bytes.Equal(again.Markdown, bundle.Markdown), ShouldBeTrue)
			So(bytes.Equal(again.JSON, bundle.JSON), ShouldBeTrue)
			So(excelCells(t, again.Excel), ShouldResemble, excelCells(t, bundle.Excel))
		})
	})
}

// TestArtifactsAgree reads every aggregate back out of the three encodings.
func TestArtifactsAgree(t *testing.T) {
	summary, results, md := fixture()
	bundle, err := Render(summary, results, md)
	require.NoError(t, err)

	want := map[string]string{}
	for _, row := range SummaryRows(summary) {
		want[row[0]] = row[1]
	}

	f, err := excelize.OpenReader(bytes.NewReader(bundle.Excel))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	fromExcel := map[string]string{}
	for _, row := range rows[1:] {
		fromExcel[row[0]] = row[1]
	}

	for label, value := range want {
		require.Equal(t, value, fromExcel[label], label)
		require.Regexp(t, `\|\s*`+regexp.QuoteMeta(label)+`\s*\|\s*`+regexp.QuoteMeta(value)+`\s*\|`, string(bundle.Markdown), label)
	}

	doc, err := DecodeDocument(bundle.JSON)
	require.NoError(t, err)
	require.Equal(t, want, rowsToMap(SummaryRows(doc.Summary)))
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	bundle := model.ReportBundle{Excel: []byte("x"), Markdown: []byte("# r"), JSON: []byte("{}")}

	paths, err := WriteFiles(filepath.Join(dir, "reports"), "test_report_1", bundle)
	require.NoError(t, err)
	require.Len(t, paths, 3)

	data, err := os.ReadFile(filepath.Join(dir, "reports", "test_report_1.md"))
	require.NoError(t, err)
	require.Equal(t, "# r", string(data))

	_, ok := Artifact(bundle, "pdf")
	require.False(t, ok)
}

func excelCells(t *testing.T, data []byte) [][]string {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	var all [][]string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		require.NoError(t, err)
		all = append(all, rows...)
	}
	return all
}

func rowsToMap(rows [][]string) map[string]string {
	m := make(map[string]string, len(rows))
	for _, row := range rows {
		m[row[0]] = row[1]
	}
	return m
}

package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/gptbots-qa/agent-tester/relay/model"
)

func renderMarkdown(summary model.TestRunSummary, results []model.TestResult, md model.RunMetadata) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Agent Test Report\n\n")
	fmt.Fprintf(&buf, "- **Agent:** %s\n", md.AgentName)
	fmt.Fprintf(&buf, "- **Run date:** %s\n", formatTime(md.RunDate))
	fmt.Fprintf(&buf, "- **Execution mode:** %s\n", md.Mode)
	fmt.Fprintf(&buf, "- **RPM:** %d\n", md.RPM)
	fmt.Fprintf(&buf, "- **Concurrency:** %d\n", md.Concurrency)
	if md.Status != "" {
		fmt.Fprintf(&buf, "- **Status:** %s\n", md.Status)
	}

	buf.WriteString("\n## Summary\n\n")
	SummaryTable(&buf, summary)

	buf.WriteString("\n## Results\n")
	for _, r := range results {
		fmt.Fprintf(&buf, "\n### %d. %s\n\n", r.Index+1, singleLine(r.Text))
		fmt.Fprintf(&buf, "- **Status:** %s\n", statusLabel(r.Success))
		fmt.Fprintf(&buf, "- **Response time:** %d ms\n", r.ResponseTimeMs)
		fmt.Fprintf(&buf, "- **Tokens:** %d\n", r.Tokens)
		fmt.Fprintf(&buf, "- **Cost:** %s\n", formatCost(roundCost(r.Cost)))
		fmt.Fprintf(&buf, "- **Timestamp:** %s\n", formatTime(r.Timestamp))

		buf.WriteString("\n**Question**\n\n")
		buf.WriteString(quote(r.Text))
		if r.ReferenceOutput != "" {
			buf.WriteString("\n**Reference output**\n\n")
			buf.WriteString(quote(r.ReferenceOutput))
		}
		buf.WriteString("\n**Actual output**\n\n")
		buf.WriteString(quote(answer(r)))
	}

	return buf.Bytes(), nil
}

// SummaryTable writes the summary as a markdown table.
func SummaryTable(buf *bytes.Buffer, summary model.TestRunSummary) {
	table := tablewriter.NewWriter(buf)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetCenterSeparator("|")
	table.AppendBulk(SummaryRows(summary))
	table.Render()
}

// SummaryRows lists the aggregate figures in display form.
func SummaryRows(summary model.TestRunSummary) [][]string {
	return [][]string{
		{"Total questions", strconv.Itoa(summary.TotalQuestions)},
		{"Passed", strconv.Itoa(summary.PassedCount)},
		{"Failed", strconv.Itoa(summary.FailedCount)},
		{"Success rate", formatRate(summary.SuccessRate)},
		{"Duration (s)", strconv.FormatInt(summary.DurationSeconds, 10)},
		{"Avg response time (ms)", strconv.FormatInt(summary.AvgResponseTimeMs, 10)},
		{"Total tokens", strconv.FormatInt(summary.TotalTokens, 10)},
		{"Total cost", formatCost(summary.TotalCost)},
	}
}

func quote(text string) string {
	if text == "" {
		return "> \n"
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	return "> " + strings.Join(lines, "\n> ") + "\n"
}

func singleLine(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > 80 {
		return string(r[:80]) + "..."
	}
	return text
}

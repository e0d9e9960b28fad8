package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/gptbots-qa/agent-tester/relay/controller"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/report"
	"github.com/gptbots-qa/agent-tester/relay/streaming"
)

// progress renders run events as a terminal progress bar.
type progress struct {
	w      io.Writer
	bar    *progressbar.ProgressBar
	passed int
	failed int
}

func newProgress(w io.Writer, total int, enabled bool) *progress {
	p := &progress{w: w}
	if !enabled {
		return p
	}
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(p.describe()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionOnCompletion(func() { fmt.Fprintln(w) }),
		progressbar.OptionSetRenderBlankState(true),
	)
	return p
}

func (p *progress) describe() string {
	return color.CyanString("Asking: ") +
		color.GreenString("[passed: %d", p.passed) +
		" | " +
		color.RedString("failed: %d]", p.failed)
}

func (p *progress) Publish(ev streaming.Event) {
	switch ev.Type {
	case streaming.EventResult:
		if ev.Result.Success {
			p.passed++
		} else {
			p.failed++
		}
		if p.bar != nil {
			p.bar.Describe(p.describe())
			_ = p.bar.Set(p.passed + p.failed)
		}
	case streaming.EventError:
		if p.bar != nil {
			_ = p.bar.Exit()
		}
		fmt.Fprintln(p.w, color.RedString("✗ %s", ev.Message))
	case streaming.EventComplete:
		if p.bar != nil {
			_ = p.bar.Finish()
		}
	}
}

func printSummary(w io.Writer, cfg meta.RunConfig, out *controller.RunOutcome) {
	fmt.Fprintln(w, color.CyanString("%s: %s run %s", cfg.AgentName, cfg.Mode, out.Status))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoFormatHeaders(false)
	table.AppendBulk(report.SummaryRows(out.Summary))
	table.Render()

	failures := 0
	for _, r := range out.Results {
		if r.Success {
			continue
		}
		if failures == 0 {
			fmt.Fprintln(w, color.YellowString("Failed questions:"))
		}
		failures++
		fmt.Fprintf(w, "%s %s\n", color.RedString("✗ #"+strconv.Itoa(r.Index+1)),
			streaming.Preview(r.Text)+": "+r.ErrorMessage)
	}
}

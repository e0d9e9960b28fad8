package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/spf13/cobra"

	"github.com/gptbots-qa/agent-tester/common/client"
	"github.com/gptbots-qa/agent-tester/common/config"
	"github.com/gptbots-qa/agent-tester/common/random"
	"github.com/gptbots-qa/agent-tester/relay/adaptor/gptbots"
	relaycontroller "github.com/gptbots-qa/agent-tester/relay/controller"
	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/ingest"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	"github.com/gptbots-qa/agent-tester/relay/report"
)

type runOptions struct {
	file        string
	apiKey      string
	region      string
	baseURL     string
	agentName   string
	mode        string
	rpm         int
	concurrency int
	batchPause  time.Duration
	timeout     time.Duration
	userID      string
	outDir      string
	maxQuestion int
	failOnError bool
	noProgress  bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a question sheet against an agent",
		Example: `  agentbench run --file questions.xlsx --api-key $GPTBOTS_API_KEY
  agentbench run --file questions.csv --region CN --mode parallel --concurrency 4 --out ./reports`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSheet(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "question sheet (.xlsx or .csv)")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("GPTBOTS_API_KEY"), "agent API key (default $GPTBOTS_API_KEY)")
	flags.StringVar(&opts.region, "region", string(meta.RegionSG), "agent region: SG, CN or CUSTOM")
	flags.StringVar(&opts.baseURL, "base-url", "", "base URL, required with --region CUSTOM")
	flags.StringVar(&opts.agentName, "agent-name", "agent", "name shown in the reports")
	flags.StringVarP(&opts.mode, "mode", "m", string(execmode.Sequential), "execution mode: sequential or parallel")
	flags.IntVar(&opts.rpm, "rpm", config.DefaultRPM, "requests per minute in sequential mode")
	flags.IntVarP(&opts.concurrency, "concurrency", "c", config.DefaultConcurrency, "batch size in parallel mode")
	flags.DurationVar(&opts.batchPause, "batch-pause", config.ParallelBatchPause, "pause between parallel batches")
	flags.DurationVar(&opts.timeout, "timeout", config.AgentRequestTimeout, "per-question timeout")
	flags.StringVar(&opts.userID, "user-id", "", "conversation user id; generated per question when empty")
	flags.StringVarP(&opts.outDir, "out", "o", ".", "directory receiving the reports")
	flags.IntVar(&opts.maxQuestion, "max-questions", config.MaxQuestions, "reject sheets with more questions; 0 disables the limit")
	flags.BoolVar(&opts.failOnError, "fail-on-error", false, "exit non-zero when any question failed")
	flags.BoolVar(&opts.noProgress, "no-progress", false, "disable the progress bar")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runSheet(cmd *cobra.Command, opts *runOptions) error {
	mode, err := execmode.Parse(opts.mode)
	if err != nil {
		return err
	}
	target, err := meta.ResolveTarget(0, opts.apiKey, opts.region, opts.baseURL,
		meta.Endpoints{SG: config.GPTBotsSGBaseURL, CN: config.GPTBotsCNBaseURL})
	if err != nil {
		return err
	}

	f, err := os.Open(opts.file)
	if err != nil {
		return errors.Wrap(err, "open question sheet")
	}
	defer f.Close()
	questions, err := (&ingest.Ingestor{MaxQuestions: opts.maxQuestion}).Parse(filepath.Base(opts.file), f)
	if err != nil {
		return err
	}

	cfg := meta.RunConfig{
		RunID:       random.GetUUID(),
		AgentName:   opts.agentName,
		Target:      target,
		Mode:        mode,
		RPM:         opts.rpm,
		Concurrency: opts.concurrency,
		BatchPause:  opts.batchPause,
		UserID:      opts.userID,
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	// ctrl-c stops issuing questions; finished answers are still reported
	interrupt, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	handle := relaycontroller.NewRunHandle(interrupt, cfg, len(questions))

	persister := &filePersister{dir: opts.outDir}
	orchestrator := relaycontroller.NewOrchestrator(
		gptbots.NewClient(client.HTTPClient, opts.timeout), persister)

	progress := newProgress(cmd.ErrOrStderr(), len(questions), !opts.noProgress)
	out, err := orchestrator.Run(context.WithoutCancel(cmd.Context()), handle, questions, progress)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg, out)
	for _, path := range persister.paths {
		fmt.Fprintf(cmd.OutOrStdout(), "report: %s\n", path)
	}
	if opts.failOnError && out.Summary.FailedCount > 0 {
		return errors.Errorf("%d of %d questions failed", out.Summary.FailedCount, out.Summary.TotalQuestions)
	}
	return nil
}

// filePersister stores a finished run as report files instead of a database row.
type filePersister struct {
	dir   string
	paths []string
}

func (p *filePersister) SaveRun(_ context.Context, record *relaycontroller.RunRecord) (int, error) {
	stem := "test_report_" + record.FinishedAt.Format("20060102_150405")
	paths, err := report.WriteFiles(p.dir, stem, record.Reports)
	if err != nil {
		return 0, err
	}
	p.paths = paths
	return 0, nil
}

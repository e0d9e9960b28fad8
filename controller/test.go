package controller

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"
	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/gptbots-qa/agent-tester/common/config"
	"github.com/gptbots-qa/agent-tester/common/graceful"
	"github.com/gptbots-qa/agent-tester/common/random"
	"github.com/gptbots-qa/agent-tester/dto"
	"github.com/gptbots-qa/agent-tester/middleware"
	"github.com/gptbots-qa/agent-tester/model"
	relaycontroller "github.com/gptbots-qa/agent-tester/relay/controller"
	"github.com/gptbots-qa/agent-tester/relay/ingest"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	relaymodel "github.com/gptbots-qa/agent-tester/relay/model"
	"github.com/gptbots-qa/agent-tester/relay/streaming"
)

// multipart framing and form fields on top of the spreadsheet itself
const uploadOverheadBytes = 1 << 20

// TestRunner serves the run submission endpoints.
type TestRunner struct {
	Orchestrator *relaycontroller.Orchestrator
	Registry     *relaycontroller.Registry
	Ingestor     *ingest.Ingestor
	Endpoints    meta.Endpoints
	Defaults     dto.RunDefaults
	BatchPause   time.Duration
	MaxUpload    int64
	// LookupAgent loads the agent a run targets.
	LookupAgent func(ctx context.Context, id int) (*model.Agent, error)
}

// NewTestRunner builds a TestRunner from the process configuration.
func NewTestRunner(orchestrator *relaycontroller.Orchestrator, registry *relaycontroller.Registry) *TestRunner {
	return &TestRunner{
		Orchestrator: orchestrator,
		Registry:     registry,
		Ingestor:     &ingest.Ingestor{MaxQuestions: config.MaxQuestions},
		Endpoints:    meta.Endpoints{SG: config.GPTBotsSGBaseURL, CN: config.GPTBotsCNBaseURL},
		Defaults: dto.RunDefaults{
			RPM:            config.DefaultRPM,
			Concurrency:    config.DefaultConcurrency,
			MaxConcurrency: config.MaxConcurrency,
		},
		BatchPause:  config.ParallelBatchPause,
		MaxUpload:   int64(config.MaxUploadSizeMB) << 20,
		LookupAgent: model.GetAgentById,
	}
}

// requestError carries the HTTP status of a failure detected before a run starts.
type requestError struct {
	status int
	kind   string
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(kind string, err error) *requestError {
	return &requestError{status: http.StatusBadRequest, kind: kind, err: err}
}

// StartTestRun handles POST /api/tests.
func (r *TestRunner) StartTestRun(c *gin.Context) {
	lg := gmw.GetLogger(c)
	framing, stream := streamFraming(c)

	if graceful.IsDraining() {
		r.reject(c, lg, stream, framing, &requestError{
			status: http.StatusServiceUnavailable,
			kind:   "draining",
			err:    errors.New("server is shutting down"),
		})
		return
	}

	cfg, questions, reqErr := r.prepare(c)
	if reqErr != nil {
		r.reject(c, lg, stream, framing, reqErr)
		return
	}

	lg = lg.With(zap.String("run_id", cfg.RunID), zap.Int("agent_id", cfg.AgentID))
	runCtx := context.WithoutCancel(c.Request.Context())
	handle := relaycontroller.NewRunHandle(runCtx, *cfg, len(questions))
	r.Registry.Register(handle)
	c.Header("X-Run-Id", handle.ID())

	if !stream {
		graceful.GoCritical(runCtx, "test_run:"+handle.ID(), func(ctx context.Context) {
			if _, err := r.Orchestrator.Run(ctx, handle, questions, nil); err != nil {
				lg.Error("background test run failed", zap.Error(err))
			}
		})
		lg.Info("test run accepted", zap.Int("total_questions", len(questions)))
		c.JSON(http.StatusAccepted, gin.H{
			"success": true,
			"message": "",
			"data": gin.H{
				"run_id":          handle.ID(),
				"total_questions": len(questions),
				"status":          handle.Snapshot().Status,
			},
		})
		return
	}

	streaming.SetupStreamHeaders(c, framing)
	writer := streaming.NewStreamWriter(c.Writer, framing, lg)
	if _, err := r.Orchestrator.Run(runCtx, handle, questions, writer); err != nil {
		lg.Error("streamed test run failed", zap.Error(err))
	}
}

// prepare validates the form, parses the spreadsheet and resolves the agent.
func (r *TestRunner) prepare(c *gin.Context) (*meta.RunConfig, []relaymodel.TestQuestion, *requestError) {
	if r.MaxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.MaxUpload+uploadOverheadBytes)
	}

	var req dto.TestRunRequest
	if err := c.ShouldBindWith(&req, binding.FormMultipart); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, &requestError{status: http.StatusRequestEntityTooLarge,
				kind: string(relaymodel.IngestionTooLarge), err: errors.New("upload exceeds the size limit")}
		}
		return nil, nil, badRequest("validation", errors.Wrap(err, "parse form"))
	}
	if err := req.Validate(r.Defaults); err != nil {
		return nil, nil, badRequest("validation", err)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil, badRequest("validation", errors.New("file is required"))
	}
	if r.MaxUpload > 0 && header.Size > r.MaxUpload {
		return nil, nil, &requestError{status: http.StatusRequestEntityTooLarge, kind: string(relaymodel.IngestionTooLarge),
			err: relaymodel.NewIngestionError(relaymodel.IngestionTooLarge, "file of %d bytes exceeds %d bytes", header.Size, r.MaxUpload)}
	}

	file, err := header.Open()
	if err != nil {
		return nil, nil, badRequest(string(relaymodel.IngestionUnreadable), errors.Wrap(err, "open upload"))
	}
	defer file.Close()

	questions, err := r.Ingestor.Parse(header.Filename, file)
	if err != nil {
		return nil, nil, ingestionFailure(err)
	}

	ctx := gmw.Ctx(c)
	agent, err := r.LookupAgent(ctx, req.AgentID)
	if err != nil {
		if relaymodel.IsAgentReferenceError(err) {
			return nil, nil, &requestError{status: http.StatusNotFound, kind: "agent_reference", err: err}
		}
		return nil, nil, &requestError{status: http.StatusInternalServerError, kind: "internal", err: err}
	}
	target, err := agent.Target(r.Endpoints)
	if err != nil {
		return nil, nil, &requestError{status: http.StatusUnprocessableEntity, kind: "agent_reference", err: err}
	}

	cfg := &meta.RunConfig{
		RunID:       random.GetUUID(),
		AgentID:     agent.Id,
		AgentName:   agent.Name,
		Target:      target,
		Mode:        req.Mode(),
		RPM:         req.RPM,
		Concurrency: req.MaxConcurrency,
		BatchPause:  r.BatchPause,
		UserID:      req.UserID,
	}
	if err = cfg.Validate(); err != nil {
		return nil, nil, badRequest("validation", err)
	}
	return cfg, questions, nil
}

func ingestionFailure(err error) *requestError {
	var ingestionErr *relaymodel.IngestionError
	if !errors.As(err, &ingestionErr) {
		return &requestError{status: http.StatusInternalServerError, kind: "internal", err: err}
	}
	status := http.StatusBadRequest
	if ingestionErr.Kind == relaymodel.IngestionTooLarge {
		status = http.StatusRequestEntityTooLarge
	}
	return &requestError{status: status, kind: string(ingestionErr.Kind), err: err}
}

// reject answers a request that never started a run: a single error event when
// streaming, a JSON envelope otherwise.
func (r *TestRunner) reject(c *gin.Context, lg glog.Logger, stream bool, framing streaming.Framing, reqErr *requestError) {
	if !stream {
		middleware.AbortWithError(c, reqErr.status, reqErr)
		return
	}

	lg.Info("test run rejected", zap.String("kind", reqErr.kind), zap.Error(reqErr))
	streaming.SetupStreamHeaders(c, framing)
	streaming.NewStreamWriter(c.Writer, framing, lg).Publish(streaming.Event{
		Type:      streaming.EventError,
		Message:   reqErr.Error(),
		ErrorKind: reqErr.kind,
	})
	c.Abort()
}

// streamFraming picks the event framing requested by the client, if any.
func streamFraming(c *gin.Context) (streaming.Framing, bool) {
	accept := c.GetHeader("Accept")
	switch {
	case strings.Contains(accept, streaming.FramingNDJSON.ContentType()):
		return streaming.FramingNDJSON, true
	case strings.Contains(accept, streaming.FramingSSE.ContentType()), c.Query("stream") == "true":
		return streaming.FramingSSE, true
	default:
		return streaming.FramingSSE, false
	}
}

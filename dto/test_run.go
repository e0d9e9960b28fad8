package dto

import (
	"strings"
	"sync"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"

	"github.com/gptbots-qa/agent-tester/relay/execmode"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// TestRunRequest is the multipart form of POST /api/tests, minus the file.
// Zero rpm or maxConcurrency means "use the server default".
type TestRunRequest struct {
	AgentID        int    `form:"agentId" json:"agent_id" validate:"required,gt=0"`
	ExecutionMode  string `form:"executionMode" json:"execution_mode" validate:"omitempty,oneof=sequential parallel"`
	RPM            int    `form:"rpm" json:"rpm" validate:"gte=0"`
	MaxConcurrency int    `form:"maxConcurrency" json:"max_concurrency" validate:"gte=0"`
	UserID         string `form:"userId" json:"user_id" validate:"omitempty,max=128"`
}

// RunDefaults fills the optional fields of a TestRunRequest.
type RunDefaults struct {
	RPM            int
	Concurrency    int
	MaxConcurrency int
}

// Validate checks the request and applies defaults in place.
func (r *TestRunRequest) Validate(defaults RunDefaults) error {
	r.ExecutionMode = strings.ToLower(strings.TrimSpace(r.ExecutionMode))
	r.UserID = strings.TrimSpace(r.UserID)
	if err := getValidator().Struct(r); err != nil {
		return errors.Wrap(err, "invalid test run request")
	}

	if r.RPM == 0 {
		r.RPM = defaults.RPM
	}
	if r.MaxConcurrency == 0 {
		r.MaxConcurrency = defaults.Concurrency
	}
	if defaults.MaxConcurrency > 0 && r.MaxConcurrency > defaults.MaxConcurrency {
		return errors.Errorf("maxConcurrency %d exceeds the limit of %d", r.MaxConcurrency, defaults.MaxConcurrency)
	}
	return nil
}

// Mode parses ExecutionMode; call it after Validate.
func (r *TestRunRequest) Mode() execmode.Mode {
	mode, err := execmode.Parse(r.ExecutionMode)
	if err != nil {
		return execmode.Sequential
	}
	return mode
}


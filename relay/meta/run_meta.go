package meta

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/gptbots-qa/agent-tester/common/random"
	"github.com/gptbots-qa/agent-tester/relay/execmode"
	"github.com/gptbots-qa/agent-tester/relay/model"
)

type Region string

const (
	RegionSG     Region = "SG"
	RegionCN     Region = "CN"
	RegionCustom Region = "CUSTOM"
)

// Endpoints maps the fixed regions to their base URLs.
type Endpoints struct {
	SG string
	CN string
}

// Target is everything the agent adaptor needs to reach one agent.
type Target struct {
	APIKey  string
	Region  Region
	BaseURL string
}

// ResolveTarget routes region to a base URL. CUSTOM requires customURL.
func ResolveTarget(agentID int, apiKey string, region string, customURL string, endpoints Endpoints) (Target, error) {
	if strings.TrimSpace(apiKey) == "" {
		return Target{}, &model.AgentReferenceError{AgentID: agentID, Reason: "agent has no api key"}
	}

	t := Target{APIKey: apiKey, Region: Region(strings.ToUpper(strings.TrimSpace(region)))}
	switch t.Region {
	case RegionSG:
		t.BaseURL = endpoints.SG
	case RegionCN:
		t.BaseURL = endpoints.CN
	case RegionCustom:
		t.BaseURL = strings.TrimSpace(customURL)
		if t.BaseURL == "" {
			return Target{}, &model.AgentReferenceError{AgentID: agentID, Reason: "CUSTOM region requires a custom base url"}
		}
	default:
		return Target{}, &model.AgentReferenceError{AgentID: agentID, Reason: fmt.Sprintf("unknown region %q", region)}
	}

	t.BaseURL = strings.TrimSuffix(t.BaseURL, "/")
	return t, nil
}

// RunConfig carries every per-run setting into the engine. Concurrent runs each
// own their RunConfig, nothing is read from process globals after it is built.
type RunConfig struct {
	RunID       string
	AgentID     int
	AgentName   string
	Target      Target
	Mode        execmode.Mode
	RPM         int
	Concurrency int
	BatchPause  time.Duration
	// UserID is the conversation user id; empty generates one per call.
	UserID string
}

func (c *RunConfig) Validate() error {
	switch c.Mode {
	case execmode.Sequential:
		if c.RPM <= 0 {
			return errors.Errorf("rpm must be positive, got %d", c.RPM)
		}
	case execmode.Parallel:
		if c.Concurrency <= 0 {
			return errors.Errorf("concurrency must be positive, got %d", c.Concurrency)
		}
		if c.BatchPause < 0 {
			return errors.Errorf("batch pause must not be negative, got %s", c.BatchPause)
		}
	default:
		return errors.Errorf("unknown execution mode %q", c.Mode)
	}
	if c.Target.BaseURL == "" {
		return errors.New("target base url is empty")
	}
	return nil
}

// SequentialDelay is the pause after every sequential call except the last: 60000/rpm ms.
func (c *RunConfig) SequentialDelay() time.Duration {
	if c.RPM <= 0 {
		return 0
	}
	return time.Minute / time.Duration(c.RPM)
}

// ConversationUserID returns the configured user id or a fresh test_user_<ms>_<rand>.
func (c *RunConfig) ConversationUserID() string {
	if c.UserID != "" {
		return c.UserID
	}
	return DefaultUserID()
}

func DefaultUserID() string {
	return fmt.Sprintf("test_user_%d_%s", time.Now().UnixMilli(), random.GetRandomString(5+rand.IntN(3)))
}

package model

import (
	"context"

	"github.com/Laisky/errors/v2"
	"gorm.io/gorm"

	"github.com/gptbots-qa/agent-tester/common/helper"
	"github.com/gptbots-qa/agent-tester/relay/meta"
	relaymodel "github.com/gptbots-qa/agent-tester/relay/model"
)

// Agent is a registered agent endpoint. Only the fields a run needs are modelled.
type Agent struct {
	Id            int    `json:"id"`
	Name          string `json:"name" gorm:"type:varchar(255);not null"`
	APIKey        string `json:"-" gorm:"column:api_key;type:varchar(512);not null"`
	Region        string `json:"region" gorm:"type:varchar(16);default:'SG'"`
	CustomBaseURL string `json:"custom_base_url,omitempty" gorm:"column:custom_base_url;type:varchar(512)"`
	Description   string `json:"description,omitempty" gorm:"type:text"`
	CreatedTime   int64  `json:"created_time" gorm:"bigint"`
	LastUsedTime  int64  `json:"last_used_time" gorm:"bigint"`
}

func (a *Agent) Insert(ctx context.Context) error {
	if a.CreatedTime == 0 {
		a.CreatedTime = helper.GetTimestamp()
	}
	return runWithSQLiteBusyRetry(ctx, func() error {
		return errors.Wrap(DB.WithContext(ctx).Create(a).Error, "insert agent")
	})
}

// GetAgentById returns an AgentReferenceError when id does not exist.
func GetAgentById(ctx context.Context, id int) (*Agent, error) {
	if id <= 0 {
		return nil, &relaymodel.AgentReferenceError{AgentID: id, Reason: "agent id must be positive"}
	}

	agent := new(Agent)
	err := DB.WithContext(ctx).First(agent, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &relaymodel.AgentReferenceError{AgentID: id, Reason: "agent not found"}
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get agent %d", id)
	}
	return agent, nil
}

// Target resolves the agent's routing.
func (a *Agent) Target(endpoints meta.Endpoints) (meta.Target, error) {
	return meta.ResolveTarget(a.Id, a.APIKey, a.Region, a.CustomBaseURL, endpoints)
}

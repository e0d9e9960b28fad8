package model

import (
	"context"

	"github.com/Laisky/errors/v2"
	"github.com/jinzhu/copier"
	"gorm.io/gorm"

	"github.com/gptbots-qa/agent-tester/common/helper"
	"github.com/gptbots-qa/agent-tester/relay/controller"
	relaymodel "github.com/gptbots-qa/agent-tester/relay/model"
	"github.com/gptbots-qa/agent-tester/relay/report"
)

// TestHistory is the persisted record of one finished run. It is written once
// and never updated.
type TestHistory struct {
	Id                int     `json:"id"`
	RunId             string  `json:"run_id" gorm:"type:varchar(64);uniqueIndex"`
	AgentId           int     `json:"agent_id" gorm:"index"`
	AgentName         string  `json:"agent_name" gorm:"type:varchar(255)"`
	Status            string  `json:"status" gorm:"type:varchar(16)"`
	ExecutionMode     string  `json:"execution_mode" gorm:"type:varchar(16)"`
	RPM               int     `json:"rpm" gorm:"column:rpm"`
	Concurrency       int     `json:"concurrency"`
	TotalQuestions    int     `json:"total_questions"`
	PassedCount       int     `json:"passed_count"`
	FailedCount       int     `json:"failed_count"`
	SuccessRate       float64 `json:"success_rate"`
	DurationSeconds   int64   `json:"duration_seconds"`
	AvgResponseTimeMs int64   `json:"avg_response_time_ms"`
	TotalTokens       int64   `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
	ExcelBlob         []byte  `json:"-"`
	MarkdownBlob      []byte  `json:"-"`
	JSONBlob          []byte  `json:"-" gorm:"column:json_blob"`
	StartedAt         int64   `json:"started_at" gorm:"bigint"`
	FinishedAt        int64   `json:"finished_at" gorm:"bigint"`
	CreatedAt         int64   `json:"created_at" gorm:"bigint;autoCreateTime:milli;index"`
}

var blobColumns = []string{"excel_blob", "markdown_blob", "json_blob"}

// HistoryStore persists finished runs; it implements controller.RunPersister.
type HistoryStore struct {
	db *gorm.DB
}

func NewHistoryStore(db *gorm.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// SaveRun stores record and bumps the agent's last-used time in one transaction.
func (s *HistoryStore) SaveRun(ctx context.Context, record *controller.RunRecord) (int, error) {
	history := &TestHistory{}
	if err := copier.Copy(history, &record.Summary); err != nil {
		return 0, errors.Wrap(err, "copy summary")
	}
	history.RunId = record.RunID
	history.AgentId = record.AgentID
	history.AgentName = record.AgentName
	history.Status = string(record.Status)
	history.ExecutionMode = record.Mode.String()
	history.RPM = record.RPM
	history.Concurrency = record.Concurrency
	history.ExcelBlob = record.Reports.Excel
	history.MarkdownBlob = record.Reports.Markdown
	history.JSONBlob = record.Reports.JSON
	history.StartedAt = record.StartedAt.UnixMilli()
	history.FinishedAt = record.FinishedAt.UnixMilli()

	err := runWithSQLiteBusyRetry(ctx, func() error {
		history.Id = 0
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(history).Error; err != nil {
				return errors.Wrap(err, "insert test history")
			}
			if record.AgentID > 0 {
				if err := tx.Model(&Agent{}).Where("id = ?", record.AgentID).
					Update("last_used_time", helper.GetTimestamp()).Error; err != nil {
					return errors.Wrap(err, "update agent last used time")
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, errors.Wrapf(err, "save run %s", record.RunID)
	}
	return history.Id, nil
}

// GetHistoryById returns the record without its report blobs.
func GetHistoryById(ctx context.Context, id int) (*TestHistory, error) {
	history := new(TestHistory)
	err := DB.WithContext(ctx).Omit(blobColumns...).First(history, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrapf(err, "get test history %d", id)
	}
	return history, nil
}

// GetHistoryReport loads one stored artifact. format is one of the report.Format* values.
func GetHistoryReport(ctx context.Context, id int, format string) ([]byte, error) {
	var column string
	switch format {
	case report.FormatExcel:
		column = "excel_blob"
	case report.FormatMarkdown:
		column = "markdown_blob"
	case report.FormatJSON:
		column = "json_blob"
	default:
		return nil, errors.Errorf("unknown report format %q", format)
	}

	history := new(TestHistory)
	err := DB.WithContext(ctx).Select("id", column).First(history, "id = ?", id).Error
	if err != nil {
		return nil, errors.Wrapf(err, "get %s report of history %d", format, id)
	}

	data, _ := report.Artifact(bundleOf(history), format)
	return data, nil
}

func IsRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func bundleOf(h *TestHistory) relaymodel.ReportBundle {
	return relaymodel.ReportBundle{Excel: h.ExcelBlob, Markdown: h.MarkdownBlob, JSON: h.JSONBlob}
}


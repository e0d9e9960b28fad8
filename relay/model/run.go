package model

import (
	"time"

	"github.com/gptbots-qa/agent-tester/relay/execmode"
)

// TestQuestion is one ingested spreadsheet row. Index is the 0-based position
// among the kept rows and ties every result back to its question.
type TestQuestion struct {
	Index           int    `json:"index"`
	Text            string `json:"question"`
	ReferenceOutput string `json:"reference_output"`
}

// ErrorKind classifies a failed agent call.
type ErrorKind string

const (
	ErrorKindTransport             ErrorKind = "transport"
	ErrorKindHTTPStatus            ErrorKind = "http_status"
	ErrorKindMissingConversationID ErrorKind = "missing_conversation_id"
	ErrorKindMalformedPayload      ErrorKind = "malformed_payload"
	ErrorKindEmptyResponse         ErrorKind = "empty_response"
)

// AgentCallOutcome is the result of one create-conversation + send-message exchange.
// ResponseText is meaningful only when Success is true, ErrorMessage only when it is false.
type AgentCallOutcome struct {
	Success        bool      `json:"success"`
	ResponseText   string    `json:"response"`
	ErrorMessage   string    `json:"error"`
	ErrorKind      ErrorKind `json:"error_kind,omitempty"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Tokens         int64     `json:"tokens"`
	Cost           float64   `json:"cost"`
}

// TestResult pairs a question with its outcome. It is created once and never mutated.
type TestResult struct {
	TestQuestion
	AgentCallOutcome
	Timestamp time.Time `json:"timestamp"`
}

// TestRunSummary aggregates a finished run.
type TestRunSummary struct {
	TotalQuestions    int     `json:"total_questions"`
	PassedCount       int     `json:"passed_count"`
	FailedCount       int     `json:"failed_count"`
	SuccessRate       float64 `json:"success_rate"`
	DurationSeconds   int64   `json:"duration_seconds"`
	AvgResponseTimeMs int64   `json:"avg_response_time_ms"`
	TotalTokens       int64   `json:"total_tokens"`
	TotalCost         float64 `json:"total_cost"`
}

// RunMetadata is the descriptive part of a report.
type RunMetadata struct {
	RunID       string        `json:"run_id"`
	AgentName   string        `json:"agent_name"`
	RunDate     time.Time     `json:"run_date"`
	Mode        execmode.Mode `json:"execution_mode"`
	RPM         int           `json:"rpm"`
	Concurrency int           `json:"concurrency"`
	Status      RunStatus     `json:"status"`
}

// ReportBundle holds the three rendered artifacts of one run.
type ReportBundle struct {
	Excel    []byte
	Markdown []byte
	JSON     []byte
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusCancelled, RunStatusFailed:
		return true
	default:
		return false
	}
}

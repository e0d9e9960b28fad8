package model

import (
	"fmt"

	"github.com/Laisky/errors/v2"
)

type IngestionErrorKind string

const (
	IngestionNoInputColumn IngestionErrorKind = "NoInputColumn"
	IngestionEmptyDataset  IngestionErrorKind = "EmptyDataset"
	IngestionUnreadable    IngestionErrorKind = "Unreadable"
	IngestionTooLarge      IngestionErrorKind = "TooLarge"
)

// IngestionError means the uploaded spreadsheet cannot produce a run.
type IngestionError struct {
	Kind IngestionErrorKind
	Err  error
}

func NewIngestionError(kind IngestionErrorKind, format string, args ...any) *IngestionError {
	return &IngestionError{Kind: kind, Err: errors.Errorf(format, args...)}
}

func (e *IngestionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingestion failed: %s", e.Kind)
	}
	return fmt.Sprintf("ingestion failed (%s): %s", e.Kind, e.Err.Error())
}

func (e *IngestionError) Unwrap() error { return e.Err }

// AgentReferenceError means the agent id is unknown or its routing is incomplete.
type AgentReferenceError struct {
	AgentID int
	Reason  string
}

func (e *AgentReferenceError) Error() string {
	if e.AgentID == 0 {
		return "invalid agent reference: " + e.Reason
	}
	return fmt.Sprintf("invalid agent reference %d: %s", e.AgentID, e.Reason)
}

// PersistenceError wraps a failure to store a finished run. The summary and
// reports were computed but are not durable.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return "results computed but not saved: " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func IsIngestionError(err error) bool {
	var target *IngestionError
	return errors.As(err, &target)
}

func IsAgentReferenceError(err error) bool {
	var target *AgentReferenceError
	return errors.As(err, &target)
}

func IsPersistenceError(err error) bool {
	var target *PersistenceError
	return errors.As(err, &target)
}

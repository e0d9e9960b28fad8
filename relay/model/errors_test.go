package model

import (
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"
)

func TestRunBoundaryErrors(t *testing.T) {
	ingestErr := NewIngestionError(IngestionNoInputColumn, "sheet %q has no input column", "Sheet1")
	wrapped := errors.Wrap(ingestErr, "parse upload")

	require.True(t, IsIngestionError(wrapped))
	require.False(t, IsAgentReferenceError(wrapped))
	require.Contains(t, wrapped.Error(), "NoInputColumn")

	var target *IngestionError
	require.True(t, errors.As(wrapped, &target))
	require.Equal(t, IngestionNoInputColumn, target.Kind)

	refErr := &AgentReferenceError{AgentID: 7, Reason: "agent not found"}
	require.True(t, IsAgentReferenceError(errors.WithStack(refErr)))
	require.Equal(t, "invalid agent reference 7: agent not found", refErr.Error())

	cause := errors.New("database is locked")
	persistErr := &PersistenceError{Err: cause}
	require.True(t, IsPersistenceError(persistErr))
	require.ErrorIs(t, persistErr, cause)
	require.Contains(t, persistErr.Error(), "not saved")
}

func TestRunStatusTerminal(t *testing.T) {
	require.False(t, RunStatusPending.Terminal())
	require.False(t, RunStatusRunning.Terminal())
	require.True(t, RunStatusCompleted.Terminal())
	require.True(t, RunStatusCancelled.Terminal())
	require.True(t, RunStatusFailed.Terminal())
}

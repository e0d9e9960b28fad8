package random_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gptbots-qa/agent-tester/common/random"
)

func TestGetUUIDIsUniqueAndCompact(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for range 1000 {
		id := random.GetUUID()
		require.Len(t, id, 32)
		require.NotContains(t, id, "-")
		_, dup := seen[id]
		require.False(t, dup, "duplicate uuid %s", id)
		seen[id] = struct{}{}
	}
}

func TestGetRandomStringAlphabet(t *testing.T) {
	s := random.GetRandomString(64)
	require.Len(t, s, 64)
	for _, r := range s {
		require.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z'), "unexpected rune %q", r)
	}
}

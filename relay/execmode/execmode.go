package execmode

import (
	"strings"

	"github.com/Laisky/errors/v2"
)

// Mode selects how a run schedules its agent calls.
type Mode string

const (
	// Sequential issues one call at a time with a fixed delay derived from rpm.
	Sequential Mode = "sequential"
	// Parallel issues calls in fixed-size batches with a flat pause between batches.
	Parallel Mode = "parallel"
)

// Parse maps a user supplied value to a Mode. Empty input means Sequential.
func Parse(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(Sequential):
		return Sequential, nil
	case string(Parallel):
		return Parallel, nil
	default:
		return "", errors.Errorf("unknown execution mode %q", raw)
	}
}

func (m Mode) String() string { return string(m) }

package opt

import (
	"errors"
	"fmt"
)

// RoundQuota bounds the number of rounds a fixed-point phase may run.
//
// The inliner reaches a fixed point in a bounded number of rounds for any
// finite CFG; the quota only guards against a pathological producer
// graph or a regression in the inliner turning a phase into an endless
// loop.
type RoundQuota struct {
	maxRounds int
	current   int
}

// NewRoundQuota creates a quota allowing maxRounds rounds.
func NewRoundQuota(maxRounds int) *RoundQuota {
	return &RoundQuota{maxRounds: maxRounds}
}

// Check counts one round and fails once the limit is exceeded.
func (q *RoundQuota) Check(phase string) error {
	q.current++
	if q.current > q.maxRounds {
		return &RoundsExceededError{
			Phase:  phase,
			Rounds: q.current,
			Limit:  q.maxRounds,
		}
	}
	return nil
}

// Current returns the number of rounds counted so far.
func (q *RoundQuota) Current() int {
	return q.current
}

// RoundsExceededError is returned when a phase does not converge within
// its quota. The optimizer stops the phase and keeps the (still valid)
// fragment.
type RoundsExceededError struct {
	Phase  string
	Rounds int
	Limit  int
}

// Error implements the error interface.
func (e *RoundsExceededError) Error() string {
	return fmt.Sprintf("phase %s did not converge: %d rounds > %d limit", e.Phase, e.Rounds, e.Limit)
}

// IsRoundsExceededError returns true if err is a RoundsExceededError.
func IsRoundsExceededError(err error) bool {
	var re *RoundsExceededError
	return errors.As(err, &re)
}

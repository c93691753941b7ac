package auth

import (
	"time"

	"wyse/internal/models"
	"wyse/internal/repositories"
)

// Outcome is the result of a single sign-in attempt against the lockout
// state machine.
type Outcome int

const (
	// OutcomeSuccess: passcode matched, counters reset.
	OutcomeSuccess Outcome = iota
	// OutcomeFailure: passcode wrong, attempt counted.
	OutcomeFailure
	// OutcomeLockedNow: this failure reached the limit and locked the account.
	OutcomeLockedNow
	// OutcomeRejected: the account is locked; nothing changes.
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeLockedNow:
		return "locked"
	case OutcomeRejected:
		return "rejected"
	}
	return "unknown"
}

// NextLoginState computes the state after one sign-in attempt at now.
// A lock whose time has passed is treated as Active with one attempt.
func NextLoginState(state repositories.LoginState, matched bool, now time.Time) (repositories.LoginState, Outcome) {
	if state.LockUntil != nil {
		if state.LockUntil.After(now) {
			return state, OutcomeRejected
		}
		state = repositories.LoginState{Attempts: 1}
		if !matched {
			return state, OutcomeFailure
		}
	}

	if matched {
		return repositories.LoginState{}, OutcomeSuccess
	}

	next := repositories.LoginState{Attempts: state.Attempts + 1}
	if next.Attempts >= models.MaxLoginAttempts {
		until := now.Add(models.LockDuration)
		next.LockUntil = &until
		return next, OutcomeLockedNow
	}
	return next, OutcomeFailure
}

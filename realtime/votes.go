// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielhkuo/openfloor/models"
)

// ErrInvalidVoteValue means the submitted value was outside {-1, 0, 1}.
var ErrInvalidVoteValue = errors.New("vote value must be -1, 0, or 1")

// Engine reconciles vote submissions against the persistent tally.
// Each submission is absolute (the voter's current stance), never an
// increment, so replaying the same submission is a no-op.
type Engine struct {
	votes VoteStore
}

func NewEngine(votes VoteStore) *Engine {
	return &Engine{votes: votes}
}

// VoteResult is the outcome of one reconciled submission.
type VoteResult struct {
	Tally   int
	Outcome string
}

// Apply reconciles one submission in a single transaction. The tally
// delta is the difference between the new value and whatever the voter
// had recorded before, so a double-click or a replayed frame cannot
// double-count.
func (e *Engine) Apply(ctx context.Context, argumentID, voterID string, value int) (VoteResult, error) {
	if value < -1 || value > 1 {
		return VoteResult{}, ErrInvalidVoteValue
	}

	tx, err := e.votes.Begin(ctx)
	if err != nil {
		return VoteResult{}, err
	}
	// Rollback after a successful commit is a harmless no-op.
	defer tx.Rollback()

	prior, found, err := tx.FindVote(argumentID, voterID)
	if err != nil {
		return VoteResult{}, err
	}

	delta := value - prior

	var tally int
	if delta == 0 {
		// Idempotent resubmission. Read the tally so the caller still
		// gets an authoritative number, but write nothing.
		tally, err = tx.Tally(argumentID)
		if err != nil {
			return VoteResult{}, err
		}
	} else {
		// The tally update doubles as the existence check: an unknown
		// argument fails here before any vote record is touched.
		tally, err = tx.AddToTally(argumentID, delta)
		if err != nil {
			return VoteResult{}, err
		}
		if value == 0 {
			err = tx.DeleteVote(argumentID, voterID)
		} else {
			err = tx.SaveVote(argumentID, voterID, value)
		}
		if err != nil {
			return VoteResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return VoteResult{}, fmt.Errorf("commit vote: %w", err)
	}

	return VoteResult{Tally: tally, Outcome: classify(prior, found, value)}, nil
}

// classify names the transition for downstream consumers: broadcasts
// fire on every outcome except unchanged, and notifications only on
// firstVote and directionChanged.
func classify(prior int, found bool, value int) string {
	switch {
	case !found && value != 0:
		return models.OutcomeFirstVote
	case found && value == 0:
		return models.OutcomeRemoved
	case found && prior != value && prior*value < 0:
		return models.OutcomeDirectionChanged
	case found && prior != value:
		// A recorded zero would have been deleted, so this arm is only
		// reachable if the store ever persists a 0; treat it as a first
		// real vote either way.
		return models.OutcomeFirstVote
	default:
		return models.OutcomeUnchanged
	}
}

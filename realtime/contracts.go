// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"

	"github.com/danielhkuo/openfloor/models"
)

// Collaborator contracts. The realtime core never talks to storage
// directly; everything durable goes through these interfaces, which
// the store package implements for production and testutil fakes for
// tests.

var ErrNotFound = errors.New("record not found")

// AccountStore resolves a verified credential's user ID to a live
// account. A deleted account returns ErrNotFound, which the gate
// treats as an authentication failure.
type AccountStore interface {
	FindIdentity(ctx context.Context, userID string) (models.Identity, error)
}

// SubjectStore answers existence and lookup questions about votable
// and joinable subjects.
type SubjectStore interface {
	DebateExists(ctx context.Context, debateID string) (bool, error)
	FindArgument(ctx context.Context, argumentID string) (models.Argument, error)
}

// VoteStore opens reconciliation transactions.
type VoteStore interface {
	Begin(ctx context.Context) (VoteTx, error)
}

// VoteTx is one reconciliation unit of work. SaveVote must be an
// upsert resolved by a storage-level uniqueness constraint on
// (argument, voter): when two submissions from the same voter race,
// the second observes the first's row and updates it instead of
// inserting a duplicate. AddToTally must be atomic and return the
// post-increment tally, or ErrNotFound for an unknown subject.
type VoteTx interface {
	FindVote(argumentID, voterID string) (value int, found bool, err error)
	SaveVote(argumentID, voterID string, value int) error
	DeleteVote(argumentID, voterID string) error
	AddToTally(argumentID string, delta int) (int, error)
	Tally(argumentID string) (int, error)
	Commit() error
	Rollback() error
}

// ArgumentService is the CRUD collaborator that persists a statement
// posted over the live channel. Implemented by the handlers package;
// the realtime layer only validates, delegates, and re-broadcasts.
type ArgumentService interface {
	Create(ctx context.Context, author models.Identity, req models.NewArgumentPayload) (models.Argument, error)
}

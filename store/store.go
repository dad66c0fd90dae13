// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielhkuo/openfloor/models"
	"github.com/danielhkuo/openfloor/realtime"
)

// ErrNotFound aliases the realtime sentinel so handlers can match on
// either package's name.
var ErrNotFound = realtime.ErrNotFound

// SQLStore implements the realtime collaborator contracts
// (AccountStore, SubjectStore, VoteStore) over database/sql. The SQL
// sticks to what postgres and sqlite share; placeholders are $1-style,
// which both lib/pq and modernc.org/sqlite accept.
type SQLStore struct {
	db *sql.DB
}

func New(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// FindIdentity resolves a user ID to its account. Returns ErrNotFound
// for deleted or unknown accounts, which the session gate treats as an
// authentication failure even when the credential itself is valid.
func (s *SQLStore) FindIdentity(ctx context.Context, userID string) (models.Identity, error) {
	var identity models.Identity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, role FROM account WHERE id = $1
	`, userID).Scan(&identity.ID, &identity.Username, &identity.Role)
	if err == sql.ErrNoRows {
		return models.Identity{}, ErrNotFound
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("find identity: %w", err)
	}
	return identity, nil
}

// DebateExists reports whether a debate row exists for the given ID.
func (s *SQLStore) DebateExists(ctx context.Context, debateID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM debate WHERE id = $1)
	`, debateID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check debate: %w", err)
	}
	return exists, nil
}

// FindArgument loads an argument with its author's display name.
func (s *SQLStore) FindArgument(ctx context.Context, argumentID string) (models.Argument, error) {
	var arg models.Argument
	err := s.db.QueryRowContext(ctx, `
		SELECT a.id, a.debate_id, a.parent_id, a.author_id, acc.username,
		       a.content, a.side, a.votes, a.created_at, a.updated_at
		FROM argument a
		JOIN account acc ON acc.id = a.author_id
		WHERE a.id = $1
	`, argumentID).Scan(&arg.ID, &arg.DebateID, &arg.ParentID, &arg.AuthorID,
		&arg.Author, &arg.Content, &arg.Side, &arg.Votes, &arg.CreatedAt, &arg.UpdatedAt)
	if err == sql.ErrNoRows {
		return models.Argument{}, ErrNotFound
	}
	if err != nil {
		return models.Argument{}, fmt.Errorf("find argument: %w", err)
	}
	return arg, nil
}

// Begin opens a vote reconciliation transaction. The vote record write
// and the tally increment commit together or not at all.
func (s *SQLStore) Begin(ctx context.Context) (realtime.VoteTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin vote tx: %w", err)
	}
	return &sqlVoteTx{tx: tx}, nil
}

type sqlVoteTx struct {
	tx *sql.Tx
}

func (t *sqlVoteTx) FindVote(argumentID, voterID string) (int, bool, error) {
	var value int
	err := t.tx.QueryRow(`
		SELECT value FROM vote WHERE argument_id = $1 AND voter_id = $2
	`, argumentID, voterID).Scan(&value)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("find vote: %w", err)
	}
	return value, true, nil
}

func (t *sqlVoteTx) SaveVote(argumentID, voterID string, value int) error {
	_, err := t.tx.Exec(`
		INSERT INTO vote (argument_id, voter_id, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (argument_id, voter_id)
		DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, argumentID, voterID, value, time.Now())
	if err != nil {
		return fmt.Errorf("save vote: %w", err)
	}
	return nil
}

func (t *sqlVoteTx) DeleteVote(argumentID, voterID string) error {
	_, err := t.tx.Exec(`
		DELETE FROM vote WHERE argument_id = $1 AND voter_id = $2
	`, argumentID, voterID)
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (t *sqlVoteTx) AddToTally(argumentID string, delta int) (int, error) {
	var tally int
	err := t.tx.QueryRow(`
		UPDATE argument SET votes = votes + $1 WHERE id = $2 RETURNING votes
	`, delta, argumentID).Scan(&tally)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update tally: %w", err)
	}
	return tally, nil
}

func (t *sqlVoteTx) Tally(argumentID string) (int, error) {
	var tally int
	err := t.tx.QueryRow(`
		SELECT votes FROM argument WHERE id = $1
	`, argumentID).Scan(&tally)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read tally: %w", err)
	}
	return tally, nil
}

func (t *sqlVoteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlVoteTx) Rollback() error {
	return t.tx.Rollback()
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS. The SQL sticks to
// the dialect shared by postgres and sqlite so the same schema serves
// production and tests.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Accounts
CREATE TABLE IF NOT EXISTS account (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL DEFAULT 'user',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Debates
CREATE TABLE IF NOT EXISTS debate (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    creator_id TEXT NOT NULL REFERENCES account(id),
    status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'closed')),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_debate_status ON debate(status);

-- Arguments. votes is the cached tally, mutated only through the vote
-- reconciliation engine.
CREATE TABLE IF NOT EXISTS argument (
    id TEXT PRIMARY KEY,
    debate_id TEXT NOT NULL REFERENCES debate(id) ON DELETE CASCADE,
    parent_id TEXT REFERENCES argument(id) ON DELETE CASCADE,
    author_id TEXT NOT NULL REFERENCES account(id),
    content TEXT NOT NULL,
    side TEXT NOT NULL CHECK (side IN ('supporting', 'opposing')),
    votes INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_argument_debate_id ON argument(debate_id);
CREATE INDEX IF NOT EXISTS idx_argument_parent_id ON argument(parent_id);

-- Votes. The composite primary key is the uniqueness constraint the
-- reconciliation engine relies on: at most one live record per
-- (argument, voter) pair, enforced by storage, not application logic.
-- A value of 0 is never stored; removal deletes the row.
CREATE TABLE IF NOT EXISTS vote (
    argument_id TEXT NOT NULL REFERENCES argument(id) ON DELETE CASCADE,
    voter_id TEXT NOT NULL REFERENCES account(id),
    value INTEGER NOT NULL CHECK (value IN (-1, 1)),
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (argument_id, voter_id)
);

CREATE INDEX IF NOT EXISTS idx_vote_voter_id ON vote(voter_id);
`

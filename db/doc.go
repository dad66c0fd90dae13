// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and
indexes. The DDL is restricted to the dialect both postgres (lib/pq)
and sqlite (modernc.org/sqlite) accept, so the same schema backs
production and the in-memory test databases.

# Tables

  - account: Registered users
  - debate: Debate metadata and lifecycle state
  - argument: Statement tree with the cached vote tally
  - vote: One row per (argument, voter) pair

# Relationships

	account 1──* debate
	debate  1──* argument
	argument 1──* argument (replies via parent_id)
	argument 1──* vote

The vote table's composite primary key (argument_id, voter_id) is the
storage-level uniqueness constraint the vote reconciliation engine
depends on; concurrent duplicate submissions resolve to an update, not
a second row.
*/
package db

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store implements the collaborator contracts the realtime core
consumes: account resolution for the session gate, debate/argument
existence checks for the room registry, and the transactional vote
store for the reconciliation engine.

# Contracts

The interfaces themselves (AccountStore, SubjectStore, VoteStore,
VoteTx) are declared in the realtime package next to their consumers;
SQLStore satisfies all of them:

	st := store.New(dbConn)
	hub := realtime.NewHub(st, ...)

# Dialect

Queries use $1-style placeholders and ON CONFLICT upserts, which both
lib/pq (postgres) and modernc.org/sqlite accept, so the same store runs
against the production database and the in-memory test databases.

# Vote Transactions

Begin returns a VoteTx in which the engine reads the prior vote record,
writes or deletes it, and bumps the cached tally. Commit makes the pair
durable together; any failure rolls both back, so the tally can never
drift from the vote records.
*/
package store

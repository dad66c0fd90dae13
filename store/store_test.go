// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/danielhkuo/openfloor/store"
	"github.com/danielhkuo/openfloor/testutil"
)

func TestFindIdentity(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	st := store.New(conn)
	ctx := context.Background()

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")

	identity, err := st.FindIdentity(ctx, alice.ID)
	if err != nil {
		t.Fatalf("FindIdentity: %v", err)
	}
	if identity.Username != "alice" || identity.Role != "user" {
		t.Errorf("unexpected identity: %+v", identity)
	}

	if _, err := st.FindIdentity(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown account should return ErrNotFound, got %v", err)
	}
}

func TestDebateExists(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	st := store.New(conn)
	ctx := context.Background()

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")

	exists, err := st.DebateExists(ctx, debateID)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("created debate should exist")
	}

	exists, err = st.DebateExists(ctx, "missing")
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("missing debate should not exist")
	}
}

func TestFindArgumentJoinsAuthor(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	st := store.New(conn)
	ctx := context.Background()

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")
	argumentID := testutil.CreateTestArgument(t, conn, debateID, alice.ID, "a claim")

	arg, err := st.FindArgument(ctx, argumentID)
	if err != nil {
		t.Fatalf("FindArgument: %v", err)
	}
	if arg.Author != "alice" {
		t.Errorf("author = %q, want alice", arg.Author)
	}
	if arg.Content != "a claim" || arg.Votes != 0 {
		t.Errorf("unexpected argument: %+v", arg)
	}

	if _, err := st.FindArgument(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown argument should return ErrNotFound, got %v", err)
	}
}

func TestVoteTxUpsertAndTally(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	st := store.New(conn)
	ctx := context.Background()

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")
	argumentID := testutil.CreateTestArgument(t, conn, debateID, alice.ID, "a claim")

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if _, found, err := tx.FindVote(argumentID, alice.ID); err != nil || found {
		t.Fatalf("fresh vote lookup: found=%v err=%v", found, err)
	}

	if err := tx.SaveVote(argumentID, alice.ID, 1); err != nil {
		t.Fatalf("SaveVote: %v", err)
	}
	// Upsert onto the same (argument, voter) pair replaces the value.
	if err := tx.SaveVote(argumentID, alice.ID, -1); err != nil {
		t.Fatalf("SaveVote upsert: %v", err)
	}
	value, found, err := tx.FindVote(argumentID, alice.ID)
	if err != nil || !found || value != -1 {
		t.Fatalf("after upsert: value=%d found=%v err=%v", value, found, err)
	}

	tally, err := tx.AddToTally(argumentID, -1)
	if err != nil {
		t.Fatalf("AddToTally: %v", err)
	}
	if tally != -1 {
		t.Errorf("tally = %d, want -1", tally)
	}

	if _, err := tx.AddToTally("missing", 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("tally on unknown argument should return ErrNotFound, got %v", err)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var persisted int
	if err := conn.QueryRow(`SELECT votes FROM argument WHERE id = $1`, argumentID).Scan(&persisted); err != nil {
		t.Fatal(err)
	}
	if persisted != -1 {
		t.Errorf("persisted tally = %d, want -1", persisted)
	}
}

func TestVoteTxRollback(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	st := store.New(conn)
	ctx := context.Background()

	alice, _ := testutil.CreateTestAccount(t, conn, "alice")
	debateID := testutil.CreateTestDebate(t, conn, alice.ID, "Debate")
	argumentID := testutil.CreateTestArgument(t, conn, debateID, alice.ID, "a claim")

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.SaveVote(argumentID, alice.ID, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := tx.AddToTally(argumentID, 1); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM vote`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("rollback should discard the vote record, found %d", count)
	}
	var tally int
	if err := conn.QueryRow(`SELECT votes FROM argument WHERE id = $1`, argumentID).Scan(&tally); err != nil {
		t.Fatal(err)
	}
	if tally != 0 {
		t.Errorf("rollback should discard the tally change, got %d", tally)
	}
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db implements the durable store on PostgreSQL (lib/pq) or SQLite
(modernc.org/sqlite).

# Opening

Open connects, pings, and creates the schema:

	st, err := db.Open(ctx, "postgres", "postgres://...")
	defer st.Close()

SQLite connections open transactions with BEGIN IMMEDIATE and use a single
pooled connection, so writers queue rather than conflict.

# Schema Creation

CreateSchema is safe to call multiple times - uses IF NOT EXISTS for all
tables and indexes.

# Tables

  - campaign: lifecycle state, time window, total_votes, event_seq
  - candidate: per-campaign candidates with vote_count
  - elector: voting units with a fixed quota
  - quota_ledger: votes consumed per (campaign, elector)
  - ballot: immutable accepted votes with provenance

# Relationships

	campaign 1──* candidate
	campaign 1──* quota_ledger *──1 elector
	campaign 1──* ballot *──1 elector

# Counters

Tallies and ledger entries change only through single-statement
increments (x = x + 1 ... RETURNING). The ledger increment is
conditional on consumed < quota; when the condition fails the statement
returns no row and the transaction reports store.ErrWriteConflict.

Every mutation of a campaign bumps event_seq, which orders broadcast
events for that campaign.

# Errors

Driver errors are classified onto the store sentinels:

  - serialization failure, deadlock, SQLITE_BUSY, SQLITE_LOCKED → store.ErrWriteConflict
  - unique, check, and foreign key violations → store.ErrConstraint
  - sql.ErrNoRows → store.ErrNotFound
*/
package db

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dbType string) error {
	d, err := dialectFor(dbType)
	if err != nil {
		return err
	}

	_, err = db.Exec(strings.ReplaceAll(schema, "{{timestamp}}", d.timestampType))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Campaigns
CREATE TABLE IF NOT EXISTS campaign (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    state TEXT NOT NULL DEFAULT 'created' CHECK (state IN ('created', 'enabled', 'closed')),
    start_time {{timestamp}},
    end_time {{timestamp}} NOT NULL,
    total_votes BIGINT NOT NULL DEFAULT 0 CHECK (total_votes >= 0),
    event_seq BIGINT NOT NULL DEFAULT 0,
    created_at {{timestamp}} NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaign_state ON campaign(state);

-- Candidates
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    position INTEGER NOT NULL,
    vote_count BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0)
);

CREATE INDEX IF NOT EXISTS idx_candidate_campaign_id ON candidate(campaign_id);

-- Electors
CREATE TABLE IF NOT EXISTS elector (
    id TEXT PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    quota INTEGER NOT NULL CHECK (quota > 0),
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at {{timestamp}} NOT NULL
);

-- Quota Ledger
CREATE TABLE IF NOT EXISTS quota_ledger (
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    elector_id TEXT NOT NULL REFERENCES elector(id),
    consumed INTEGER NOT NULL CHECK (consumed >= 0),
    PRIMARY KEY (campaign_id, elector_id)
);

-- Ballots
CREATE TABLE IF NOT EXISTS ballot (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id),
    elector_id TEXT NOT NULL REFERENCES elector(id),
    candidate_id TEXT NOT NULL REFERENCES candidate(id),
    cast_at {{timestamp}} NOT NULL,
    ip_hash TEXT,
    user_agent TEXT
);

CREATE INDEX IF NOT EXISTS idx_ballot_campaign_elector ON ballot(campaign_id, elector_id);
`

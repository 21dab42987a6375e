// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the quota-vote API server.

quota-vote runs time-boxed voting campaigns. Each elector holds a fixed
vote quota per campaign and may spend it on any candidates; tallies are
pushed live to websocket subscribers.

# Starting the Server

The server reads environment variables (and a .env file when present) or
CLI flags:

	DATABASE_URL=file:votes.db SESSION_SECRET=... IP_HASH_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - SESSION_SECRET (--session-secret): HS256 signing secret for sessions
  - IP_HASH_SALT (--ip-salt): Salt for hashing voter IPs on ballots

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - LOG_LEVEL (--log-level): debug, info, warn or error
  - OTEL_ENDPOINT: OTLP/HTTP collector; tracing is off when empty
  - VOTE_MAX_ATTEMPTS, VOTE_TIMEOUT: vote transaction retry budget
  - OBSERVER_QUEUE_SIZE, ORDER_GAP_TIMEOUT: broadcast tuning
  - EXPIRY_SWEEP_INTERVAL: how often expired campaigns are closed

Admin tokens are minted with cmd/tokengen.

# Architecture

  - campaign: state machine, lazy expiry and the expiry sweeper
  - ledger: per-campaign quota accounting
  - vote: the vote transaction coordinator
  - broadcast: ordered per-campaign event fan-out
  - handlers, router, middleware: HTTP and websocket surface
  - store, db: transactional storage on SQLite or PostgreSQL
  - auth: session tokens, IDs and IP hashing
  - apperrors, logging, telemetry, cliparse: ambient support

See package documentation for each component.
*/
package main

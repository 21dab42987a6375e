// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	if err := cliparse.LoadDotEnv(); err != nil { ... }
	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadDotEnv reads a .env file when present; variables already set in the
environment win over the file.

# Environment Variables

Parsed with caarlos0/env struct tags:

	PORT                         (default 3318)
	DATABASE_URL                 (required)
	DATABASE_TYPE                sqlite | postgres (default sqlite)
	SESSION_SECRET               (required)
	IP_HASH_SALT                 (required)
	LOG_LEVEL                    (default info)
	OTEL_ENDPOINT                tracing disabled when empty
	VOTE_MAX_ATTEMPTS            (default 3)
	VOTE_TIMEOUT                 (default 5s)
	OBSERVER_QUEUE_SIZE          (default 64)
	ORDER_GAP_TIMEOUT            (default 250ms)
	SESSION_REVALIDATE_INTERVAL  (default 1m)
	WS_PING_INTERVAL             (default 30s)
	EXPIRY_SWEEP_INTERVAL        (default 30s)

# CLI Flags

	-p               Server port
	-d               Database URL
	-t               Database type
	-log-level       Log level
	-session-secret  Session signing secret
	-ip-salt         IP hash salt
	-vote-attempts   Max transaction attempts per vote
	-vote-timeout    Store timeout per vote

CLI flags take precedence over environment variables.
*/
package cliparse

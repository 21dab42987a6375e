// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command tokengen mints session tokens signed with SESSION_SECRET.
//
//	tokengen -role admin
//	tokengen -role elector -elector <id> -ttl 2h
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/danielhkuo/quota-vote/auth"
	"github.com/danielhkuo/quota-vote/cliparse"
	"github.com/danielhkuo/quota-vote/models"
)

type config struct {
	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("tokengen failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if err := cliparse.LoadDotEnv(); err != nil {
		return err
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("tokengen", flag.ContinueOnError)
	role := fs.String("role", models.RoleAdmin, "Session role (admin or elector)")
	electorID := fs.String("elector", "", "Elector ID for elector sessions")
	fs.DurationVar(&cfg.SessionTTL, "ttl", cfg.SessionTTL, "Token lifetime")
	fs.StringVar(&cfg.SessionSecret, "session-secret", cfg.SessionSecret, "Session signing secret (prefer env)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sessions, err := auth.NewSessions(cfg.SessionSecret)
	if err != nil {
		return err
	}
	token, err := sessions.Issue(*role, *electorID, cfg.SessionTTL)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}

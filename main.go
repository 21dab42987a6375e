// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/quota-vote/broadcast"
	"github.com/danielhkuo/quota-vote/campaign"
	"github.com/danielhkuo/quota-vote/cliparse"
	"github.com/danielhkuo/quota-vote/db"
	"github.com/danielhkuo/quota-vote/logging"
	"github.com/danielhkuo/quota-vote/middleware"
	"github.com/danielhkuo/quota-vote/router"
	"github.com/danielhkuo/quota-vote/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := cliparse.LoadDotEnv(); err != nil {
		slog.Error("Error loading .env", "error", err)
		return err
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		return err
	}

	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			slog.Warn("tracer shutdown failed", "error", err)
		}
	}()

	// Connect and create schema
	st, err := db.Open(ctx, cfg.DatabaseType, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer st.Close()
	slog.Info("Database schema ready", "type", cfg.DatabaseType)

	hub := broadcast.NewHub(broadcast.Options{
		QueueSize:  cfg.ObserverQueueSize,
		GapTimeout: cfg.OrderGapTimeout,
	})
	defer hub.Close()

	deps, err := router.NewDeps(st, hub, nil, cfg)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           middleware.CORS(router.NewRouter(deps)),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return campaign.NewSweeper(deps.Campaigns, cfg.ExpirySweepInterval).Run(gctx)
	})

	g.Go(func() error {
		// Wait for Ctrl-C or a failed sibling
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(sctx)
	})

	err = g.Wait()
	slog.Info("Server closed", "error", err)
	return err
}

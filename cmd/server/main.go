// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

// Package main is the entry point for the advisor server.
//
// The server initializes components in the following order:
//
//  1. Configuration: koanf layers defaults, config.yaml and ADVISOR_*
//     environment variables
//  2. Stores: DuckDB for courses and profiles, BadgerDB for chat
//     transcripts
//  3. Catalog cache and embedding index, connected by an in-process
//     event bus
//  4. Generation client: circuit breaker, retries, concurrency bound
//  5. Recommendation engine and chat service
//  6. Supervisor tree: catalog refresh loop, index rebuilder and HTTP
//     server under suture supervision
//
// Shutdown is graceful on SIGINT and SIGTERM: the HTTP server drains
// in-flight requests before the stores are closed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	app, err := buildApplication(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("startup failed")
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().
		Str("addr", app.server.Addr).
		Msg("advisor starting")

	if err := app.tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
	}

	logging.Info().Msg("advisor stopped")
}

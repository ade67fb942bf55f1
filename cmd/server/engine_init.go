// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/tiggyapp/advisor/internal/api"
	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/config"
	"github.com/tiggyapp/advisor/internal/conversation"
	"github.com/tiggyapp/advisor/internal/embedding"
	"github.com/tiggyapp/advisor/internal/genai"
	"github.com/tiggyapp/advisor/internal/logging"
	"github.com/tiggyapp/advisor/internal/recommend"
	"github.com/tiggyapp/advisor/internal/store"
	"github.com/tiggyapp/advisor/internal/supervisor"
	"github.com/tiggyapp/advisor/internal/supervisor/services"
)

// application holds the wired component graph and its closers.
type application struct {
	tree    *supervisor.Tree
	server  *http.Server
	db      *store.DuckDBStore
	scripts *store.BadgerTranscriptStore
	pubsub  interface{ Close() error }
}

// Close releases resources in reverse dependency order.
func (a *application) Close() {
	if err := a.pubsub.Close(); err != nil {
		logging.Warn().Err(err).Msg("close event bus")
	}
	if err := a.scripts.Close(); err != nil {
		logging.Warn().Err(err).Msg("close transcript store")
	}
	if err := a.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("close catalog store")
	}
}

// buildApplication wires every component from configuration.
func buildApplication(cfg *config.Config) (*application, error) {
	db, err := store.OpenDuckDB(cfg.Store.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog store: %w", err)
	}

	transcripts, err := store.OpenBadgerTranscripts(cfg.Store.TranscriptPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open transcript store: %w", err)
	}

	pubsub := catalog.NewPubSub()
	cache := catalog.NewCache(db, cfg.Catalog.TTL, pubsub)
	index := embedding.NewIndex(cfg.Embedding.Dimension)

	client := genai.NewClient(cfg.GenAI)
	engine := recommend.NewEngine(cache, index, client, cfg.Recommend, cfg.Embedding.SearchK)

	builder := conversation.NewBuilder(cfg.Chat, cache, index, client)
	chats := conversation.NewService(transcripts, db, builder, client)

	handler := api.NewHandler(engine, chats, db, cache)
	router := api.NewRouter(cfg.Server, handler)

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree := supervisor.NewTree(slog.New(slog.NewJSONHandler(logging.Logger(), nil)), treeCfg)

	tree.AddEngineService(services.NewCatalogService(cache, cfg.Catalog.TTL))
	tree.AddEngineService(embedding.NewRebuilder(pubsub, cache, index))
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))

	return &application{
		tree:    tree,
		server:  server,
		db:      db,
		scripts: transcripts,
		pubsub:  pubsub,
	}, nil
}

// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package services

import (
	"context"
	"time"

	"github.com/tiggyapp/advisor/internal/catalog"
	"github.com/tiggyapp/advisor/internal/logging"
)

// CatalogService refreshes the catalog cache on its TTL. Failed
// refreshes are logged and retried on the next tick; the cache keeps
// serving the previous snapshot meanwhile.
type CatalogService struct {
	cache    *catalog.Cache
	interval time.Duration
}

// NewCatalogService creates the periodic refresh service.
func NewCatalogService(cache *catalog.Cache, interval time.Duration) *CatalogService {
	return &CatalogService{cache: cache, interval: interval}
}

// Serve refreshes immediately, then on every interval tick until the
// context is cancelled.
func (s *CatalogService) Serve(ctx context.Context) error {
	if err := s.cache.Refresh(ctx); err != nil {
		logging.Error().Err(err).Msg("initial catalog refresh failed")
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.cache.Refresh(ctx); err != nil {
				logging.Error().Err(err).Msg("catalog refresh failed, serving stale snapshot")
			}
		}
	}
}

// String names the service in supervisor logs.
func (s *CatalogService) String() string {
	return "catalog-refresh"
}

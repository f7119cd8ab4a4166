package services

import (
	"context"

	"brent-dashboard-api/internal/models"
)

// Source provides the two upstream resources a dashboard is built from.
type Source interface {
	FetchData(ctx context.Context) (*models.DataPayload, error)
	FetchAnalysis(ctx context.Context) (*models.ChangePointAnalysis, error)
}

// PairCache serves and stores the data and analysis payloads as one unit,
// so a load never mixes halves fetched at different times.
type PairCache interface {
	Cached(ctx context.Context) (Payloads, bool)
	Store(ctx context.Context, p Payloads)
}

// CachedSource wraps a Source with a CacheService. Fetches always go
// upstream; the Loader consults Cached first and calls Store after both
// fetches succeed.
type CachedSource struct {
	Source
	cache *CacheService
	key   string
}

// NewCachedSource wraps source. baseURL scopes the cache key.
func NewCachedSource(source Source, cache *CacheService, baseURL string) *CachedSource {
	return &CachedSource{
		Source: source,
		cache:  cache,
		key:    payloadKey("payloads", baseURL),
	}
}

func (s *CachedSource) Cached(ctx context.Context) (Payloads, bool) {
	return s.cache.GetPayloads(ctx, s.key)
}

func (s *CachedSource) Store(ctx context.Context, p Payloads) {
	if err := s.cache.SetPayloads(ctx, s.key, p); err != nil {
		s.cache.logger.Warn().Err(err).Str("key", s.key).Msg("Failed to mirror payloads")
	}
}

package services

import (
	"context"
	"crypto/md5"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"

	"brent-dashboard-api/internal/config"
	"brent-dashboard-api/internal/models"
)

const payloadCollection = "dashboard_payloads"

// Generic in-memory cache with type safety. A zero TTL disables it.
type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]*cacheItem[V]
	ttl   time.Duration
	stop  chan struct{}
	once  sync.Once
}

type cacheItem[V any] struct {
	value      V
	expiration time.Time
}

func NewCache[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	c := &Cache[K, V]{
		items: make(map[K]*cacheItem[V]),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}

	if ttl > 0 {
		go c.cleanup(cleanupInterval(ttl))
	}

	return c
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if ttl < 5*time.Minute {
		return ttl
	}
	return 5 * time.Minute
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, exists := c.items[key]
	if !exists || time.Now().After(item.expiration) {
		var zero V
		return zero, false
	}

	return item.value, true
}

func (c *Cache[K, V]) Set(key K, value V) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = &cacheItem[V]{
		value:      value,
		expiration: time.Now().Add(c.ttl),
	}
}

// Clear drops every entry.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[K]*cacheItem[V])
}

// Close stops the cleanup goroutine.
func (c *Cache[K, V]) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiration) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// Payloads is one upstream data payload together with the analysis that
// was fetched alongside it.
type Payloads struct {
	Data     *models.DataPayload
	Analysis *models.ChangePointAnalysis
}

type payloadsDoc struct {
	Data      models.DataPayload         `firestore:"data"`
	Analysis  models.ChangePointAnalysis `firestore:"analysis"`
	FetchedAt time.Time                  `firestore:"fetched_at"`
}

// CacheService keeps validated upstream payload pairs in memory and, when
// configured, mirrors them to Firestore. Data and analysis are stored and
// expire together.
type CacheService struct {
	firestoreClient *firestore.Client
	ttl             time.Duration
	logger          zerolog.Logger
	payloads        *Cache[string, Payloads]
}

func NewCacheService(cfg *config.Config, logger zerolog.Logger) *CacheService {
	var client *firestore.Client
	if cfg.FirestoreProject != "" && cfg.CacheTTL > 0 {
		var err error
		client, err = firestore.NewClient(context.Background(), cfg.FirestoreProject)
		if err != nil {
			// in-memory only
			logger.Warn().Err(err).Str("project", cfg.FirestoreProject).Msg("Failed to initialize Firestore")
			client = nil
		}
	}
	return newCacheService(client, cfg.CacheTTL, logger)
}

func newCacheService(client *firestore.Client, ttl time.Duration, logger zerolog.Logger) *CacheService {
	return &CacheService{
		firestoreClient: client,
		ttl:             ttl,
		logger:          logger,
		payloads:        NewCache[string, Payloads](ttl),
	}
}

// Enabled reports whether payloads are cached at all.
func (s *CacheService) Enabled() bool {
	return s.ttl > 0
}

// GetPayloads retrieves a cached payload pair.
func (s *CacheService) GetPayloads(ctx context.Context, key string) (Payloads, bool) {
	if p, found := s.payloads.Get(key); found {
		return p, true
	}

	if s.firestoreClient != nil {
		doc, err := s.firestoreClient.Collection(payloadCollection).Doc(key).Get(ctx)
		if err == nil {
			var stored payloadsDoc
			if err := doc.DataTo(&stored); err == nil && time.Since(stored.FetchedAt) < s.ttl &&
				stored.Analysis.Before != nil && stored.Analysis.After != nil {
				p := Payloads{Data: &stored.Data, Analysis: &stored.Analysis}
				s.payloads.Set(key, p)
				return p, true
			}
		}
	}

	return Payloads{}, false
}

// SetPayloads stores a payload pair. Both halves must be non-nil.
func (s *CacheService) SetPayloads(ctx context.Context, key string, p Payloads) error {
	if p.Data == nil || p.Analysis == nil {
		return fmt.Errorf("incomplete payload pair for %s", key)
	}
	s.payloads.Set(key, p)

	if s.firestoreClient != nil {
		_, err := s.firestoreClient.Collection(payloadCollection).Doc(key).Set(ctx, payloadsDoc{
			Data:      *p.Data,
			Analysis:  *p.Analysis,
			FetchedAt: time.Now(),
		})
		return err
	}

	return nil
}

// Clear drops the in-memory entries. Firestore documents expire by TTL.
func (s *CacheService) Clear() {
	s.payloads.Clear()
}

// Close stops the cache and closes the Firestore client
func (s *CacheService) Close() error {
	s.payloads.Close()
	if s.firestoreClient != nil {
		return s.firestoreClient.Close()
	}
	return nil
}

// payloadKey derives a stable document ID for a resource of an upstream.
func payloadKey(kind, baseURL string) string {
	return fmt.Sprintf("%s-%x", kind, md5.Sum([]byte(baseURL)))
}

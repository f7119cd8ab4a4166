package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/logging"
)

// DashboardService owns the current session. A reload publishes a new
// session wholesale; a settled session is never reused.
type DashboardService struct {
	loader  dashboard.ModelLoader
	cache   *CacheService
	logger  zerolog.Logger
	current atomic.Pointer[dashboard.Session]
	wg      sync.WaitGroup
}

// NewDashboardService creates the service with a session in Loading that
// has not started yet. cache may be nil.
func NewDashboardService(loader dashboard.ModelLoader, cache *CacheService, logger zerolog.Logger) *DashboardService {
	s := &DashboardService{
		loader: loader,
		cache:  cache,
		logger: logger,
	}
	s.current.Store(dashboard.NewSession())
	return s
}

// Start publishes a fresh session and loads it in the background. The
// load outlives ctx cancellation but keeps its values.
func (s *DashboardService) Start(ctx context.Context) *dashboard.Session {
	session := dashboard.NewSession()
	s.current.Store(session)

	log := logging.WithSession(s.logger, session.ID())
	loadCtx := logging.WithLogger(context.WithoutCancel(ctx), log)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		log.Info().Msg("Session loading")
		snap := session.Run(loadCtx, s.loader)
		if snap.State == dashboard.Failed {
			log.Error().Err(snap.Err).Msg("Session failed")
			return
		}
		log.Info().Msg("Session ready")
	}()

	return session
}

// Reload drops cached payloads and starts a new session.
func (s *DashboardService) Reload(ctx context.Context) *dashboard.Session {
	if s.cache != nil {
		s.cache.Clear()
	}
	return s.Start(ctx)
}

// LoadAndWait starts a session and blocks until it settles or ctx ends.
func (s *DashboardService) LoadAndWait(ctx context.Context) (dashboard.Snapshot, error) {
	session := s.Start(ctx)
	select {
	case <-session.Done():
		return session.Snapshot(), nil
	case <-ctx.Done():
		return session.Snapshot(), ctx.Err()
	}
}

// Current returns a snapshot of the current session.
func (s *DashboardService) Current() dashboard.Snapshot {
	return s.current.Load().Snapshot()
}

// Wait blocks until every background load has returned.
func (s *DashboardService) Wait() {
	s.wg.Wait()
}

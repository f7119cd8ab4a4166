package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/logging"
	"brent-dashboard-api/internal/models"
)

// Loader fetches both upstream resources concurrently and builds the
// dashboard model. Either both fetches succeed or the load fails.
type Loader struct {
	source  Source
	timeout time.Duration
	logger  zerolog.Logger
}

func NewLoader(source Source, timeout time.Duration, logger zerolog.Logger) *Loader {
	return &Loader{
		source:  source,
		timeout: timeout,
		logger:  logging.WithOperation(logger, "load"),
	}
}

// Load implements dashboard.ModelLoader. Failures are always *dashboard.LoadError.
func (l *Loader) Load(ctx context.Context) (*dashboard.Model, error) {
	start := time.Now()
	log := l.logger
	if ctxLog := logging.FromContext(ctx); ctxLog.GetLevel() != zerolog.Disabled {
		log = logging.WithOperation(ctxLog, "load")
	}

	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	cache, cached := l.source.(PairCache)
	if cached {
		if p, hit := cache.Cached(ctx); hit {
			log.Debug().Msg("Serving payloads from cache")
			return l.build(log, start, p.Data, p.Analysis), nil
		}
	}

	var (
		data     *models.DataPayload
		analysis *models.ChangePointAnalysis
	)

	// The first failure cancels gctx and with it the sibling fetch.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d, err := l.source.FetchData(gctx)
		if err != nil {
			return err
		}
		if d == nil {
			return dashboard.NewMalformedPayloadError("data", errors.New("empty payload"))
		}
		data = d
		return nil
	})
	g.Go(func() error {
		a, err := l.source.FetchAnalysis(gctx)
		if err != nil {
			return err
		}
		if a == nil {
			return dashboard.NewMalformedPayloadError("analysis", errors.New("empty payload"))
		}
		analysis = a
		return nil
	})

	if err := g.Wait(); err != nil {
		loadErr := dashboard.AsLoadError(err)
		log.Error().
			Err(loadErr).
			Str("kind", loadErr.Kind.String()).
			Dur("duration", time.Since(start)).
			Msg("Dashboard load failed")
		return nil, loadErr
	}

	if cached {
		cache.Store(ctx, Payloads{Data: data, Analysis: analysis})
	}

	return l.build(log, start, data, analysis), nil
}

func (l *Loader) build(log zerolog.Logger, start time.Time, data *models.DataPayload, analysis *models.ChangePointAnalysis) *dashboard.Model {
	model := dashboard.NewModel(data.Prices, data.Events, analysis)

	for _, miss := range model.MissingJoins() {
		log.Warn().
			Str("kind", string(miss.Kind)).
			Str("date", string(miss.Date)).
			Msg("Date has no price, marker degraded")
	}

	log.Info().
		Int("prices", len(data.Prices)).
		Int("events", len(data.Events)).
		Str("change_point", string(analysis.ChangePointDate)).
		Dur("duration", time.Since(start)).
		Msg("Dashboard loaded")

	return model
}

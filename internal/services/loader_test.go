package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"brent-dashboard-api/internal/dashboard"
	"brent-dashboard-api/internal/models"
)

// fakeSource returns canned payloads. A fetch with block set waits for
// its context to end before returning.
type fakeSource struct {
	data         *models.DataPayload
	analysis     *models.ChangePointAnalysis
	dataErr      error
	analysisErr  error
	blockData    bool
	dataCalls    atomic.Int32
	analysisCall atomic.Int32
}

func (f *fakeSource) FetchData(ctx context.Context) (*models.DataPayload, error) {
	f.dataCalls.Add(1)
	if f.blockData {
		<-ctx.Done()
		return nil, dashboard.NewNetworkError("/api/data", ctx.Err())
	}
	return f.data, f.dataErr
}

func (f *fakeSource) FetchAnalysis(ctx context.Context) (*models.ChangePointAnalysis, error) {
	f.analysisCall.Add(1)
	return f.analysis, f.analysisErr
}

func sampleData() *models.DataPayload {
	return &models.DataPayload{
		Prices: []models.PricePoint{
			{Date: "2020-01-01", Price: 60.0},
			{Date: "2020-01-02", Price: 61.5},
		},
		Events: []models.MarketEvent{
			{Date: "2020-01-02", Type: "OPEC", Description: "Output cut announced"},
			{Date: "2020-01-03", Type: "Conflict", Description: "Weekend event"},
		},
	}
}

func sampleAnalysis() *models.ChangePointAnalysis {
	return &models.ChangePointAnalysis{
		ChangePointDate: "2020-01-02",
		Before:          &models.PeriodStats{MeanPrice: 60, Volatility: 1},
		After:           &models.PeriodStats{MeanPrice: 61.5, Volatility: 1.5},
	}
}

func TestLoader_Success(t *testing.T) {
	src := &fakeSource{data: sampleData(), analysis: sampleAnalysis()}
	loader := NewLoader(src, time.Second, zerolog.Nop())

	model, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(model.Prices()); got != 2 {
		t.Errorf("len(Prices) = %d, want 2", got)
	}
	if a, ok := model.Analysis(); !ok || a.ChangePointDate != "2020-01-02" {
		t.Errorf("Analysis() = %+v, %v", a, ok)
	}
	if got := len(model.EventsByDate()["2020-01-03"]); got != 1 {
		t.Errorf("events on 2020-01-03 = %d, want 1", got)
	}
	if price, ok := model.PriceByDate().At("2020-01-02"); !ok || price != 61.5 {
		t.Errorf("price on 2020-01-02 = %v, %v", price, ok)
	}
	if src.dataCalls.Load() != 1 || src.analysisCall.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", src.dataCalls.Load(), src.analysisCall.Load())
	}
}

func TestLoader_Failures(t *testing.T) {
	tests := []struct {
		name      string
		src       *fakeSource
		malformed bool
	}{
		{
			name: "data network error",
			src: &fakeSource{
				dataErr:  dashboard.NewNetworkError("/api/data", errors.New("connection refused")),
				analysis: sampleAnalysis(),
			},
		},
		{
			name: "analysis malformed",
			src: &fakeSource{
				data:        sampleData(),
				analysisErr: dashboard.NewMalformedPayloadError("/api/analysis", errors.New("missing before")),
			},
			malformed: true,
		},
		{
			name: "unclassified error",
			src: &fakeSource{
				dataErr:  errors.New("boom"),
				analysis: sampleAnalysis(),
			},
		},
		{
			name:      "nil payload",
			src:       &fakeSource{analysis: sampleAnalysis()},
			malformed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model, err := NewLoader(tt.src, time.Second, zerolog.Nop()).Load(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if model != nil {
				t.Error("failed load must not return a model")
			}
			var loadErr *dashboard.LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("err = %T, want *dashboard.LoadError", err)
			}
			if tt.malformed != dashboard.IsMalformed(err) {
				t.Errorf("IsMalformed = %v, want %v (err = %v)", dashboard.IsMalformed(err), tt.malformed, err)
			}
		})
	}
}

func TestLoader_FailFastCancelsSibling(t *testing.T) {
	src := &fakeSource{
		blockData:   true,
		analysisErr: dashboard.NewMalformedPayloadError("/api/analysis", errors.New("bad")),
	}
	loader := NewLoader(src, 10*time.Second, zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		if !dashboard.IsMalformed(err) {
			t.Errorf("err = %v, want the first (malformed) failure", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Load did not return after the sibling fetch failed")
	}
}

func TestLoader_Timeout(t *testing.T) {
	src := &fakeSource{blockData: true, analysis: sampleAnalysis()}
	loader := NewLoader(src, 50*time.Millisecond, zerolog.Nop())

	_, err := loader.Load(context.Background())
	if !dashboard.IsNetwork(err) {
		t.Errorf("err = %v, want network error", err)
	}
}

func TestLoader_CachesPayloadPair(t *testing.T) {
	src := &fakeSource{data: sampleData(), analysis: sampleAnalysis()}
	cache := newCacheService(nil, time.Minute, zerolog.Nop())
	defer cache.Close()
	loader := NewLoader(NewCachedSource(src, cache, "http://127.0.0.1:5000"), time.Second, zerolog.Nop())

	for i := 0; i < 3; i++ {
		model, err := loader.Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := len(model.Prices()); got != 2 {
			t.Errorf("len(Prices) = %d, want 2", got)
		}
	}

	if got := src.dataCalls.Load(); got != 1 {
		t.Errorf("upstream data calls = %d, want 1", got)
	}
	if got := src.analysisCall.Load(); got != 1 {
		t.Errorf("upstream analysis calls = %d, want 1", got)
	}

	cache.Clear()
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if d, a := src.dataCalls.Load(), src.analysisCall.Load(); d != 2 || a != 2 {
		t.Errorf("upstream calls after Clear = %d/%d, want 2/2", d, a)
	}
}

func TestLoader_DoesNotCacheHalfALoad(t *testing.T) {
	src := &fakeSource{
		data:        sampleData(),
		analysisErr: dashboard.NewNetworkError("/api/analysis", errors.New("down")),
	}
	cache := newCacheService(nil, time.Minute, zerolog.Nop())
	defer cache.Close()
	cached := NewCachedSource(src, cache, "http://127.0.0.1:5000")
	loader := NewLoader(cached, time.Second, zerolog.Nop())

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if _, hit := cached.Cached(context.Background()); hit {
		t.Fatal("a failed load must not leave a cached pair")
	}

	// Once analysis recovers, both halves come from the same fetch.
	src.analysisErr = nil
	src.analysis = sampleAnalysis()
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := src.dataCalls.Load(); got != 2 {
		t.Errorf("upstream data calls = %d, want 2", got)
	}
	p, hit := cached.Cached(context.Background())
	if !hit || p.Data == nil || p.Analysis == nil {
		t.Fatalf("Cached() = %+v, %v; want the full pair", p, hit)
	}
}

func TestCacheService_RejectsIncompletePair(t *testing.T) {
	cache := newCacheService(nil, time.Minute, zerolog.Nop())
	defer cache.Close()

	if err := cache.SetPayloads(context.Background(), "k", Payloads{Data: sampleData()}); err == nil {
		t.Error("SetPayloads() should reject a pair without analysis")
	}
	if _, hit := cache.GetPayloads(context.Background(), "k"); hit {
		t.Error("incomplete pair must not be cached")
	}
}

func TestCache(t *testing.T) {
	t.Run("expires", func(t *testing.T) {
		c := NewCache[string, int](20 * time.Millisecond)
		defer c.Close()

		c.Set("a", 1)
		if v, ok := c.Get("a"); !ok || v != 1 {
			t.Fatalf("Get(a) = %v, %v; want 1, true", v, ok)
		}
		time.Sleep(40 * time.Millisecond)
		if _, ok := c.Get("a"); ok {
			t.Error("Get(a) should miss after expiry")
		}
	})

	t.Run("zero ttl disables", func(t *testing.T) {
		c := NewCache[string, int](0)
		defer c.Close()

		c.Set("a", 1)
		if _, ok := c.Get("a"); ok {
			t.Error("zero TTL cache should never hit")
		}
	})

	t.Run("close is idempotent", func(t *testing.T) {
		c := NewCache[string, int](time.Minute)
		c.Close()
		c.Close()
	})
}

func TestDashboardService(t *testing.T) {
	t.Run("load then ready", func(t *testing.T) {
		src := &fakeSource{data: sampleData(), analysis: sampleAnalysis()}
		svc := NewDashboardService(NewLoader(src, time.Second, zerolog.Nop()), nil, zerolog.Nop())

		if svc.Current().State != dashboard.Loading {
			t.Errorf("initial state = %v, want loading", svc.Current().State)
		}

		snap, err := svc.LoadAndWait(context.Background())
		if err != nil {
			t.Fatalf("LoadAndWait() error = %v", err)
		}
		if snap.State != dashboard.Ready || snap.Model == nil {
			t.Fatalf("state = %v, want ready with model", snap.State)
		}
		if svc.Current().ID != snap.ID {
			t.Error("Current() should return the started session")
		}
		svc.Wait()
	})

	t.Run("failed load", func(t *testing.T) {
		src := &fakeSource{dataErr: dashboard.NewNetworkError("/api/data", errors.New("down")), analysis: sampleAnalysis()}
		svc := NewDashboardService(NewLoader(src, time.Second, zerolog.Nop()), nil, zerolog.Nop())

		snap, err := svc.LoadAndWait(context.Background())
		if err != nil {
			t.Fatalf("LoadAndWait() error = %v", err)
		}
		if snap.State != dashboard.Failed || snap.Model != nil {
			t.Errorf("snapshot = %+v, want failed without model", snap)
		}
		svc.Wait()
	})

	t.Run("reload replaces the session", func(t *testing.T) {
		src := &fakeSource{data: sampleData(), analysis: sampleAnalysis()}
		cache := newCacheService(nil, time.Minute, zerolog.Nop())
		defer cache.Close()
		loader := NewLoader(NewCachedSource(src, cache, "http://upstream"), time.Second, zerolog.Nop())
		svc := NewDashboardService(loader, cache, zerolog.Nop())

		first, _ := svc.LoadAndWait(context.Background())
		second := svc.Reload(context.Background())
		<-second.Done()
		svc.Wait()

		if first.ID == second.ID() {
			t.Error("reload should create a new session")
		}
		if svc.Current().ID != second.ID() {
			t.Error("Current() should be the reloaded session")
		}
		if got := src.dataCalls.Load(); got != 2 {
			t.Errorf("upstream data calls = %d, want 2 (reload clears cache)", got)
		}
	})
}

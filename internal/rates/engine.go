// Package rates maintains the single authoritative USD→ETB rate and keeps
// every product's derived prices consistent with it.
package rates

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bekeleetsub857-cloud/etsub-shop/internal/catalog"
	"github.com/bekeleetsub857-cloud/etsub-shop/internal/kvstore"
)

type Source string

const (
	SourceCached Source = "cached"
	SourceLive   Source = "live"
	SourceManual Source = "manual"
)

const (
	// DefaultRate is used until the first successful fetch or override.
	DefaultRate = 154.0

	cacheTTL = time.Hour
)

var (
	// ErrRateStale reports that every provider failed and the previous rate
	// was kept. Callers log it; nothing treats it as fatal.
	ErrRateStale = errors.New("all rate providers failed, previous rate retained")

	ErrInvalidRate = errors.New("rate must be a positive number")
)

// State is a snapshot of the engine, safe to hand to renderers.
type State struct {
	Rate          float64   `json:"rate"`
	Source        Source    `json:"source"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	Fetching      bool      `json:"fetching"`
}

type cachedRate struct {
	Rate      float64   `json:"rate"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Engine struct {
	log       *zap.Logger
	kv        kvstore.Store
	catalog   catalog.Store
	providers []Provider

	mu        sync.Mutex
	rate      float64
	source    Source
	updatedAt time.Time
	fetching  bool
	sched     *cron.Cron

	now func() time.Time
}

// NewEngine restores the persisted rate, falling back to defaultRate (and
// finally DefaultRate) when nothing usable is stored.
func NewEngine(kv kvstore.Store, cat catalog.Store, providers []Provider, defaultRate float64, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if defaultRate <= 0 {
		defaultRate = DefaultRate
	}

	e := &Engine{
		log:       log,
		kv:        kv,
		catalog:   cat,
		providers: providers,
		rate:      defaultRate,
		source:    SourceCached,
		now:       time.Now,
	}

	if raw, ok, err := kv.Get(kvstore.KeyUSDRate); err == nil && ok {
		if r, err := strconv.ParseFloat(string(raw), 64); err == nil && r > 0 {
			e.rate = r
		}
	}
	if raw, ok, err := kv.Get(kvstore.KeyRateLastUpdated); err == nil && ok {
		if t, err := time.Parse(time.RFC3339, string(raw)); err == nil {
			e.updatedAt = t
		}
	}
	return e
}

func (e *Engine) Current() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{Rate: e.rate, Source: e.source, LastUpdatedAt: e.updatedAt, Fetching: e.fetching}
}

// Refresh brings the rate up to date. A fresh cache entry is adopted without
// touching the network; only one fetch is ever in flight, a call arriving
// while one is outstanding is a no-op. Total provider failure keeps the old
// rate and returns ErrRateStale.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.fetching {
		e.mu.Unlock()
		return nil
	}
	if c, ok := e.loadCache(); ok && e.now().Sub(c.FetchedAt) < cacheTTL {
		e.mu.Unlock()
		return e.adopt(ctx, c.Rate, SourceCached)
	}
	e.fetching = true
	e.mu.Unlock()

	rate, name, err := e.fetch(ctx)

	e.mu.Lock()
	e.fetching = false
	e.mu.Unlock()

	if err != nil {
		e.log.Warn("rate refresh failed", zap.Error(err))
		return ErrRateStale
	}

	e.log.Info("rate fetched", zap.String("provider", name), zap.Float64("rate", rate))
	e.storeCache(cachedRate{Rate: rate, FetchedAt: e.now()})
	return e.adopt(ctx, rate, SourceLive)
}

// SetManual overrides the rate by hand. Non-positive values are rejected
// without touching any state.
func (e *Engine) SetManual(ctx context.Context, rate float64) error {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return ErrInvalidRate
	}
	return e.adopt(ctx, rate, SourceManual)
}

// StartSchedule begins the hourly refresh, firing once immediately. It is
// owned by the admin session: started on login, stopped on logout.
func (e *Engine) StartSchedule() {
	e.mu.Lock()
	if e.sched != nil {
		e.mu.Unlock()
		return
	}
	e.sched = cron.New()
	_, err := e.sched.AddFunc("@every 1h", func() {
		if err := e.Refresh(context.Background()); err != nil {
			e.log.Warn("scheduled rate refresh", zap.Error(err))
		}
	})
	if err != nil {
		e.log.Error("schedule rate refresh", zap.Error(err))
	}
	e.sched.Start()
	e.mu.Unlock()

	go func() {
		if err := e.Refresh(context.Background()); err != nil {
			e.log.Warn("initial rate refresh", zap.Error(err))
		}
	}()
}

func (e *Engine) StopSchedule() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sched == nil {
		return
	}
	e.sched.Stop()
	e.sched = nil
}

func (e *Engine) fetch(ctx context.Context) (float64, string, error) {
	var lastErr error
	for _, p := range e.providers {
		rate, err := p.Fetch(ctx)
		if err != nil {
			e.log.Warn("rate provider failed", zap.String("provider", p.Name()), zap.Error(err))
			lastErr = err
			continue
		}
		return rate, p.Name(), nil
	}
	if lastErr == nil {
		lastErr = errors.New("no providers configured")
	}
	return 0, "", lastErr
}

// adopt installs a new rate, persists it and republishes every product with
// converted costs computed at the new rate in one catalog swap.
func (e *Engine) adopt(ctx context.Context, rate float64, source Source) error {
	now := e.now()

	e.mu.Lock()
	e.rate = rate
	e.source = source
	e.updatedAt = now
	e.mu.Unlock()

	if err := e.kv.Set(kvstore.KeyUSDRate, []byte(strconv.FormatFloat(rate, 'f', -1, 64))); err != nil {
		e.log.Warn("persist rate", zap.Error(err))
	}
	if err := e.kv.Set(kvstore.KeyRateLastUpdated, []byte(now.Format(time.RFC3339))); err != nil {
		e.log.Warn("persist rate timestamp", zap.Error(err))
	}

	return e.recomputeAll(ctx, rate)
}

func (e *Engine) recomputeAll(ctx context.Context, rate float64) error {
	ps, err := e.catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(ps) == 0 {
		return nil
	}

	next := make([]catalog.Product, len(ps))
	for i, p := range ps {
		p.Reprice(rate)
		next[i] = p
	}
	return e.catalog.ReplaceAll(ctx, next)
}

func (e *Engine) loadCache() (cachedRate, bool) {
	raw, ok, err := e.kv.Get(kvstore.KeyRateCache)
	if err != nil || !ok {
		return cachedRate{}, false
	}
	var c cachedRate
	if err := json.Unmarshal(raw, &c); err != nil || c.Rate <= 0 {
		return cachedRate{}, false
	}
	return c, true
}

func (e *Engine) storeCache(c cachedRate) {
	raw, err := json.Marshal(c)
	if err != nil {
		return
	}
	if err := e.kv.Set(kvstore.KeyRateCache, raw); err != nil {
		e.log.Warn("persist rate cache", zap.Error(err))
	}
}

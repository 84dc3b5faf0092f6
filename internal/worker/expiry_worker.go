package worker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
)

// Sweeper expires STARTED sessions that began before cutoff.
type Sweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// ExpiryWorker periodically expires sessions abandoned in STARTED.
// When rdb is set, a Redis lock keeps replicas from sweeping concurrently.
type ExpiryWorker struct {
	sweeper  Sweeper
	rdb      *redis.Client
	lookback time.Duration
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewExpiryWorker(sweeper Sweeper, rdb *redis.Client, lookback, interval time.Duration, log zerolog.Logger) *ExpiryWorker {
	return &ExpiryWorker{
		sweeper:  sweeper,
		rdb:      rdb,
		lookback: lookback,
		interval: interval,
		log:      log.With().Str("component", "expiry_worker").Logger(),
		now:      time.Now,
	}
}

// Start sweeps once immediately, then every interval until ctx is cancelled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("interval", w.interval).
		Dur("lookback", w.lookback).
		Msg("ExpiryWorker started")

	w.runSafe(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExpiryWorker stopped")
			return
		case <-ticker.C:
			w.runSafe(ctx)
		}
	}
}

// RunOnce performs a single sweep with cutoff now-lookback. It returns 0 without
// sweeping when another replica holds the sweep lock.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (int, error) {
	if w.rdb != nil {
		acquired, err := w.rdb.SetNX(ctx, config.WorkerKey.ExpirySweepLock, w.now().Unix(), w.lockTTL()).Result()
		if err != nil {
			w.log.Warn().Err(err).Msg("Sweep lock unavailable, sweeping anyway")
		} else if !acquired {
			w.log.Debug().Msg("Another replica holds the sweep lock, skipping")
			return 0, nil
		}
	}

	cutoff := w.now().UTC().Add(-w.lookback)
	return w.sweeper.Sweep(ctx, cutoff)
}

// lockTTL keeps the lock shorter than the interval so the next tick can take it.
func (w *ExpiryWorker) lockTTL() time.Duration {
	ttl := w.interval / 2
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func (w *ExpiryWorker) runSafe(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Interface("panic", r).Msg("Recovered from panic in expiry sweep")
		}
	}()

	n, err := w.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error().Err(err).Msg("Expiry sweep failed")
		}
		return
	}
	if n > 0 {
		w.log.Info().Int("expired", n).Msg("Expiry sweep finished")
	}
}

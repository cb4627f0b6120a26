package engine

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// backoffResetTimeout bounds how long a connected session must survive
// before a subsequent failure restarts the backoff schedule from
// InitialInterval, mirroring the BIRD adapter's reconnect loop.
const backoffResetTimeout = 10 * time.Minute

// Reconnector drives an HFP transport's reconnect-after-teardown path: the
// pcmio core only ever observes an already-live transport handle (per its
// narrow contract), so re-establishing one after the peer tears down the
// SCO socket is this engine-level concern, not the device's.
type Reconnector struct {
	log *zap.SugaredLogger

	// InitialInterval overrides backoff.DefaultInitialInterval when
	// non-zero, so tests don't wait on production-scale retry delays.
	InitialInterval time.Duration
}

// NewReconnector builds a Reconnector that logs through log.
func NewReconnector(log *zap.SugaredLogger) *Reconnector {
	return &Reconnector{log: log}
}

// Run calls connect repeatedly with exponential backoff until it succeeds
// or ctx is cancelled. A connection that survives longer than
// backoffResetTimeout resets the schedule, so a flaky-then-stable peer
// doesn't inherit an ever-growing retry interval from an old outage.
func (r *Reconnector) Run(ctx context.Context, peer string, connect func(ctx context.Context) error) error {
	initial := r.InitialInterval
	if initial == 0 {
		initial = backoff.DefaultInitialInterval
	}
	b := backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         time.Minute,
	}
	b.Reset()
	lastAttempt := time.Now()

	for {
		if err := connect(ctx); err == nil {
			return nil
		} else {
			r.log.Warnw("hfp reconnect attempt failed", zap.String("peer", peer), zap.Error(err))
		}

		if time.Since(lastAttempt) > backoffResetTimeout {
			b.Reset()
		}
		lastAttempt = time.Now()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(b.NextBackOff()):
		}
	}
}

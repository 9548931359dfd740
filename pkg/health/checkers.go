package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// Pinger is satisfied by pgxpool.Pool and similar connection pools.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a connection pool's Ping into a readiness probe.
func PingCheck(p Pinger) CheckFunc {
	return p.Ping
}

// GoroutineCountCheck fails once the goroutine count exceeds max. Catches
// goroutine leaks before they exhaust memory.
func GoroutineCountCheck(max int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > max {
			return errors.Errorf("goroutine count %d exceeds %d", n, max)
		}
		return nil
	}
}

// GCMaxPauseCheck fails when the most recent GC stop-the-world pause exceeds
// max. Only the latest pause is inspected so the probe recovers once pressure
// subsides.
func GCMaxPauseCheck(max time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)

		if len(stats.Pause) > 0 && stats.Pause[0] > max {
			return errors.Errorf("GC pause %s exceeds %s", stats.Pause[0], max)
		}
		return nil
	}
}

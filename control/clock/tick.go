package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	overrunTicksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alarm_clock_overrun_ticks_total",
		Help: "count of tick boundaries that passed while the previous tick was still running",
	})

	tickDelayMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alarm_clock_tick_delay",
		Help:    "amount of time between a tick boundary and when the loop woke up for it, in nanoseconds",
		Buckets: prometheus.ExponentialBuckets(1000, 10, 10),
	})
)

// WaitForTick returns a scheduler for Controller.Run that sleeps until the next multiple of period
// on the wall clock, so that the displayed minute flips as close as possible to the real one.
// Boundaries that already passed while a tick ran (a dwell, the editor, or the alarm itself) are
// skipped and counted, not caught up.  Cancelling the context causes it to return immediately.
func WaitForTick(period time.Duration) func(context.Context) error {
	last := time.Now().Truncate(period)
	return func(ctx context.Context) error {
		now := time.Now()
		if missed := int(now.Sub(last) / period); missed > 0 {
			overrunTicksCounter.Add(float64(missed))
		}
		next := now.Add(period).Truncate(period)

		// Wait until the next tick starts.
		select {
		case <-time.After(time.Until(next)):
		case <-ctx.Done():
			return fmt.Errorf("waiting for next tick: %w", ctx.Err())
		}
		tickDelayMetric.Observe(float64(time.Since(next).Nanoseconds()))
		last = next
		return nil
	}
}

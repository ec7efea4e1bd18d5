package simulation

import (
	"context"
	"time"
)

// TickFunc runs one tick of a paced loop and reports whether the loop should continue.
type TickFunc func() (bool, error)

// maxCatchUp bounds the ticks run on one wake-up. Wall time owed beyond it is dropped, so
// after a stall the simulation falls behind the clock instead of bursting.
const maxCatchUp = 8

// Loop paces ticks against the wall clock at a fixed rate. A Loop is run by one goroutine.
type Loop struct {
	interval time.Duration
	limit    int
	tick     TickFunc

	ticks   int
	dropped time.Duration
}

// NewLoop returns a loop that runs tick at tickHz until limit ticks have run. A limit of 0
// or less runs until tick declines. Non-positive rates fall back to 60 Hz.
func NewLoop(tickHz float64, limit int, tick TickFunc) *Loop {
	if !(tickHz > 0) {
		tickHz = 60
	}
	interval := time.Duration(float64(time.Second) / tickHz)
	if interval <= 0 {
		interval = time.Second / 60
	}
	if tick == nil {
		tick = func() (bool, error) { return true, nil }
	}
	return &Loop{interval: interval, limit: limit, tick: tick}
}

// Run ticks until the limit is reached, tick returns false or an error, or ctx is cancelled.
// A cancelled context is not an error.
func (l *Loop) Run(ctx context.Context) error {
	if l.done() {
		return nil
	}

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	last := time.Now()
	var owed time.Duration
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			owed += now.Sub(last)
			last = now

			for n := 0; owed >= l.interval; n++ {
				if n == maxCatchUp {
					behind := owed - owed%l.interval
					l.dropped += behind
					owed -= behind
					break
				}
				owed -= l.interval

				more, err := l.tick()
				l.ticks++
				if err != nil {
					return err
				}
				if !more || l.done() || ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

func (l *Loop) done() bool {
	return l.limit > 0 && l.ticks >= l.limit
}

// Interval returns the wall-clock time between ticks.
func (l *Loop) Interval() time.Duration {
	return l.interval
}

// Ticks returns the number of ticks run so far.
func (l *Loop) Ticks() int {
	return l.ticks
}

// Dropped returns the wall time skipped because the loop fell too far behind.
func (l *Loop) Dropped() time.Duration {
	return l.dropped
}

package simulation

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TickMetricsSnapshot summarises the wall-clock cost of world ticks.
type TickMetricsSnapshot struct {
	Samples int
	Average time.Duration
	Max     time.Duration
	Last    time.Duration
	// Budget is the pacing interval; ticks slower than it are Overruns. Zero when unpaced.
	Budget   time.Duration
	Overruns int
}

// AverageTPS is the tick rate the average tick cost would allow.
func (s TickMetricsSnapshot) AverageTPS() float64 {
	if s.Average <= 0 {
		return 0
	}
	return float64(time.Second) / float64(s.Average)
}

// Fields returns the snapshot as structured log fields.
func (s TickMetricsSnapshot) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int("samples", s.Samples),
		zap.Duration("avg", s.Average),
		zap.Duration("max", s.Max),
		zap.Duration("last", s.Last),
		zap.Float64("tps", s.AverageTPS()),
	}
	if s.Budget > 0 {
		fields = append(fields, zap.Duration("budget", s.Budget), zap.Int("overruns", s.Overruns))
	}
	return fields
}

// TickMonitor accumulates tick timings. The world writes to it while other goroutines, such
// as the stats logger, read snapshots.
type TickMonitor struct {
	mu       sync.Mutex
	samples  int
	total    time.Duration
	max      time.Duration
	last     time.Duration
	budget   time.Duration
	overruns int
}

// NewTickMonitor returns an empty monitor.
func NewTickMonitor() *TickMonitor {
	return &TickMonitor{}
}

// SetBudget sets the time a tick may take before it counts as an overrun. Zero disables
// overrun counting.
func (m *TickMonitor) SetBudget(budget time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.budget = max(budget, 0)
	m.mu.Unlock()
}

// Observe records the duration of a completed tick.
func (m *TickMonitor) Observe(duration time.Duration) {
	if m == nil || duration <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples++
	m.total += duration
	m.max = max(m.max, duration)
	m.last = duration
	if m.budget > 0 && duration > m.budget {
		m.overruns++
	}
}

// Snapshot returns a copy of the aggregated statistics.
func (m *TickMonitor) Snapshot() TickMetricsSnapshot {
	if m == nil {
		return TickMetricsSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := TickMetricsSnapshot{
		Samples:  m.samples,
		Max:      m.max,
		Last:     m.last,
		Budget:   m.budget,
		Overruns: m.overruns,
	}
	if m.samples > 0 {
		snap.Average = m.total / time.Duration(m.samples)
	}
	return snap
}

// Reset clears the accumulated statistics. The budget is kept.
func (m *TickMonitor) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.samples = 0
	m.total = 0
	m.max = 0
	m.last = 0
	m.overruns = 0
	m.mu.Unlock()
}

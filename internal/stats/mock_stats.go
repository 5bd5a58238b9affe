package stats

import "sync"

// MockStatsUpdater is an in-memory StatsProvider for tests. It records
// counter movement instead of publishing expvars.
type MockStatsUpdater struct {
	mu       sync.Mutex
	counters map[string]int
}

func (m *MockStatsUpdater) add(name string, delta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int)
	}
	m.counters[name] += delta
}

func (m *MockStatsUpdater) Incr(name string) { m.add(name, 1) }

func (m *MockStatsUpdater) Decr(name string) { m.add(name, -1) }

func (m *MockStatsUpdater) RegisterMetric(name string) { m.add(name, 0) }

func (m *MockStatsUpdater) Run() {}

// Count returns the current value of a counter.
func (m *MockStatsUpdater) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

package observability

import (
	"sync"
	"time"
)

// MockMetricsRegistry is a MetricsRegistry for tests that records counter
// increments so assertions can be made against them.
type MockMetricsRegistry struct {
	mu     sync.Mutex
	Counts map[string]int
}

// NewMockMetricsRegistry creates a MockMetricsRegistry.
func NewMockMetricsRegistry() *MockMetricsRegistry {
	return &MockMetricsRegistry{Counts: make(map[string]int)}
}

func (m *MockMetricsRegistry) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Counts == nil {
		m.Counts = make(map[string]int)
	}
	m.Counts[key]++
}

// Count returns the recorded increments for a key.
func (m *MockMetricsRegistry) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counts[key]
}

func (m *MockMetricsRegistry) IncrementRequests(endpoint, method, status string) {
	m.inc("requests:" + endpoint + ":" + method + ":" + status)
}

func (m *MockMetricsRegistry) RecordRequestLatency(endpoint, method string, duration time.Duration) {
}

func (m *MockMetricsRegistry) IncrementRecommendations(source string) {
	m.inc("recommendations:" + source)
}

func (m *MockMetricsRegistry) IncrementEmptyResults(itemType string) {
	m.inc("empty:" + itemType)
}

func (m *MockMetricsRegistry) IncrementCatalogRequests(endpoint, outcome string) {
	m.inc("catalog:" + endpoint + ":" + outcome)
}

func (m *MockMetricsRegistry) RecordCatalogLatency(endpoint string, duration time.Duration) {}

func (m *MockMetricsRegistry) IncrementFavoriteMutations(action, status string) {
	m.inc("favorite:" + action + ":" + status)
}

func (m *MockMetricsRegistry) IncrementSessions(event string) {
	m.inc("sessions:" + event)
}

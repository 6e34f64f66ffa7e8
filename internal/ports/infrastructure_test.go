package ports

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// recordingMetrics implements MetricsCollector and keeps every call.
type recordingMetrics struct {
	mu       sync.Mutex
	counters map[string]float64
}

func (m *recordingMetrics) RecordLatency(string, time.Duration, map[string]string) {}

func (m *recordingMetrics) RecordCounter(metric string, value float64, _ map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]float64)
	}
	m.counters[metric] += value
}

func (m *recordingMetrics) RecordGauge(string, float64, map[string]string) {}

func TestMetricsCollectorImplementations(t *testing.T) {
	var collectors []MetricsCollector
	collectors = append(collectors, NopMetrics{}, &recordingMetrics{})

	for _, c := range collectors {
		assert.NotPanics(t, func() {
			c.RecordLatency("search", time.Millisecond, map[string]string{"operation": "search"})
			c.RecordCounter("queries_total", 1, nil)
			c.RecordGauge("competitors_loaded", 42, nil)
		})
	}

	rec := collectors[1].(*recordingMetrics)
	assert.Equal(t, 1.0, rec.counters["queries_total"])
}

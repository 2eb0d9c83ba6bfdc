package service

import (
	"sync"
	"time"
)

// ConnectionQuality is the stability verdict used to recommend an auto-save
// interval to the client, so it can throttle without a hardcoded cadence.
type ConnectionQuality string

const (
	QualityStable   ConnectionQuality = "stable"
	QualityModerate ConnectionQuality = "moderate"
	QualityPoor     ConnectionQuality = "poor"
)

const (
	probeWindowSize = 10

	IntervalStable   = 30 * time.Second
	IntervalModerate = 60 * time.Second
	IntervalPoor     = 120 * time.Second
)

// Latency thresholds for the rolling average.
const (
	latencyModerate = 750 * time.Millisecond
	latencyPoor     = 2 * time.Second
)

// connectionMonitor keeps a rolling window of the last probe latencies plus
// an error counter per attempt.
type connectionMonitor struct {
	mu      sync.Mutex
	windows map[uint]*probeWindow
}

type probeWindow struct {
	latencies [probeWindowSize]time.Duration
	count     int
	next      int
	errors    int
}

func newConnectionMonitor() *connectionMonitor {
	return &connectionMonitor{windows: make(map[uint]*probeWindow)}
}

func (m *connectionMonitor) Record(attemptID uint, latency time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[attemptID]
	if !ok {
		w = &probeWindow{}
		m.windows[attemptID] = w
	}

	w.latencies[w.next] = latency
	w.next = (w.next + 1) % probeWindowSize
	if w.count < probeWindowSize {
		w.count++
	}
	if failed {
		w.errors++
	}
}

func (m *connectionMonitor) Quality(attemptID uint) ConnectionQuality {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[attemptID]
	if !ok || w.count == 0 {
		return QualityStable
	}

	var total time.Duration
	for i := 0; i < w.count; i++ {
		total += w.latencies[i]
	}
	avg := total / time.Duration(w.count)

	switch {
	case w.errors >= 3 || avg >= latencyPoor:
		return QualityPoor
	case w.errors >= 1 || avg >= latencyModerate:
		return QualityModerate
	default:
		return QualityStable
	}
}

// RecommendedInterval maps the stability verdict to an auto-save cadence.
func (m *connectionMonitor) RecommendedInterval(attemptID uint) time.Duration {
	switch m.Quality(attemptID) {
	case QualityPoor:
		return IntervalPoor
	case QualityModerate:
		return IntervalModerate
	default:
		return IntervalStable
	}
}

// Forget drops the window for a finished attempt.
func (m *connectionMonitor) Forget(attemptID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, attemptID)
}

// Package metrics provides operational counters for the worker supervisor and
// the tool-invocation bridge.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks worker lifecycle and invocation metrics.
// All fields are safe for concurrent access.
type Metrics struct {
	// Worker lifecycle metrics
	WorkerStarts        atomic.Int64
	LaunchFailures      atomic.Int64
	WorkerStops         atomic.Int64
	TerminationFailures atomic.Int64
	AbnormalExits       atomic.Int64

	// Invocation metrics
	Invocations         atomic.Int64
	InvocationSuccesses atomic.Int64
	RejectedNotRunning  atomic.Int64
	RemoteErrors        atomic.Int64
	TransportErrors     atomic.Int64
	DecodeErrors        atomic.Int64
	Retries             atomic.Int64

	// Timing metrics
	startTime      time.Time
	lastInvocation atomic.Value // time.Time
	avgLatencyNs   atomic.Int64
	latencyCount   atomic.Int64

	mu sync.RWMutex
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	Timestamp           time.Time `json:"timestamp"`
	Uptime              string    `json:"uptime"`
	WorkerStarts        int64     `json:"worker_starts"`
	LaunchFailures      int64     `json:"launch_failures"`
	WorkerStops         int64     `json:"worker_stops"`
	TerminationFailures int64     `json:"termination_failures"`
	AbnormalExits       int64     `json:"abnormal_exits"`
	Invocations         int64     `json:"invocations"`
	InvocationSuccesses int64     `json:"invocation_successes"`
	RejectedNotRunning  int64     `json:"rejected_not_running"`
	RemoteErrors        int64     `json:"remote_errors"`
	TransportErrors     int64     `json:"transport_errors"`
	DecodeErrors        int64     `json:"decode_errors"`
	Retries             int64     `json:"retries"`
	AvgLatencyMs        float64   `json:"avg_latency_ms"`
	LastInvocation      string    `json:"last_invocation,omitempty"`
}

// NewMetrics creates a new Metrics instance with the start time set to now.
func NewMetrics() *Metrics {
	return &Metrics{
		startTime: time.Now(),
	}
}

// RecordLatency records a single invocation round trip and updates the running average.
func (m *Metrics) RecordLatency(d time.Duration) {
	ns := d.Nanoseconds()
	count := m.latencyCount.Add(1)

	// Running average: newAvg = oldAvg + (newValue - oldAvg) / count
	for {
		oldAvg := m.avgLatencyNs.Load()
		newAvg := oldAvg + (ns-oldAvg)/count
		if m.avgLatencyNs.CompareAndSwap(oldAvg, newAvg) {
			break
		}
		count = m.latencyCount.Load()
		if count == 0 {
			count = 1
		}
	}
}

// RecordInvocation marks the time of the most recent invocation attempt.
func (m *Metrics) RecordInvocation() {
	m.Invocations.Add(1)
	m.lastInvocation.Store(time.Now())
}

// Uptime returns the duration since the metrics instance was created or reset.
func (m *Metrics) Uptime() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.startTime)
}

// AvgLatency returns the average recorded latency, or 0 if none was recorded.
func (m *Metrics) AvgLatency() time.Duration {
	return time.Duration(m.avgLatencyNs.Load())
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	snap := Snapshot{
		Timestamp:           time.Now(),
		Uptime:              m.Uptime().Round(time.Millisecond).String(),
		WorkerStarts:        m.WorkerStarts.Load(),
		LaunchFailures:      m.LaunchFailures.Load(),
		WorkerStops:         m.WorkerStops.Load(),
		TerminationFailures: m.TerminationFailures.Load(),
		AbnormalExits:       m.AbnormalExits.Load(),
		Invocations:         m.Invocations.Load(),
		InvocationSuccesses: m.InvocationSuccesses.Load(),
		RejectedNotRunning:  m.RejectedNotRunning.Load(),
		RemoteErrors:        m.RemoteErrors.Load(),
		TransportErrors:     m.TransportErrors.Load(),
		DecodeErrors:        m.DecodeErrors.Load(),
		Retries:             m.Retries.Load(),
		AvgLatencyMs:        float64(m.avgLatencyNs.Load()) / float64(time.Millisecond),
	}

	if v := m.lastInvocation.Load(); v != nil {
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			snap.LastInvocation = t.Format(time.RFC3339)
		}
	}

	return snap
}

// ToJSON returns a JSON-encoded representation of the current snapshot.
func (m *Metrics) ToJSON() ([]byte, error) {
	return json.Marshal(m.Snapshot())
}

// Reset zeroes all counters and restarts the uptime clock.
func (m *Metrics) Reset() {
	m.WorkerStarts.Store(0)
	m.LaunchFailures.Store(0)
	m.WorkerStops.Store(0)
	m.TerminationFailures.Store(0)
	m.AbnormalExits.Store(0)
	m.Invocations.Store(0)
	m.InvocationSuccesses.Store(0)
	m.RejectedNotRunning.Store(0)
	m.RemoteErrors.Store(0)
	m.TransportErrors.Store(0)
	m.DecodeErrors.Store(0)
	m.Retries.Store(0)
	m.avgLatencyNs.Store(0)
	m.latencyCount.Store(0)
	m.lastInvocation.Store(time.Time{})

	m.mu.Lock()
	m.startTime = time.Now()
	m.mu.Unlock()
}

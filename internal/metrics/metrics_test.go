package metrics

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// TestNewMetrics verifies that a new Metrics instance starts at zero.
func TestNewMetrics(t *testing.T) {
	m := NewMetrics()
	if m == nil {
		t.Fatal("NewMetrics() returned nil")
	}

	if m.WorkerStarts.Load() != 0 {
		t.Errorf("WorkerStarts = %d, want 0", m.WorkerStarts.Load())
	}
	if m.Invocations.Load() != 0 {
		t.Errorf("Invocations = %d, want 0", m.Invocations.Load())
	}
	if m.AvgLatency() != 0 {
		t.Errorf("AvgLatency = %v, want 0", m.AvgLatency())
	}
}

// TestMetrics_RecordLatency verifies the running average.
func TestMetrics_RecordLatency(t *testing.T) {
	m := NewMetrics()

	m.RecordLatency(100 * time.Millisecond)
	m.RecordLatency(200 * time.Millisecond)
	m.RecordLatency(300 * time.Millisecond)

	avg := m.AvgLatency()
	if avg < 199*time.Millisecond || avg > 201*time.Millisecond {
		t.Errorf("AvgLatency = %v, want ~200ms", avg)
	}
}

// TestMetrics_RecordInvocation verifies the counter and timestamp.
func TestMetrics_RecordInvocation(t *testing.T) {
	m := NewMetrics()

	if snap := m.Snapshot(); snap.LastInvocation != "" {
		t.Errorf("LastInvocation = %q before any call, want empty", snap.LastInvocation)
	}

	m.RecordInvocation()
	m.RecordInvocation()

	snap := m.Snapshot()
	if snap.Invocations != 2 {
		t.Errorf("Invocations = %d, want 2", snap.Invocations)
	}
	if snap.LastInvocation == "" {
		t.Error("LastInvocation should be set after RecordInvocation")
	}
	if _, err := time.Parse(time.RFC3339, snap.LastInvocation); err != nil {
		t.Errorf("LastInvocation is not RFC3339: %v", err)
	}
}

// TestMetrics_Snapshot verifies that counters are copied into the snapshot.
func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()

	m.WorkerStarts.Add(3)
	m.LaunchFailures.Add(1)
	m.WorkerStops.Add(2)
	m.TerminationFailures.Add(1)
	m.AbnormalExits.Add(1)
	m.InvocationSuccesses.Add(5)
	m.RejectedNotRunning.Add(4)
	m.RemoteErrors.Add(2)
	m.TransportErrors.Add(1)
	m.DecodeErrors.Add(1)
	m.Retries.Add(1)
	m.RecordLatency(50 * time.Millisecond)

	snap := m.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"WorkerStarts", snap.WorkerStarts, 3},
		{"LaunchFailures", snap.LaunchFailures, 1},
		{"WorkerStops", snap.WorkerStops, 2},
		{"TerminationFailures", snap.TerminationFailures, 1},
		{"AbnormalExits", snap.AbnormalExits, 1},
		{"InvocationSuccesses", snap.InvocationSuccesses, 5},
		{"RejectedNotRunning", snap.RejectedNotRunning, 4},
		{"RemoteErrors", snap.RemoteErrors, 2},
		{"TransportErrors", snap.TransportErrors, 1},
		{"DecodeErrors", snap.DecodeErrors, 1},
		{"Retries", snap.Retries, 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	if snap.AvgLatencyMs < 49 || snap.AvgLatencyMs > 51 {
		t.Errorf("AvgLatencyMs = %f, want ~50", snap.AvgLatencyMs)
	}
	if snap.Uptime == "" {
		t.Error("Uptime should not be empty")
	}
}

// TestMetrics_ToJSON verifies the JSON field names.
func TestMetrics_ToJSON(t *testing.T) {
	m := NewMetrics()
	m.WorkerStarts.Add(1)
	m.TransportErrors.Add(2)

	data, err := m.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", err)
	}

	for _, key := range []string{"timestamp", "uptime", "worker_starts", "invocations", "transport_errors", "avg_latency_ms"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("JSON missing key %q", key)
		}
	}
	if decoded["worker_starts"] != float64(1) {
		t.Errorf("worker_starts = %v, want 1", decoded["worker_starts"])
	}
	if _, ok := decoded["last_invocation"]; ok {
		t.Error("last_invocation should be omitted when no invocation was recorded")
	}
}

// TestMetrics_Reset verifies that all counters return to zero.
func TestMetrics_Reset(t *testing.T) {
	m := NewMetrics()
	m.WorkerStarts.Add(5)
	m.RecordInvocation()
	m.RecordLatency(10 * time.Millisecond)

	m.Reset()

	snap := m.Snapshot()
	if snap.WorkerStarts != 0 || snap.Invocations != 0 {
		t.Errorf("counters not reset: starts=%d invocations=%d", snap.WorkerStarts, snap.Invocations)
	}
	if snap.AvgLatencyMs != 0 {
		t.Errorf("AvgLatencyMs = %f after reset, want 0", snap.AvgLatencyMs)
	}
	if snap.LastInvocation != "" {
		t.Errorf("LastInvocation = %q after reset, want empty", snap.LastInvocation)
	}
}

// TestMetrics_ConcurrentAccess exercises counters, latency and snapshots
// from many goroutines. Run with -race.
func TestMetrics_ConcurrentAccess(t *testing.T) {
	m := NewMetrics()
	const goroutines = 20
	const iterations = 100

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				m.RecordInvocation()
				m.InvocationSuccesses.Add(1)
				m.RecordLatency(time.Millisecond)
				_ = m.Snapshot()
			}
		}()
	}
	wg.Wait()

	want := int64(goroutines * iterations)
	if got := m.Invocations.Load(); got != want {
		t.Errorf("Invocations = %d, want %d", got, want)
	}
	if got := m.InvocationSuccesses.Load(); got != want {
		t.Errorf("InvocationSuccesses = %d, want %d", got, want)
	}
}

package stats

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/parser"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

type mockStore struct {
	mu        sync.Mutex
	snapshots []map[string]interface{}
	err       error
}

func (m *mockStore) StoreSystemStats(stats map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.snapshots = append(m.snapshots, stats)
	return nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

func TestNew(t *testing.T) {
	stats := New()

	if stats == nil {
		t.Fatal("New() returned nil")
	}
	if stats.DatagramsReceived != 0 {
		t.Errorf("Expected DatagramsReceived to be 0, got %d", stats.DatagramsReceived)
	}
	if time.Since(stats.StartTime) > 5*time.Second {
		t.Error("StartTime should be recent")
	}
	if len(stats.Tallies()) != 0 {
		t.Errorf("Expected no tallies, got %v", stats.Tallies())
	}
}

func TestIncrementDatagrams(t *testing.T) {
	stats := New()

	stats.IncrementDatagrams(parser.FrameRPOS)
	stats.IncrementDatagrams(parser.FrameRPOS)
	stats.IncrementDatagrams(parser.FrameRREF)
	stats.IncrementDatagrams(parser.FrameUnknown)
	// out of range kinds still count as traffic
	stats.IncrementDatagrams(parser.FrameKind(42))

	if stats.DatagramsReceived != 5 {
		t.Errorf("Expected 5 datagrams, got %d", stats.DatagramsReceived)
	}
	if stats.FrameCounts[parser.FrameRPOS] != 2 {
		t.Errorf("Expected 2 RPOS frames, got %d", stats.FrameCounts[parser.FrameRPOS])
	}
	if stats.FrameCounts[parser.FrameRREF] != 1 {
		t.Errorf("Expected 1 RREF frame, got %d", stats.FrameCounts[parser.FrameRREF])
	}
	if stats.FrameCounts[parser.FrameUnknown] != 1 {
		t.Errorf("Expected 1 unknown frame, got %d", stats.FrameCounts[parser.FrameUnknown])
	}
}

func TestCounters(t *testing.T) {
	stats := New()

	stats.IncrementSubscriptionSends()
	stats.IncrementSubscriptionSends()
	stats.IncrementSendFailures()
	stats.IncrementConnectionFlips()
	stats.IncrementSamplesApplied()
	stats.IncrementDroppedEvents()
	stats.IncrementStoredSamples()
	stats.IncrementPublishErrors()

	got := stats.GetStats()
	want := map[string]uint64{
		"subscription_sends": 2,
		"send_failures":      1,
		"connection_flips":   1,
		"samples_applied":    1,
		"dropped_events":     1,
		"stored_samples":     1,
		"publish_errors":     1,
	}
	for key, v := range want {
		if got[key] != v {
			t.Errorf("%s = %v, want %d", key, got[key], v)
		}
	}
}

func TestTallies(t *testing.T) {
	stats := New()

	stats.RecordAttempt(types.ManeuverSteepTurns)
	stats.RecordAttempt(types.ManeuverSteepTurns)
	stats.RecordOutcome(types.ManeuverSteepTurns, true)
	stats.RecordOutcome(types.ManeuverSteepTurns, false)
	stats.RecordAttempt(types.ManeuverPowerOnStalls)

	tallies := stats.Tallies()
	if got := tallies[types.ManeuverSteepTurns]; got.Attempts != 2 || got.Successes != 1 {
		t.Errorf("steep turns tally = %+v, want 2 attempts 1 success", got)
	}
	if got := tallies[types.ManeuverPowerOnStalls]; got.Attempts != 1 || got.Successes != 0 {
		t.Errorf("power on stalls tally = %+v, want 1 attempt", got)
	}

	snapshot := stats.GetStats()
	if snapshot["maneuver_attempts"] != uint64(3) || snapshot["maneuver_successes"] != uint64(1) {
		t.Errorf("Unexpected totals: attempts=%v successes=%v", snapshot["maneuver_attempts"], snapshot["maneuver_successes"])
	}

	// the copy is detached
	tallies[types.ManeuverSteepTurns] = Tally{}
	if stats.Tallies()[types.ManeuverSteepTurns].Attempts != 2 {
		t.Error("Expected Tallies() to return a copy")
	}
}

func TestConcurrentIncrements(t *testing.T) {
	stats := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				stats.IncrementDatagrams(parser.FrameRPOS)
				stats.RecordAttempt(types.ManeuverSteepTurns)
			}
		}()
	}
	wg.Wait()

	if stats.DatagramsReceived != 1000 {
		t.Errorf("Expected 1000 datagrams, got %d", stats.DatagramsReceived)
	}
	if got := stats.Tallies()[types.ManeuverSteepTurns].Attempts; got != 1000 {
		t.Errorf("Expected 1000 attempts, got %d", got)
	}
}

func TestUpdateLastMessageTimeAndProcessingTime(t *testing.T) {
	stats := New()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	stats.UpdateLastMessageTime(at)
	stats.AddProcessingTime(10 * time.Millisecond)
	stats.AddProcessingTime(5 * time.Millisecond)

	got := stats.GetStats()
	if got["processing_time"] != 15*time.Millisecond {
		t.Errorf("processing_time = %v, want 15ms", got["processing_time"])
	}
	if got["last_message_time"] != at {
		t.Errorf("last_message_time = %v, want %v", got["last_message_time"], at)
	}
}

func TestPersist(t *testing.T) {
	stats := New()

	if err := stats.Persist(); err == nil {
		t.Error("Expected error without a store")
	}

	store := &mockStore{}
	stats.SetStore(store)
	stats.IncrementDatagrams(parser.FrameRREF)

	if err := stats.Persist(); err != nil {
		t.Fatalf("Persist() failed: %v", err)
	}
	if store.count() != 1 {
		t.Fatalf("Expected 1 snapshot, got %d", store.count())
	}
	if store.snapshots[0]["datagrams_received"] != uint64(1) {
		t.Errorf("Unexpected snapshot: %v", store.snapshots[0])
	}

	store.err = errors.New("db down")
	if err := stats.Persist(); err == nil {
		t.Error("Expected store error to be returned")
	}
}

func TestStartPersistence(t *testing.T) {
	stats := New()
	store := &mockStore{}
	stats.SetStore(store)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		stats.StartPersistence(ctx, 20*time.Millisecond, nil)
		close(done)
	}()

	time.Sleep(70 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StartPersistence did not return after cancel")
	}

	// periodic snapshots plus the final one
	if store.count() < 2 {
		t.Errorf("Expected at least 2 snapshots, got %d", store.count())
	}
}

func TestStartLogging(t *testing.T) {
	stats := New()
	stats.RecordAttempt(types.ManeuverSteepTurns)

	var buf bytes.Buffer
	var mu sync.Mutex
	logger := slog.New(slog.NewJSONHandler(&lockedWriter{w: &buf, mu: &mu}, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	stats.StartLogging(ctx, 15*time.Millisecond, logger)

	mu.Lock()
	out := buf.String()
	mu.Unlock()

	if !bytes.Contains([]byte(out), []byte(`"msg":"pipeline statistics"`)) {
		t.Errorf("Expected statistics record, got %s", out)
	}
	if !bytes.Contains([]byte(out), []byte(`"STEEP_TURNS":{"attempts":1,"successes":0}`)) {
		t.Errorf("Expected maneuver tally in record, got %s", out)
	}
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/parser"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// Store persists statistics snapshots
type Store interface {
	StoreSystemStats(stats map[string]interface{}) error
}

// Tally counts maneuver attempts for one maneuver type
type Tally struct {
	Attempts  uint64 `json:"attempts"`
	Successes uint64 `json:"successes"`
}

// Stats tracks telemetry pipeline statistics
type Stats struct {
	// Link counters
	DatagramsReceived uint64
	SubscriptionSends uint64
	SendFailures      uint64
	ConnectionFlips   uint64

	// Frame kind counts, indexed by parser.FrameKind
	FrameCounts [3]uint64

	// Coach counters
	SamplesApplied uint64
	DroppedEvents  uint64
	StoredSamples  uint64
	PublishErrors  uint64

	// Timing
	StartTime       time.Time
	LastMessageTime time.Time
	ProcessingTime  time.Duration

	tallies map[types.ManeuverType]*Tally

	store Store

	mu sync.RWMutex
}

// New creates a new Stats instance
func New() *Stats {
	return &Stats{
		StartTime: time.Now(),
		tallies:   make(map[types.ManeuverType]*Tally),
	}
}

// SetStore sets where snapshots are persisted
func (s *Stats) SetStore(store Store) {
	s.mu.Lock()
	s.store = store
	s.mu.Unlock()
}

// Persist stores the current statistics
func (s *Stats) Persist() error {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store == nil {
		return fmt.Errorf("statistics store not set")
	}

	return store.StoreSystemStats(s.GetStats())
}

// IncrementDatagrams counts a received datagram and its decoded kind
func (s *Stats) IncrementDatagrams(kind parser.FrameKind) {
	atomic.AddUint64(&s.DatagramsReceived, 1)
	if int(kind) >= 0 && int(kind) < len(s.FrameCounts) {
		atomic.AddUint64(&s.FrameCounts[kind], 1)
	}
}

// IncrementSubscriptionSends counts an outbound subscription datagram
func (s *Stats) IncrementSubscriptionSends() {
	atomic.AddUint64(&s.SubscriptionSends, 1)
}

// IncrementSendFailures counts a failed outbound datagram
func (s *Stats) IncrementSendFailures() {
	atomic.AddUint64(&s.SendFailures, 1)
}

// IncrementConnectionFlips counts a connection status transition
func (s *Stats) IncrementConnectionFlips() {
	atomic.AddUint64(&s.ConnectionFlips, 1)
}

// IncrementSamplesApplied counts a flight sample applied to the coach
func (s *Stats) IncrementSamplesApplied() {
	atomic.AddUint64(&s.SamplesApplied, 1)
}

// IncrementDroppedEvents counts an event dropped because its consumer was behind
func (s *Stats) IncrementDroppedEvents() {
	atomic.AddUint64(&s.DroppedEvents, 1)
}

// IncrementStoredSamples counts a flight sample written to the database
func (s *Stats) IncrementStoredSamples() {
	atomic.AddUint64(&s.StoredSamples, 1)
}

// IncrementPublishErrors counts a failed publish to the presentation layer
func (s *Stats) IncrementPublishErrors() {
	atomic.AddUint64(&s.PublishErrors, 1)
}

// RecordAttempt counts a started maneuver attempt
func (s *Stats) RecordAttempt(maneuver types.ManeuverType) {
	s.mu.Lock()
	s.tally(maneuver).Attempts++
	s.mu.Unlock()
}

// RecordOutcome counts a finished maneuver attempt
func (s *Stats) RecordOutcome(maneuver types.ManeuverType, success bool) {
	if !success {
		return
	}
	s.mu.Lock()
	s.tally(maneuver).Successes++
	s.mu.Unlock()
}

func (s *Stats) tally(maneuver types.ManeuverType) *Tally {
	t, ok := s.tallies[maneuver]
	if !ok {
		t = &Tally{}
		s.tallies[maneuver] = t
	}
	return t
}

// Tallies returns a copy of the attempt counts per maneuver
func (s *Stats) Tallies() map[types.ManeuverType]Tally {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[types.ManeuverType]Tally, len(s.tallies))
	for m, t := range s.tallies {
		out[m] = *t
	}
	return out
}

// UpdateLastMessageTime records when the last datagram arrived
func (s *Stats) UpdateLastMessageTime(at time.Time) {
	s.mu.Lock()
	s.LastMessageTime = at
	s.mu.Unlock()
}

// AddProcessingTime adds to the total processing time
func (s *Stats) AddProcessingTime(duration time.Duration) {
	s.mu.Lock()
	s.ProcessingTime += duration
	s.mu.Unlock()
}

// GetStats returns a copy of the current statistics
func (s *Stats) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var frames [3]uint64
	for i := range s.FrameCounts {
		frames[i] = atomic.LoadUint64(&s.FrameCounts[i])
	}

	var attempts, successes uint64
	for _, t := range s.tallies {
		attempts += t.Attempts
		successes += t.Successes
	}

	return map[string]interface{}{
		"datagrams_received": atomic.LoadUint64(&s.DatagramsReceived),
		"frame_kinds":        frames,
		"subscription_sends": atomic.LoadUint64(&s.SubscriptionSends),
		"send_failures":      atomic.LoadUint64(&s.SendFailures),
		"connection_flips":   atomic.LoadUint64(&s.ConnectionFlips),
		"samples_applied":    atomic.LoadUint64(&s.SamplesApplied),
		"dropped_events":     atomic.LoadUint64(&s.DroppedEvents),
		"stored_samples":     atomic.LoadUint64(&s.StoredSamples),
		"publish_errors":     atomic.LoadUint64(&s.PublishErrors),
		"maneuver_attempts":  attempts,
		"maneuver_successes": successes,
		"last_message_time":  s.LastMessageTime,
		"processing_time":    s.ProcessingTime,
		"uptime":             time.Since(s.StartTime),
	}
}

// LogValue renders the statistics as structured log attributes
func (s *Stats) LogValue() slog.Value {
	stats := s.GetStats()
	frames := stats["frame_kinds"].([3]uint64)

	attrs := []slog.Attr{
		slog.Any("datagrams", stats["datagrams_received"]),
		slog.Group("frames",
			slog.Uint64(parser.FrameRPOS.String(), frames[parser.FrameRPOS]),
			slog.Uint64(parser.FrameRREF.String(), frames[parser.FrameRREF]),
			slog.Uint64(parser.FrameUnknown.String(), frames[parser.FrameUnknown]),
		),
		slog.Any("subscription_sends", stats["subscription_sends"]),
		slog.Any("send_failures", stats["send_failures"]),
		slog.Any("connection_flips", stats["connection_flips"]),
		slog.Any("samples_applied", stats["samples_applied"]),
		slog.Any("dropped_events", stats["dropped_events"]),
		slog.Any("stored_samples", stats["stored_samples"]),
		slog.Any("publish_errors", stats["publish_errors"]),
		slog.Duration("processing_time", stats["processing_time"].(time.Duration)),
		slog.Duration("uptime", stats["uptime"].(time.Duration)),
	}

	tallies := s.Tallies()
	names := make([]string, 0, len(tallies))
	for m := range tallies {
		names = append(names, string(m))
	}
	sort.Strings(names)
	for _, name := range names {
		t := tallies[types.ManeuverType(name)]
		attrs = append(attrs, slog.Group(name,
			slog.Uint64("attempts", t.Attempts),
			slog.Uint64("successes", t.Successes),
		))
	}

	return slog.GroupValue(attrs...)
}

// StartLogging logs the statistics periodically until ctx is done
func (s *Stats) StartLogging(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	logger = logging.OrDiscard(logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("pipeline statistics", slog.Any("stats", s))
		}
	}
}

// StartPersistence starts periodic persistence of statistics
func (s *Stats) StartPersistence(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	logger = logging.OrDiscard(logger)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final persistence before shutdown
			if err := s.Persist(); err != nil {
				logger.Warn("failed to persist final statistics", slog.Any("error", err))
			}
			return
		case <-ticker.C:
			if err := s.Persist(); err != nil {
				logger.Warn("failed to persist statistics", slog.Any("error", err))
			}
		}
	}
}

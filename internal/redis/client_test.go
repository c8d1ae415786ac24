package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

type mockEntry struct {
	value string
	ttl   time.Duration
}

// mockRedisClient is an in-memory RedisClientInterface
type mockRedisClient struct {
	data   map[string]mockEntry
	err    error
	closed bool
}

func newMockRedisClient() *mockRedisClient {
	return &mockRedisClient{data: make(map[string]mockEntry)}
}

func (m *mockRedisClient) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", m.err)
}

func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if m.err != nil {
		return redis.NewStatusResult("", m.err)
	}
	var s string
	switch v := value.(type) {
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return redis.NewStatusResult("", errors.New("unsupported value type"))
	}
	m.data[key] = mockEntry{value: s, ttl: expiration}
	return redis.NewStatusResult("OK", nil)
}

func (m *mockRedisClient) Get(ctx context.Context, key string) *redis.StringCmd {
	if m.err != nil {
		return redis.NewStringResult("", m.err)
	}
	entry, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(entry.value, nil)
}

func (m *mockRedisClient) Close() error {
	m.closed = true
	return nil
}

func TestNew_InvalidAddress(t *testing.T) {
	client, err := New("invalid:address:12345")
	if err == nil {
		client.Close()
		t.Fatal("New() should fail with invalid address")
	}
	if client != nil {
		t.Error("New() should return nil client on error")
	}
}

func TestClient_Close(t *testing.T) {
	mock := newMockRedisClient()
	client := NewWithClient(mock)

	if err := client.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if !mock.closed {
		t.Error("Expected underlying client to be closed")
	}
}

func TestClient_FlightSample(t *testing.T) {
	mock := newMockRedisClient()
	client := NewWithClient(mock)
	ctx := context.Background()

	got, err := client.GetFlightSample(ctx)
	if err != nil || got != nil {
		t.Fatalf("Expected nil sample before store, got %+v, %v", got, err)
	}

	sample := &types.FlightSample{
		Heading:           123.5,
		ElevASL:           3500,
		ElevAGL:           2700,
		Roll:              -44,
		IndicatedAirspeed: 96,
		EngineRPM:         2310,
		Timestamp:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := client.StoreFlightSample(ctx, sample); err != nil {
		t.Fatalf("StoreFlightSample() failed: %v", err)
	}
	if mock.data[keyFlightSample].ttl != sampleTTL {
		t.Errorf("TTL = %v, want %v", mock.data[keyFlightSample].ttl, sampleTTL)
	}

	got, err = client.GetFlightSample(ctx)
	if err != nil {
		t.Fatalf("GetFlightSample() failed: %v", err)
	}
	if *got != *sample {
		t.Errorf("GetFlightSample() = %+v, want %+v", got, sample)
	}
}

func TestClient_ConnectionStatus(t *testing.T) {
	client := NewWithClient(newMockRedisClient())
	ctx := context.Background()

	status, err := client.GetConnectionStatus(ctx)
	if err != nil || status != types.NotConnected {
		t.Errorf("Expected NOT_CONNECTED before store, got %s, %v", status, err)
	}

	if err := client.StoreConnectionStatus(ctx, types.Connected); err != nil {
		t.Fatalf("StoreConnectionStatus() failed: %v", err)
	}
	status, err = client.GetConnectionStatus(ctx)
	if err != nil || status != types.Connected {
		t.Errorf("GetConnectionStatus() = %s, %v, want CONNECTED", status, err)
	}
}

func TestClient_ManeuverStatus(t *testing.T) {
	mock := newMockRedisClient()
	client := NewWithClient(mock)
	ctx := context.Background()

	first := &types.ManeuverStatus{AttemptID: "a1", Maneuver: types.ManeuverSteepTurns, ProgressPercent: 50}
	second := &types.ManeuverStatus{AttemptID: "a2", Maneuver: types.ManeuverSteepTurns, Terminate: true, Success: true}

	for _, s := range []*types.ManeuverStatus{first, second} {
		if err := client.StoreManeuverStatus(ctx, s); err != nil {
			t.Fatalf("StoreManeuverStatus() failed: %v", err)
		}
	}

	got, err := client.GetManeuverStatus(ctx, "a1")
	if err != nil || got == nil || got.ProgressPercent != 50 {
		t.Errorf("GetManeuverStatus(a1) = %+v, %v", got, err)
	}

	latest, err := client.GetLatestManeuverStatus(ctx)
	if err != nil || latest == nil || latest.AttemptID != "a2" || !latest.Success {
		t.Errorf("GetLatestManeuverStatus() = %+v, %v", latest, err)
	}
	if mock.data[maneuverKey("a2")].ttl != maneuverTTL {
		t.Errorf("TTL = %v, want %v", mock.data[maneuverKey("a2")].ttl, maneuverTTL)
	}
}

func TestClient_Errors(t *testing.T) {
	mock := newMockRedisClient()
	client := NewWithClient(mock)
	ctx := context.Background()

	mock.data[keyFlightSample] = mockEntry{value: "{not json"}
	if _, err := client.GetFlightSample(ctx); err == nil {
		t.Error("Expected unmarshal error")
	}

	mock.err = errors.New("connection reset")
	if err := client.StoreFlightSample(ctx, &types.FlightSample{}); err == nil {
		t.Error("Expected store error")
	}
	if err := client.StoreConnectionStatus(ctx, types.Connected); err == nil {
		t.Error("Expected store error")
	}
	if err := client.StoreManeuverStatus(ctx, &types.ManeuverStatus{AttemptID: "a1"}); err == nil {
		t.Error("Expected store error")
	}
	if _, err := client.GetConnectionStatus(ctx); err == nil {
		t.Error("Expected get error")
	}
	if _, err := client.GetLatestManeuverStatus(ctx); err == nil {
		t.Error("Expected get error")
	}
}

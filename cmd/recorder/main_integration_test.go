package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/saviobatista/steepturn-coach/internal/logging"
	"github.com/saviobatista/steepturn-coach/internal/nats"
	"github.com/saviobatista/steepturn-coach/internal/storage"
	"github.com/saviobatista/steepturn-coach/internal/testutils"
	"github.com/saviobatista/steepturn-coach/internal/types"
	"github.com/testcontainers/testcontainers-go"
	natscontainer "github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRecorder_Integration_WritesPublishedEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := natscontainer.Run(ctx, "nats:2.9-alpine",
		testcontainers.WithWaitStrategy(wait.ForLog("Server is ready")),
	)
	if err != nil {
		t.Skipf("NATS container unavailable: %v", err)
	}
	defer func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Failed to terminate NATS container: %v", err)
		}
	}()

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get NATS connection string: %v", err)
	}

	client, err := nats.New(url, nil)
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}
	defer client.Close()

	dir := t.TempDir()
	store := storage.New(dir, nil)
	if err := store.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- record(runCtx, client, store, logging.Discard()) }()

	events := []*types.Event{
		{Kind: types.EventConnectionStatusChanged, Timestamp: time.Now(), Connection: &types.ConnectionStatusChanged{Status: types.Connected}},
		{Kind: types.EventFlightSampleUpdated, Timestamp: time.Now(), FlightSample: &types.FlightSampleUpdated{Heading: 90, Roll: 45}},
	}
	for _, e := range events {
		if err := client.PublishEvent(e); err != nil {
			t.Fatalf("PublishEvent() failed: %v", err)
		}
	}

	path := filepath.Join(dir, storage.FileName(time.Now()))
	if err := testutils.WaitForCondition(func() bool {
		data, err := os.ReadFile(path)
		return err == nil && strings.Count(string(data), "\n") >= len(events)
	}, 5*time.Second); err != nil {
		t.Errorf("Events were not recorded: %v", err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("record() returned %v", err)
	}
	if err := store.Stop(); err != nil {
		t.Errorf("Stop() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read recording: %v", err)
	}
	if !strings.Contains(string(data), `"CONNECTION_STATUS_CHANGED"`) || !strings.Contains(string(data), `"FLIGHT_SAMPLE_UPDATED"`) {
		t.Errorf("Recording missing events: %s", data)
	}
}

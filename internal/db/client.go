package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/saviobatista/steepturn-coach/internal/types"
)

// counters persisted as BIGINT columns of system_stats, in column order
var statsCounters = []string{
	"datagrams_received",
	"subscription_sends",
	"send_failures",
	"connection_flips",
	"samples_applied",
	"dropped_events",
	"stored_samples",
	"publish_errors",
	"maneuver_attempts",
	"maneuver_successes",
}

type Client struct {
	db *sql.DB
}

// New creates a new database client
func New(connStr string) (*Client, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Client{db: db}, nil
}

// Ping checks the database is reachable
func (c *Client) Ping() error {
	return c.db.Ping()
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// StoreFlightSample records one flight sample. An empty attemptID stores NULL.
func (c *Client) StoreFlightSample(sample *types.FlightSample, attemptID string) error {
	query := `
		INSERT INTO flight_samples (
			time, attempt_id, heading, elev_asl_ft, elev_agl_ft,
			roll, indicated_airspeed, engine_rpm
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	attempt := sql.NullString{String: attemptID, Valid: attemptID != ""}

	ts := sample.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := c.db.Exec(query,
		ts, attempt, sample.Heading, sample.ElevASL, sample.ElevAGL,
		sample.Roll, sample.IndicatedAirspeed, sample.EngineRPM,
	)
	if err != nil {
		return fmt.Errorf("failed to store flight sample: %w", err)
	}
	return nil
}

// GetAttemptSamples returns the samples recorded during an attempt, oldest first
func (c *Client) GetAttemptSamples(attemptID string) ([]types.FlightSample, error) {
	query := `
		SELECT time, heading, elev_asl_ft, elev_agl_ft, roll, indicated_airspeed, engine_rpm
		FROM flight_samples
		WHERE attempt_id = $1
		ORDER BY time
	`
	rows, err := c.db.Query(query, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt samples: %w", err)
	}
	defer rows.Close()

	var samples []types.FlightSample
	for rows.Next() {
		var s types.FlightSample
		if err := rows.Scan(
			&s.Timestamp, &s.Heading, &s.ElevASL, &s.ElevAGL,
			&s.Roll, &s.IndicatedAirspeed, &s.EngineRPM,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight sample: %w", err)
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// StoreSystemStats stores a statistics snapshot as produced by stats.GetStats
func (c *Client) StoreSystemStats(stats map[string]interface{}) error {
	query := `
		INSERT INTO system_stats (
			time, datagrams_received, subscription_sends, send_failures,
			connection_flips, samples_applied, dropped_events, stored_samples,
			publish_errors, maneuver_attempts, maneuver_successes,
			frame_kinds, processing_time_ms, uptime_seconds
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`

	args := []interface{}{time.Now()}
	for _, key := range statsCounters {
		v, ok := stats[key].(uint64)
		if !ok {
			return fmt.Errorf("failed to store system stats: %s is %T, want uint64", key, stats[key])
		}
		args = append(args, int64(v))
	}

	frames, ok := stats["frame_kinds"].([3]uint64)
	if !ok {
		return fmt.Errorf("failed to store system stats: frame_kinds is %T", stats["frame_kinds"])
	}
	frameArray := make([]int64, len(frames))
	for i, v := range frames {
		frameArray[i] = int64(v)
	}

	processing, _ := stats["processing_time"].(time.Duration)
	uptime, _ := stats["uptime"].(time.Duration)

	args = append(args, pq.Array(frameArray), processing.Milliseconds(), int64(uptime.Seconds()))

	if _, err := c.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to store system stats: %w", err)
	}
	return nil
}

// GetSystemStats retrieves statistics snapshots for a time range, newest first
func (c *Client) GetSystemStats(start, end time.Time) ([]map[string]interface{}, error) {
	query := `
		SELECT
			time, datagrams_received, subscription_sends, send_failures,
			connection_flips, samples_applied, dropped_events, stored_samples,
			publish_errors, maneuver_attempts, maneuver_successes,
			frame_kinds, processing_time_ms, uptime_seconds
		FROM system_stats
		WHERE time BETWEEN $1 AND $2
		ORDER BY time DESC
	`

	rows, err := c.db.Query(query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query system stats: %w", err)
	}
	defer rows.Close()

	var result []map[string]interface{}
	for rows.Next() {
		var (
			timestamp        time.Time
			counters         = make([]int64, len(statsCounters))
			frameKinds       []int64
			processingTimeMs int64
			uptimeSeconds    int64
		)

		dest := []interface{}{&timestamp}
		for i := range counters {
			dest = append(dest, &counters[i])
		}
		dest = append(dest, pq.Array(&frameKinds), &processingTimeMs, &uptimeSeconds)

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan system stats: %w", err)
		}

		var frames [3]uint64
		for i, v := range frameKinds {
			if i < len(frames) {
				frames[i] = uint64(v)
			}
		}

		stat := map[string]interface{}{
			"time":            timestamp,
			"frame_kinds":     frames,
			"processing_time": time.Duration(processingTimeMs) * time.Millisecond,
			"uptime_seconds":  uptimeSeconds,
		}
		for i, key := range statsCounters {
			stat[key] = counters[i]
		}

		result = append(result, stat)
	}

	return result, rows.Err()
}

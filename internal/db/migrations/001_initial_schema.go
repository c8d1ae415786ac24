package migrations

import "time"

// InitialSchema creates the flight sample and link statistics hypertables
var InitialSchema = &Migration{
	ID:   "001_initial_schema",
	Name: "001_initial_schema",
	UpSQL: `
		CREATE EXTENSION IF NOT EXISTS timescaledb;

		CREATE TABLE IF NOT EXISTS flight_samples (
			time TIMESTAMPTZ NOT NULL,
			attempt_id TEXT,
			heading DOUBLE PRECISION NOT NULL,
			elev_asl_ft DOUBLE PRECISION NOT NULL,
			elev_agl_ft DOUBLE PRECISION NOT NULL,
			roll DOUBLE PRECISION NOT NULL,
			indicated_airspeed DOUBLE PRECISION NOT NULL,
			engine_rpm DOUBLE PRECISION NOT NULL
		);

		SELECT create_hypertable('flight_samples', 'time');

		-- samples recorded outside an attempt have no attempt id
		CREATE INDEX IF NOT EXISTS idx_flight_samples_attempt_id
			ON flight_samples (attempt_id, time) WHERE attempt_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS system_stats (
			time TIMESTAMPTZ NOT NULL,
			datagrams_received BIGINT NOT NULL,
			frame_kinds BIGINT[] NOT NULL,
			subscription_sends BIGINT NOT NULL,
			send_failures BIGINT NOT NULL,
			connection_flips BIGINT NOT NULL,
			samples_applied BIGINT NOT NULL,
			dropped_events BIGINT NOT NULL,
			stored_samples BIGINT NOT NULL,
			publish_errors BIGINT NOT NULL,
			maneuver_attempts BIGINT NOT NULL,
			maneuver_successes BIGINT NOT NULL,
			processing_time_ms BIGINT NOT NULL,
			uptime_seconds BIGINT NOT NULL
		);

		SELECT create_hypertable('system_stats', 'time');

		CREATE INDEX IF NOT EXISTS idx_system_stats_time ON system_stats (time DESC);
	`,
	DownSQL: `
		DROP TABLE IF EXISTS system_stats;
		DROP TABLE IF EXISTS flight_samples;
	`,
	CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
}

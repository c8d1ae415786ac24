package migrations

import "time"

var RetentionPolicies = &Migration{
	ID:   "002_retention_policies",
	Name: "002_retention_policies",
	UpSQL: `
	SELECT add_retention_policy('flight_samples', INTERVAL '30 days');
	SELECT add_retention_policy('system_stats', INTERVAL '90 days');

	CREATE MATERIALIZED VIEW IF NOT EXISTS system_stats_daily
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 day', time) AS day,
		MAX(datagrams_received) AS datagrams_received,
		MAX(dropped_events) AS dropped_events,
		MAX(connection_flips) AS connection_flips,
		MAX(maneuver_attempts) AS maneuver_attempts,
		MAX(maneuver_successes) AS maneuver_successes
	FROM system_stats
	GROUP BY day
	WITH NO DATA;

	CREATE MATERIALIZED VIEW IF NOT EXISTS flight_samples_hourly
	WITH (timescaledb.continuous) AS
	SELECT
		time_bucket('1 hour', time) AS hour,
		COUNT(*) AS sample_count,
		AVG(indicated_airspeed) AS mean_airspeed
	FROM flight_samples
	GROUP BY hour
	WITH NO DATA;
	`,
	DownSQL: `
	DROP MATERIALIZED VIEW IF EXISTS system_stats_daily;
	DROP MATERIALIZED VIEW IF EXISTS flight_samples_hourly;
	SELECT remove_retention_policy('flight_samples');
	SELECT remove_retention_policy('system_stats');
	`,
	CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
}

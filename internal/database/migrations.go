package database

import (
	"database/sql"
	"fmt"
)

// Migrate applies the results-store schema. Safe to run repeatedly.
func Migrate(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS trips (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ride_id TEXT NOT NULL,
			rideable_type TEXT,
			started_at DATETIME NOT NULL,
			ended_at DATETIME NOT NULL,
			start_station_name TEXT,
			start_station_id TEXT,
			end_station_name TEXT,
			end_station_id TEXT,
			start_lat REAL,
			start_lng REAL,
			end_lat REAL,
			end_lng REAL,
			member_casual TEXT,
			duration_min REAL NOT NULL,
			distance_km REAL NOT NULL,
			start_hour INTEGER NOT NULL,
			weekday INTEGER NOT NULL,
			is_weekend INTEGER NOT NULL,
			is_member INTEGER NOT NULL,
			is_round_trip INTEGER NOT NULL,
			is_electric INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_started_at ON trips(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_member_casual ON trips(member_casual)`,

		`CREATE TABLE IF NOT EXISTS cluster_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			algorithm TEXT NOT NULL,
			params TEXT NOT NULL,
			n_clusters INTEGER NOT NULL,
			silhouette REAL,
			davies_bouldin REAL,
			calinski_harabasz REAL,
			runtime_sec REAL NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS assignments (
			run_id INTEGER NOT NULL REFERENCES cluster_runs(id) ON DELETE CASCADE,
			trip_row INTEGER NOT NULL,
			label INTEGER NOT NULL,
			PRIMARY KEY (run_id, trip_row)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_label ON assignments(run_id, label)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}

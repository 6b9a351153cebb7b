package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jengzang/bikeshare-clustering-go/internal/database"
	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// TripRepository handles database operations for cleaned trips.
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository creates a new trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

// ReplaceAll clears the trips table and inserts the given cleaned
// trips in one transaction. Row ids restart from 1, so assignment rows
// reference trips by position.
func (r *TripRepository) ReplaceAll(trips []models.Trip) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM trips`); err != nil {
			return fmt.Errorf("failed to clear trips: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM sqlite_sequence WHERE name = 'trips'`); err != nil {
			return fmt.Errorf("failed to reset trip ids: %w", err)
		}

		stmt, err := tx.Prepare(`INSERT INTO trips (
			ride_id, rideable_type, started_at, ended_at,
			start_station_name, start_station_id, end_station_name, end_station_id,
			start_lat, start_lng, end_lat, end_lng, member_casual,
			duration_min, distance_km, start_hour, weekday,
			is_weekend, is_member, is_round_trip, is_electric
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare trip insert: %w", err)
		}
		defer stmt.Close()

		for i := range trips {
			t := &trips[i]
			_, err := stmt.Exec(
				t.RideID, t.RideableType, t.StartedAt, t.EndedAt,
				t.StartStationName, t.StartStationID, t.EndStationName, t.EndStationID,
				t.StartLat, t.StartLng, t.EndLat, t.EndLng, t.MemberCasual,
				t.DurationMin, t.DistanceKm, t.StartHour, t.Weekday,
				t.IsWeekend, t.IsMember, t.IsRoundTrip, t.IsElectric,
			)
			if err != nil {
				return fmt.Errorf("failed to insert trip %s: %w", t.RideID, err)
			}
		}
		return nil
	})
}

// Count returns the number of stored trips.
func (r *TripRepository) Count() (int64, error) {
	var n int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM trips`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trips: %w", err)
	}
	return n, nil
}

// GetTrips retrieves stored trips with filtering and pagination.
func (r *TripRepository) GetTrips(filter models.TripFilter) ([]models.Trip, error) {
	query := `SELECT ride_id, rideable_type, started_at, ended_at,
		start_station_name, start_station_id, end_station_name, end_station_id,
		start_lat, start_lng, end_lat, end_lng, member_casual,
		duration_min, distance_km, start_hour, weekday,
		is_weekend, is_member, is_round_trip, is_electric
		FROM trips`

	var conditions []string
	var args []interface{}

	if !filter.StartedAfter.IsZero() {
		conditions = append(conditions, "started_at >= ?")
		args = append(args, filter.StartedAfter)
	}
	if !filter.StartedBefore.IsZero() {
		conditions = append(conditions, "started_at <= ?")
		args = append(args, filter.StartedBefore)
	}
	if filter.MemberCasual != "" {
		conditions = append(conditions, "member_casual = ?")
		args = append(args, filter.MemberCasual)
	}
	if filter.RideableType != "" {
		conditions = append(conditions, "rideable_type = ?")
		args = append(args, filter.RideableType)
	}
	if filter.MinDistanceKm > 0 {
		conditions = append(conditions, "distance_km >= ?")
		args = append(args, filter.MinDistanceKm)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 100
	}

	offset := (filter.Page - 1) * filter.PageSize
	query += " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, filter.PageSize, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trips: %w", err)
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		var t models.Trip
		err := rows.Scan(
			&t.RideID, &t.RideableType, &t.StartedAt, &t.EndedAt,
			&t.StartStationName, &t.StartStationID, &t.EndStationName, &t.EndStationID,
			&t.StartLat, &t.StartLng, &t.EndLat, &t.EndLng, &t.MemberCasual,
			&t.DurationMin, &t.DistanceKm, &t.StartHour, &t.Weekday,
			&t.IsWeekend, &t.IsMember, &t.IsRoundTrip, &t.IsElectric,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trips = append(trips, t)
	}

	return trips, rows.Err()
}

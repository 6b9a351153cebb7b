package repository

import (
	"database/sql"
	"fmt"
	"math"

	"github.com/jengzang/bikeshare-clustering-go/internal/database"
	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// RunRepository handles database operations for clustering runs and
// their per-trip label assignments.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun stores one clustering execution and returns its id.
// NaN metrics (undefined below two clusters) are stored as NULL.
func (r *RunRepository) CreateRun(run *models.ClusterRun) (int64, error) {
	res, err := r.db.Exec(`INSERT INTO cluster_runs
		(algorithm, params, n_clusters, silhouette, davies_bouldin, calinski_harabasz, runtime_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.Algorithm, run.Params, run.NClusters,
		nullableFloat(run.Silhouette),
		nullableFloat(run.DaviesBouldin),
		nullableFloat(run.CalinskiHarabasz),
		run.RuntimeSec,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert cluster run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read cluster run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// SaveAssignments stores the label of every trip row for a run.
func (r *RunRepository) SaveAssignments(runID int64, labels []int) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO assignments (run_id, trip_row, label) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare assignment insert: %w", err)
		}
		defer stmt.Close()

		for row, label := range labels {
			if _, err := stmt.Exec(runID, row, label); err != nil {
				return fmt.Errorf("failed to insert assignment for row %d: %w", row, err)
			}
		}
		return nil
	})
}

// GetRuns returns all stored clustering runs, newest first.
func (r *RunRepository) GetRuns() ([]models.ClusterRun, error) {
	rows, err := r.db.Query(`SELECT id, algorithm, params, n_clusters,
		silhouette, davies_bouldin, calinski_harabasz, runtime_sec, created_at
		FROM cluster_runs ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cluster runs: %w", err)
	}
	defer rows.Close()

	var runs []models.ClusterRun
	for rows.Next() {
		var run models.ClusterRun
		var sil, db, ch sql.NullFloat64
		err := rows.Scan(&run.ID, &run.Algorithm, &run.Params, &run.NClusters,
			&sil, &db, &ch, &run.RuntimeSec, &run.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cluster run: %w", err)
		}
		run.Silhouette = floatOrNaN(sil)
		run.DaviesBouldin = floatOrNaN(db)
		run.CalinskiHarabasz = floatOrNaN(ch)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// GetAssignments returns the label per trip row for a run, in row
// order.
func (r *RunRepository) GetAssignments(runID int64) ([]int, error) {
	rows, err := r.db.Query(`SELECT label FROM assignments WHERE run_id = ? ORDER BY trip_row`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var labels []int
	for rows.Next() {
		var l int
		if err := rows.Scan(&l); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		labels = append(labels, l)
	}

	return labels, rows.Err()
}

func nullableFloat(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func floatOrNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

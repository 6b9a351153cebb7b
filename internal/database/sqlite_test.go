package database

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func countRuns(t *testing.T, db *sql.DB) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM cluster_runs`).Scan(&n); err != nil {
		t.Fatalf("failed to count runs: %v", err)
	}
	return n
}

func TestOpenAppliesMigrations(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	for _, table := range []string{"trips", "cluster_runs", "assignments"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing after Open: %v", table, err)
		}
	}

	// Migrations are idempotent.
	if err := Migrate(db); err != nil {
		t.Errorf("second Migrate() error: %v", err)
	}
}

func TestTransactionCommits(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	err := Transaction(db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO cluster_runs (algorithm, params, n_clusters, runtime_sec)
			VALUES ('kmeans', '{}', 3, 0.1)`)
		return err
	})
	if err != nil {
		t.Fatalf("Transaction() error: %v", err)
	}

	if n := countRuns(t, db); n != 1 {
		t.Errorf("got %d runs after commit, want 1", n)
	}
}

func TestTransactionRollsBackOnError(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	boom := errors.New("boom")

	err := Transaction(db, func(tx *sql.Tx) error {
		_, execErr := tx.Exec(`INSERT INTO cluster_runs (algorithm, params, n_clusters, runtime_sec)
			VALUES ('kmeans', '{}', 3, 0.1)`)
		if execErr != nil {
			return execErr
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Transaction() error = %v, want the callback error", err)
	}

	if n := countRuns(t, db); n != 0 {
		t.Errorf("got %d runs after rollback, want 0", n)
	}
}

func TestTransactionRollsBackOnPanic(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic did not propagate")
			}
		}()
		_ = Transaction(db, func(tx *sql.Tx) error {
			if _, err := tx.Exec(`INSERT INTO cluster_runs (algorithm, params, n_clusters, runtime_sec)
				VALUES ('kmeans', '{}', 3, 0.1)`); err != nil {
				return fmt.Errorf("unexpected insert failure: %w", err)
			}
			panic("boom")
		})
	}()

	if n := countRuns(t, db); n != 0 {
		t.Errorf("got %d runs after panic, want 0", n)
	}
}

package report

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}
	return records
}

func TestWriteElbow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewTableWriter(dir, zerolog.Nop())

	points := []models.ElbowPoint{
		{K: 3, Silhouette: 0.42, DaviesBouldin: 1.1, CalinskiHarabasz: 900, Inertia: 1500},
		{K: 4, Silhouette: 0.38, DaviesBouldin: 1.3, CalinskiHarabasz: 850, Inertia: 1200},
	}
	if err := w.WriteElbow(points, "elbow.csv"); err != nil {
		t.Fatalf("WriteElbow() error: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "elbow.csv"))
	if len(records) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(records))
	}
	if records[0][0] != "k" || records[1][0] != "3" || records[2][0] != "4" {
		t.Errorf("unexpected rows: %v", records)
	}
	if records[1][1] != "0.4200" {
		t.Errorf("silhouette cell = %q, want 0.4200", records[1][1])
	}
}

func TestWriteComparison(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewTableWriter(dir, zerolog.Nop())

	rows := []ComparisonRow{
		{Algorithm: "kmeans", NClusters: 5, Metrics: models.Metrics{Silhouette: 0.4, DaviesBouldin: 1.2, CalinskiHarabasz: 800}, RuntimeSec: 2.5},
		{Algorithm: "dbscan", NClusters: 1, Metrics: models.Metrics{Silhouette: math.NaN(), DaviesBouldin: math.NaN(), CalinskiHarabasz: math.NaN()}, RuntimeSec: 0.4},
	}
	if err := w.WriteComparison(rows, "comparison.csv"); err != nil {
		t.Fatalf("WriteComparison() error: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "comparison.csv"))
	if len(records) != 3 {
		t.Fatalf("got %d rows, want 3", len(records))
	}
	if records[1][0] != "kmeans" || records[2][0] != "dbscan" {
		t.Errorf("algorithms: %v, %v", records[1][0], records[2][0])
	}
	// Undefined metrics serialize as NaN, not as zero.
	if records[2][2] != "NaN" {
		t.Errorf("NaN silhouette cell = %q", records[2][2])
	}
}

func TestWriteCharacteristics(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewTableWriter(dir, zerolog.Nop())

	start := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	trips := []models.Trip{
		{StartedAt: start, DurationMin: 10, DistanceKm: 2, StartHour: 8, IsMember: 1, StartStationName: "Broadway", EndStationName: "Wall St"},
		{StartedAt: start, DurationMin: 14, DistanceKm: 3, StartHour: 9, IsMember: 1, StartStationName: "Broadway", EndStationName: "Union Sq"},
		{StartedAt: start, DurationMin: 50, DistanceKm: 0, StartHour: 14, IsRoundTrip: 1, IsWeekend: 1, StartStationName: "Central Park", EndStationName: "Central Park"},
		{StartedAt: start, DurationMin: 99, DistanceKm: 9, StartHour: 23, StartStationName: "X", EndStationName: "Y"},
	}
	labels := []int{0, 0, 1, models.NoiseLabel}
	interpretations := map[int]string{0: "Commuters", 1: "Loops"}

	if err := w.WriteCharacteristics(trips, labels, interpretations, "chars.csv"); err != nil {
		t.Fatalf("WriteCharacteristics() error: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "chars.csv"))
	// Header plus two clusters; noise is excluded.
	if len(records) != 3 {
		t.Fatalf("got %d rows, want 3", len(records))
	}

	c0 := records[1]
	if c0[0] != "0" || c0[1] != "Commuters" || c0[2] != "2" {
		t.Errorf("cluster 0 row: %v", c0)
	}
	if c0[4] != "12.00" {
		t.Errorf("avg duration cell = %q, want 12.00", c0[4])
	}
	if c0[10] != "Broadway" {
		t.Errorf("top start station = %q, want Broadway", c0[10])
	}

	c1 := records[2]
	if c1[1] != "Loops" || c1[10] != "Central Park" {
		t.Errorf("cluster 1 row: %v", c1)
	}
	// Shares are over assigned points only (noise excluded).
	if c0[3] != "66.7" || c1[3] != "33.3" {
		t.Errorf("pct cells: %q, %q", c0[3], c1[3])
	}
}

func TestWriteCharacteristicsLengthMismatch(t *testing.T) {
	t.Parallel()

	w := NewTableWriter(t.TempDir(), zerolog.Nop())
	err := w.WriteCharacteristics([]models.Trip{{}}, []int{0, 1}, nil, "chars.csv")
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestWriteTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewTableWriter(dir, zerolog.Nop())

	start := time.Date(2024, 1, 15, 8, 5, 0, 0, time.UTC)
	trips := []models.Trip{{
		RideID: "A1", RideableType: "classic_bike",
		StartedAt: start, EndedAt: start.Add(15 * time.Minute),
		StartStationName: "Broadway", EndStationName: "Wall St",
		StartLat: 40.75, StartLng: -73.99, EndLat: 40.70, EndLng: -74.01,
		MemberCasual: "member",
		DurationMin:  15, DistanceKm: 5.7, StartHour: 8,
		IsMember: 1,
	}}

	if err := w.WriteTrips(trips, "trips_clean.csv"); err != nil {
		t.Fatalf("WriteTrips() error: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "trips_clean.csv"))
	if len(records) != 2 {
		t.Fatalf("got %d rows, want 2", len(records))
	}
	if len(records[0]) != 21 {
		t.Errorf("header has %d columns, want 21", len(records[0]))
	}
	if records[1][0] != "A1" || records[1][2] != "2024-01-15 08:05:00" {
		t.Errorf("trip row: %v", records[1])
	}
}

func TestWriteQuality(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	w := NewTableWriter(dir, zerolog.Nop())

	report := models.QualityReport{
		TotalRows:          100,
		MissingCoordinates: 3,
		NegativeDurations:  1,
		MissingByColumn:    map[string]int{"end_coords": 3},
		MemberCasualCounts: map[string]int{"member": 70, "casual": 30},
	}
	if err := w.WriteQuality(report, "quality.csv"); err != nil {
		t.Fatalf("WriteQuality() error: %v", err)
	}

	records := readCSV(t, filepath.Join(dir, "quality.csv"))
	found := make(map[string]string)
	for _, rec := range records[1:] {
		found[rec[0]] = rec[1]
	}
	if found["total_rows"] != "100" {
		t.Errorf("total_rows = %q", found["total_rows"])
	}
	if found["missing_end_coords"] != "3" {
		t.Errorf("missing_end_coords = %q", found["missing_end_coords"])
	}
	if found["rider_type_member"] != "70" {
		t.Errorf("rider_type_member = %q", found["rider_type_member"])
	}
}

func TestMode(t *testing.T) {
	t.Parallel()

	if got := mode(map[string]int{"a": 2, "b": 5, "c": 1}); got != "b" {
		t.Errorf("mode() = %q, want b", got)
	}
	// Ties break alphabetically.
	if got := mode(map[string]int{"b": 3, "a": 3}); got != "a" {
		t.Errorf("mode() tie = %q, want a", got)
	}
	if got := mode(nil); got != "" {
		t.Errorf("mode(nil) = %q, want empty", got)
	}
}

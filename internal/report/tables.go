package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// TableWriter renders analysis tables as CSV files under a fixed
// directory.
type TableWriter struct {
	dir    string
	logger zerolog.Logger
}

// NewTableWriter creates a table writer rooted at dir.
func NewTableWriter(dir string, logger zerolog.Logger) *TableWriter {
	return &TableWriter{dir: dir, logger: logger.With().Str("component", "tables").Logger()}
}

// ComparisonRow is one algorithm's scores in the comparison table.
type ComparisonRow struct {
	Algorithm  string
	NClusters  int
	Metrics    models.Metrics
	RuntimeSec float64
}

// WriteComparison writes one row per algorithm with its validity
// scores and runtime.
func (w *TableWriter) WriteComparison(rows []ComparisonRow, name string) error {
	records := [][]string{{
		"algorithm", "n_clusters", "silhouette", "davies_bouldin", "calinski_harabasz", "runtime_sec",
	}}
	for _, r := range rows {
		records = append(records, []string{
			r.Algorithm,
			strconv.Itoa(r.NClusters),
			formatFloat(r.Metrics.Silhouette, 4),
			formatFloat(r.Metrics.DaviesBouldin, 4),
			formatFloat(r.Metrics.CalinskiHarabasz, 2),
			formatFloat(r.RuntimeSec, 3),
		})
	}
	return w.write(name, records)
}

// WriteElbow writes the K-Means sweep table, one row per k.
func (w *TableWriter) WriteElbow(points []models.ElbowPoint, name string) error {
	records := [][]string{{
		"k", "silhouette", "davies_bouldin", "calinski_harabasz", "inertia",
	}}
	for _, pt := range points {
		records = append(records, []string{
			strconv.Itoa(pt.K),
			formatFloat(pt.Silhouette, 4),
			formatFloat(pt.DaviesBouldin, 4),
			formatFloat(pt.CalinskiHarabasz, 2),
			formatFloat(pt.Inertia, 2),
		})
	}
	return w.write(name, records)
}

// WriteCharacteristics writes one row per cluster: its interpretation,
// size, behavioral averages and most common stations. Noise points are
// left out because they describe no coherent rider group.
func (w *TableWriter) WriteCharacteristics(trips []models.Trip, labels []int, interpretations map[int]string, name string) error {
	if len(trips) != len(labels) {
		return fmt.Errorf("got %d trips but %d labels", len(trips), len(labels))
	}

	type group struct {
		n            int
		duration     float64
		distance     float64
		hour         float64
		weekend      int
		member       int
		roundTrip    int
		startStation map[string]int
		endStation   map[string]int
	}

	groups := make(map[int]*group)
	assigned := 0
	for i := range trips {
		label := labels[i]
		if label == models.NoiseLabel {
			continue
		}
		assigned++
		g := groups[label]
		if g == nil {
			g = &group{
				startStation: make(map[string]int),
				endStation:   make(map[string]int),
			}
			groups[label] = g
		}
		t := &trips[i]
		g.n++
		g.duration += t.DurationMin
		g.distance += t.DistanceKm
		g.hour += float64(t.StartHour)
		g.weekend += t.IsWeekend
		g.member += t.IsMember
		g.roundTrip += t.IsRoundTrip
		g.startStation[t.StartStationName]++
		g.endStation[t.EndStationName]++
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	records := [][]string{{
		"cluster", "interpretation", "size", "pct",
		"avg_duration_min", "avg_distance_km", "avg_start_hour",
		"pct_weekend", "pct_member", "pct_round_trip",
		"top_start_station", "top_end_station",
	}}
	for _, id := range ids {
		g := groups[id]
		n := float64(g.n)
		records = append(records, []string{
			strconv.Itoa(id),
			interpretations[id],
			strconv.Itoa(g.n),
			formatFloat(100*n/float64(assigned), 1),
			formatFloat(g.duration/n, 2),
			formatFloat(g.distance/n, 2),
			formatFloat(g.hour/n, 1),
			formatFloat(100*float64(g.weekend)/n, 1),
			formatFloat(100*float64(g.member)/n, 1),
			formatFloat(100*float64(g.roundTrip)/n, 1),
			mode(g.startStation),
			mode(g.endStation),
		})
	}
	return w.write(name, records)
}

// WriteTrips writes cleaned trips with their derived columns to CSV,
// one row per trip in input order.
func (w *TableWriter) WriteTrips(trips []models.Trip, name string) error {
	records := [][]string{{
		"ride_id", "rideable_type", "started_at", "ended_at",
		"start_station_name", "start_station_id", "end_station_name", "end_station_id",
		"start_lat", "start_lng", "end_lat", "end_lng", "member_casual",
		"duration_min", "distance_km", "start_hour", "weekday",
		"is_weekend", "is_member", "is_round_trip", "is_electric",
	}}
	for i := range trips {
		t := &trips[i]
		records = append(records, []string{
			t.RideID, t.RideableType,
			t.StartedAt.Format("2006-01-02 15:04:05"),
			t.EndedAt.Format("2006-01-02 15:04:05"),
			t.StartStationName, t.StartStationID, t.EndStationName, t.EndStationID,
			formatFloat(t.StartLat, 6), formatFloat(t.StartLng, 6),
			formatFloat(t.EndLat, 6), formatFloat(t.EndLng, 6),
			t.MemberCasual,
			formatFloat(t.DurationMin, 4), formatFloat(t.DistanceKm, 4),
			strconv.Itoa(t.StartHour), strconv.Itoa(t.Weekday),
			strconv.Itoa(t.IsWeekend), strconv.Itoa(t.IsMember),
			strconv.Itoa(t.IsRoundTrip), strconv.Itoa(t.IsElectric),
		})
	}
	return w.write(name, records)
}

// WriteQuality writes the data-quality report as key/value rows.
func (w *TableWriter) WriteQuality(report models.QualityReport, name string) error {
	records := [][]string{
		{"metric", "value"},
		{"total_rows", strconv.Itoa(report.TotalRows)},
		{"missing_coordinates", strconv.Itoa(report.MissingCoordinates)},
		{"negative_durations", strconv.Itoa(report.NegativeDurations)},
		{"zero_durations", strconv.Itoa(report.ZeroDurations)},
		{"extreme_durations", strconv.Itoa(report.ExtremeDurations)},
	}

	for _, key := range sortedKeys(report.MissingByColumn) {
		records = append(records, []string{"missing_" + key, strconv.Itoa(report.MissingByColumn[key])})
	}
	for _, key := range sortedKeys(report.MemberCasualCounts) {
		records = append(records, []string{"rider_type_" + key, strconv.Itoa(report.MemberCasualCounts[key])})
	}
	return w.write(name, records)
}

// WriteStability writes the repeated-seed silhouette summary.
func (w *TableWriter) WriteStability(report models.StabilityReport, name string) error {
	records := [][]string{
		{"metric", "value"},
		{"k", strconv.Itoa(report.K)},
		{"runs", strconv.Itoa(report.Runs)},
		{"mean_silhouette", formatFloat(report.MeanSilhouette, 4)},
		{"std_silhouette", formatFloat(report.StdSilhouette, 4)},
		{"min_silhouette", formatFloat(report.MinSilhouette, 4)},
		{"max_silhouette", formatFloat(report.MaxSilhouette, 4)},
		{"stable", strconv.FormatBool(report.Stable)},
	}
	return w.write(name, records)
}

func (w *TableWriter) write(name string, records [][]string) error {
	path := w.dir + "/" + name
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write table %s: %w", name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush table %s: %w", name, err)
	}

	w.logger.Info().Str("path", path).Int("rows", len(records)-1).Msg("table written")
	return nil
}

// mode returns the most frequent key, breaking ties alphabetically so
// output stays deterministic.
func mode(counts map[string]int) string {
	best := ""
	bestN := -1
	for _, key := range sortedKeys(counts) {
		if counts[key] > bestN {
			best = key
			bestN = counts[key]
		}
	}
	return best
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// ErrMissingColumns marks a CSV file that does not satisfy the
// expected trip schema.
var ErrMissingColumns = errors.New("missing expected columns")

// ExpectedColumns is the post-2020 CitiBike trip schema. Files missing
// any of these columns abort the load; extra columns are dropped.
var ExpectedColumns = []string{
	"ride_id",
	"rideable_type",
	"started_at",
	"ended_at",
	"start_station_name",
	"start_station_id",
	"end_station_name",
	"end_station_id",
	"start_lat",
	"start_lng",
	"end_lat",
	"end_lng",
	"member_casual",
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Loader reads and merges raw trip CSV files.
type Loader struct {
	dataDir string
	logger  zerolog.Logger
}

// New creates a new Loader over the given raw data directory.
func New(dataDir string, logger zerolog.Logger) *Loader {
	return &Loader{dataDir: dataDir, logger: logger}
}

// RawCSVFiles returns the sorted trip-data CSV files in the raw data
// directory, skipping metadata files that do not follow the trip file
// naming convention.
func (l *Loader) RawCSVFiles() ([]string, error) {
	if _, err := os.Stat(l.dataDir); err != nil {
		return nil, fmt.Errorf("raw data directory not found: %s: %w", l.dataDir, err)
	}

	all, err := filepath.Glob(filepath.Join(l.dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list CSV files: %w", err)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no CSV files found in %s", l.dataDir)
	}

	var files []string
	for _, f := range all {
		if isTripFile(filepath.Base(f)) {
			files = append(files, f)
		}
	}
	sort.Strings(files)

	l.logger.Info().
		Int("trip_files", len(files)).
		Int("skipped", len(all)-len(files)).
		Msg("discovered raw CSV files")

	if len(files) == 0 {
		return nil, fmt.Errorf("no trip data CSV files found in %s", l.dataDir)
	}
	return files, nil
}

// isTripFile filters out provenance/metadata CSVs shipped alongside
// the monthly trip exports.
func isTripFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "citibike-tripdata") || strings.HasPrefix(name, "202")
}

// LoadAll reads and merges every trip CSV file. sampleFraction in
// (0,1) keeps a random subset of the merged rows, drawn with the given
// seed; a fraction of 1 (or more) keeps everything.
func (l *Loader) LoadAll(sampleFraction float64, seed int64) ([]models.Trip, error) {
	files, err := l.RawCSVFiles()
	if err != nil {
		return nil, err
	}

	var trips []models.Trip
	for _, f := range files {
		fileTrips, err := l.loadFile(f)
		if err != nil {
			return nil, err
		}
		l.logger.Info().Str("file", filepath.Base(f)).Int("rows", len(fileTrips)).Msg("loaded trip file")
		trips = append(trips, fileTrips...)
	}

	if sampleFraction > 0 && sampleFraction < 1 {
		before := len(trips)
		trips = sample(trips, sampleFraction, seed)
		l.logger.Info().
			Float64("fraction", sampleFraction).
			Int("before", before).
			Int("after", len(trips)).
			Msg("sampled dataset")
	}

	summary := Summarize(trips)
	l.logger.Info().
		Int("total_trips", summary.TotalTrips).
		Time("date_start", summary.DateStart).
		Time("date_end", summary.DateEnd).
		Int("member_trips", summary.MemberTrips).
		Int("casual_trips", summary.CasualTrips).
		Msg("dataset loaded")

	return trips, nil
}

// loadFile reads one CSV file, validating its header against the
// expected schema.
func (l *Loader) loadFile(path string) ([]models.Trip, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	cols, err := validateHeader(header, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	// Malformed rows (bad quoting, wrong field count) abort the load:
	// continuing would silently truncate the dataset.
	var trips []models.Trip
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		trips = append(trips, parseTrip(record, cols))
	}

	return trips, nil
}

// validateHeader maps expected column names to their index in the
// file, rejecting files with missing columns. Extra columns are
// ignored.
func validateHeader(header []string, filename string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	var missing []string
	cols := make(map[string]int, len(ExpectedColumns))
	for _, name := range ExpectedColumns {
		i, ok := index[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[name] = i
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("file %s %w: %s (available: %s)",
			filename, ErrMissingColumns,
			strings.Join(missing, ", "), strings.Join(header, ", "))
	}
	return cols, nil
}

func parseTrip(record []string, cols map[string]int) models.Trip {
	field := func(name string) string {
		return strings.TrimSpace(record[cols[name]])
	}

	return models.Trip{
		RideID:           field("ride_id"),
		RideableType:     field("rideable_type"),
		StartedAt:        parseTime(field("started_at")),
		EndedAt:          parseTime(field("ended_at")),
		StartStationName: field("start_station_name"),
		StartStationID:   field("start_station_id"),
		EndStationName:   field("end_station_name"),
		EndStationID:     field("end_station_id"),
		StartLat:         parseCoord(field("start_lat")),
		StartLng:         parseCoord(field("start_lng")),
		EndLat:           parseCoord(field("end_lat")),
		EndLng:           parseCoord(field("end_lng")),
		MemberCasual:     field("member_casual"),
	}
}

// parseTime parses a trip timestamp. Unparseable values become the
// zero time and are dropped later by the duration filters.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// parseCoord parses a coordinate, using NaN for missing values.
func parseCoord(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// sample keeps a random fraction of the trips, deterministically for a
// given seed.
func sample(trips []models.Trip, fraction float64, seed int64) []models.Trip {
	rng := rand.New(rand.NewSource(seed))
	n := int(math.Round(float64(len(trips)) * fraction))
	if n >= len(trips) {
		return trips
	}

	perm := rng.Perm(len(trips))
	sampled := make([]models.Trip, 0, n)
	for _, idx := range perm[:n] {
		sampled = append(sampled, trips[idx])
	}
	return sampled
}

// Summarize computes summary statistics over a loaded dataset.
func Summarize(trips []models.Trip) models.TripSummary {
	s := models.TripSummary{TotalTrips: len(trips)}

	startStations := make(map[string]struct{})
	endStations := make(map[string]struct{})

	for i := range trips {
		t := &trips[i]
		if !t.StartedAt.IsZero() {
			if s.DateStart.IsZero() || t.StartedAt.Before(s.DateStart) {
				s.DateStart = t.StartedAt
			}
			if t.StartedAt.After(s.DateEnd) {
				s.DateEnd = t.StartedAt
			}
		}
		if t.StartStationName != "" {
			startStations[t.StartStationName] = struct{}{}
		} else {
			s.MissingStartStation++
		}
		if t.EndStationName != "" {
			endStations[t.EndStationName] = struct{}{}
		}
		switch t.MemberCasual {
		case "member":
			s.MemberTrips++
		case "casual":
			s.CasualTrips++
		}
		if math.IsNaN(t.StartLat) || math.IsNaN(t.StartLng) {
			s.MissingStartCoords++
		}
		if math.IsNaN(t.EndLat) || math.IsNaN(t.EndLng) {
			s.MissingEndCoords++
		}
	}

	s.UniqueStartStations = len(startStations)
	s.UniqueEndStations = len(endStations)
	return s
}

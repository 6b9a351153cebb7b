package loader

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

const header = "ride_id,rideable_type,started_at,ended_at,start_station_name,start_station_id,end_station_name,end_station_id,start_lat,start_lng,end_lat,end_lng,member_casual"

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "202401-citibike-tripdata.csv", header+"\n"+
		"A1,classic_bike,2024-01-15 08:05:00,2024-01-15 08:20:00,Broadway,101,Wall St,102,40.75,-73.99,40.70,-74.01,member\n"+
		"A2,electric_bike,2024-01-20 14:00:00,2024-01-20 14:45:00,Central Park,103,Central Park,103,40.78,-73.97,40.78,-73.97,casual\n")
	writeCSV(t, dir, "202402-citibike-tripdata.csv", header+"\n"+
		"B1,classic_bike,2024-02-03 17:30:00,2024-02-03 17:50:00,5th Ave,104,Union Sq,105,40.74,-73.99,40.73,-73.99,member\n")
	// Metadata file must be skipped.
	writeCSV(t, dir, "stations.csv", "id,name\n1,Broadway\n")

	l := New(dir, zerolog.Nop())
	trips, err := l.LoadAll(1.0, 42)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if len(trips) != 3 {
		t.Fatalf("got %d trips, want 3", len(trips))
	}
	// Files are merged in sorted order.
	if trips[0].RideID != "A1" || trips[2].RideID != "B1" {
		t.Errorf("unexpected merge order: %s .. %s", trips[0].RideID, trips[2].RideID)
	}
	if trips[0].MemberCasual != "member" {
		t.Errorf("MemberCasual = %q, want member", trips[0].MemberCasual)
	}
	if trips[0].StartedAt.Hour() != 8 {
		t.Errorf("StartedAt hour = %d, want 8", trips[0].StartedAt.Hour())
	}
}

func TestLoadAllMissingColumns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "202401-citibike-tripdata.csv",
		"ride_id,started_at,ended_at\nA1,2024-01-15 08:05:00,2024-01-15 08:20:00\n")

	l := New(dir, zerolog.Nop())
	_, err := l.LoadAll(1.0, 42)
	if err == nil {
		t.Fatal("expected schema error")
	}
	if !errors.Is(err, ErrMissingColumns) {
		t.Errorf("error does not wrap ErrMissingColumns: %v", err)
	}
	if !strings.Contains(err.Error(), "202401-citibike-tripdata.csv") {
		t.Errorf("error does not name the offending file: %v", err)
	}
	if !strings.Contains(err.Error(), "start_lat") {
		t.Errorf("error does not list missing columns: %v", err)
	}
}

func TestLoadAllExtraColumnsIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "202401-citibike-tripdata.csv",
		header+",extra_col\n"+
			"A1,classic_bike,2024-01-15 08:05:00,2024-01-15 08:20:00,Broadway,101,Wall St,102,40.75,-73.99,40.70,-74.01,member,whatever\n")

	l := New(dir, zerolog.Nop())
	trips, err := l.LoadAll(1.0, 42)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(trips) != 1 || trips[0].RideID != "A1" {
		t.Fatalf("unexpected trips: %+v", trips)
	}
}

func TestLoadAllSampling(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var b strings.Builder
	b.WriteString(header + "\n")
	for i := 0; i < 100; i++ {
		b.WriteString("R,classic_bike,2024-01-15 08:05:00,2024-01-15 08:20:00,A,1,B,2,40.75,-73.99,40.70,-74.01,member\n")
	}
	writeCSV(t, dir, "202401-citibike-tripdata.csv", b.String())

	l := New(dir, zerolog.Nop())
	trips, err := l.LoadAll(0.25, 42)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(trips) != 25 {
		t.Errorf("got %d sampled trips, want 25", len(trips))
	}

	// Same seed, same subset size.
	again, err := l.LoadAll(0.25, 42)
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}
	if len(again) != len(trips) {
		t.Errorf("sampling not deterministic: %d vs %d", len(again), len(trips))
	}
}

func TestLoadAllMalformedQuote(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "202401-citibike-tripdata.csv", header+"\n"+
		"A1,classic_bike,2024-01-15 08:05:00,2024-01-15 08:20:00,Broadway,101,Wall St,102,40.75,-73.99,40.70,-74.01,member\n"+
		"A2,classic_bike,2024-01-15 09:00:00,2024-01-15 09:10:00,\"Broken,101,Wall St,102,40.75,-73.99,40.70,-74.01,member\n"+
		"A3,classic_bike,2024-01-15 10:00:00,2024-01-15 10:10:00,Broadway,101,Wall St,102,40.75,-73.99,40.70,-74.01,member\n")

	l := New(dir, zerolog.Nop())
	_, err := l.LoadAll(1.0, 42)
	if err == nil {
		t.Fatal("expected error for unterminated quote, rows must not be silently dropped")
	}
	if !strings.Contains(err.Error(), "202401-citibike-tripdata.csv") {
		t.Errorf("error does not name the offending file: %v", err)
	}
}

func TestLoadAllWrongFieldCount(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "202401-citibike-tripdata.csv", header+"\n"+
		"A1,classic_bike,2024-01-15 08:05:00,2024-01-15 08:20:00,Broadway,101,Wall St,102,40.75,-73.99,40.70,-74.01,member\n"+
		"A2,classic_bike,2024-01-15 09:00:00\n")

	l := New(dir, zerolog.Nop())
	if _, err := l.LoadAll(1.0, 42); err == nil {
		t.Fatal("expected error for row with wrong field count")
	}
}

func TestLoadAllNoFiles(t *testing.T) {
	t.Parallel()

	l := New(t.TempDir(), zerolog.Nop())
	if _, err := l.LoadAll(1.0, 42); err == nil {
		t.Fatal("expected error for empty directory")
	}
}

func TestParseCoord(t *testing.T) {
	t.Parallel()

	if v := parseCoord(""); !math.IsNaN(v) {
		t.Errorf("parseCoord(\"\") = %v, want NaN", v)
	}
	if v := parseCoord("bogus"); !math.IsNaN(v) {
		t.Errorf("parseCoord(bogus) = %v, want NaN", v)
	}
	if v := parseCoord("40.75"); v != 40.75 {
		t.Errorf("parseCoord(40.75) = %v", v)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeCSV(t, dir, "202401-citibike-tripdata.csv", header+"\n"+
		"A1,classic_bike,2024-01-15 08:05:00,2024-01-15 08:20:00,Broadway,101,Wall St,102,40.75,-73.99,40.70,-74.01,member\n"+
		"A2,electric_bike,2024-01-20 14:00:00,2024-01-20 14:45:00,,103,Central Park,103,,,40.78,-73.97,casual\n")

	l := New(dir, zerolog.Nop())
	trips, err := l.LoadAll(1.0, 42)
	if err != nil {
		t.Fatal(err)
	}

	s := Summarize(trips)
	if s.TotalTrips != 2 {
		t.Errorf("TotalTrips = %d, want 2", s.TotalTrips)
	}
	if s.MemberTrips != 1 || s.CasualTrips != 1 {
		t.Errorf("member/casual = %d/%d, want 1/1", s.MemberTrips, s.CasualTrips)
	}
	if s.MissingStartStation != 1 {
		t.Errorf("MissingStartStation = %d, want 1", s.MissingStartStation)
	}
	if s.MissingStartCoords != 1 {
		t.Errorf("MissingStartCoords = %d, want 1", s.MissingStartCoords)
	}
	if s.UniqueStartStations != 1 || s.UniqueEndStations != 2 {
		t.Errorf("unique stations = %d/%d, want 1/2", s.UniqueStartStations, s.UniqueEndStations)
	}
}

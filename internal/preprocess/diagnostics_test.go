package preprocess

import (
	"math"
	"testing"
	"time"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

func TestQualityReport(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

	noCoords := validTrip(base, 10)
	noCoords.StartLat = math.NaN()

	negative := validTrip(base, 10)
	negative.EndedAt = base.Add(-10 * time.Minute)

	marathon := validTrip(base, 500)

	noStation := validTrip(base, 10)
	noStation.EndStationName = ""

	trips := []models.Trip{
		validTrip(base, 15),
		noCoords,
		negative,
		marathon,
		noStation,
	}

	report := QualityReport(trips)
	if report.TotalRows != 5 {
		t.Errorf("TotalRows = %d, want 5", report.TotalRows)
	}
	if report.MissingCoordinates != 1 {
		t.Errorf("MissingCoordinates = %d, want 1", report.MissingCoordinates)
	}
	if report.NegativeDurations != 1 {
		t.Errorf("NegativeDurations = %d, want 1", report.NegativeDurations)
	}
	if report.ExtremeDurations != 1 {
		t.Errorf("ExtremeDurations = %d, want 1", report.ExtremeDurations)
	}
	if report.MissingByColumn["start_coords"] != 1 {
		t.Errorf("missing start_coords = %d, want 1", report.MissingByColumn["start_coords"])
	}
	if report.MissingByColumn["end_station_name"] != 1 {
		t.Errorf("missing end_station_name = %d, want 1", report.MissingByColumn["end_station_name"])
	}
	if report.MemberCasualCounts["member"] != 5 {
		t.Errorf("member count = %d, want 5", report.MemberCasualCounts["member"])
	}

	// Input rows keep their zero derived columns.
	if trips[0].DurationMin != 0 {
		t.Error("input slice was mutated")
	}
}

package preprocess

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

func TestEngineerFeatures(t *testing.T) {
	t.Parallel()

	// 2024-01-15 is a Monday, 2024-01-20 a Saturday.
	monday := time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC)
	saturday := time.Date(2024, 1, 20, 14, 0, 0, 0, time.UTC)

	trips := []models.Trip{
		{
			StartedAt:        monday,
			StartStationName: "A", EndStationName: "B",
			MemberCasual: "member",
			RideableType: "classic_bike",
		},
		{
			StartedAt:        saturday,
			StartStationName: "Park", EndStationName: "Park",
			MemberCasual: "casual",
			RideableType: "electric_bike",
		},
	}

	out := EngineerFeatures(trips, zerolog.Nop())

	m := out[0]
	if m.StartHour != 8 {
		t.Errorf("StartHour = %d, want 8", m.StartHour)
	}
	if m.Weekday != 0 {
		t.Errorf("monday Weekday = %d, want 0", m.Weekday)
	}
	if m.IsWeekend != 0 || m.IsMember != 1 || m.IsRoundTrip != 0 || m.IsElectric != 0 {
		t.Errorf("unexpected flags for weekday member trip: %+v", m)
	}

	s := out[1]
	if s.Weekday != 5 {
		t.Errorf("saturday Weekday = %d, want 5", s.Weekday)
	}
	if s.IsWeekend != 1 || s.IsMember != 0 || s.IsRoundTrip != 1 || s.IsElectric != 1 {
		t.Errorf("unexpected flags for weekend casual round trip: %+v", s)
	}

	// Input untouched.
	if trips[0].StartHour != 0 && trips[0].StartedAt.Hour() != trips[0].StartHour {
		t.Error("input slice was mutated")
	}
}

func TestMondayWeekday(t *testing.T) {
	t.Parallel()

	tests := []struct {
		day  time.Weekday
		want int
	}{
		{time.Monday, 0},
		{time.Tuesday, 1},
		{time.Friday, 4},
		{time.Saturday, 5},
		{time.Sunday, 6},
	}
	for _, tt := range tests {
		if got := mondayWeekday(tt.day); got != tt.want {
			t.Errorf("mondayWeekday(%v) = %d, want %d", tt.day, got, tt.want)
		}
	}
}

func TestFeatureMatrixOrder(t *testing.T) {
	t.Parallel()

	trip := models.Trip{
		DurationMin: 12.5,
		DistanceKm:  2.3,
		StartHour:   8,
		Weekday:     4,
		IsWeekend:   0,
		IsMember:    1,
		IsRoundTrip: 0,
		IsElectric:  1,
	}

	X := FeatureMatrix([]models.Trip{trip})
	if len(X) != 1 {
		t.Fatalf("got %d rows, want 1", len(X))
	}
	want := []float64{12.5, 2.3, 8, 4, 0, 1, 0, 1}
	if len(X[0]) != len(models.FeatureColumns) {
		t.Fatalf("got %d columns, want %d", len(X[0]), len(models.FeatureColumns))
	}
	for j, v := range want {
		if X[0][j] != v {
			t.Errorf("column %s = %v, want %v", models.FeatureColumns[j], X[0][j], v)
		}
	}
}

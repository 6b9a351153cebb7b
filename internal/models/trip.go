package models

import "time"

// Trip represents one bike-share rental event.
// The raw fields mirror the post-2020 CitiBike CSV schema; the derived
// fields are filled in during preprocessing and are deterministic
// functions of the raw fields.
type Trip struct {
	RideID           string
	RideableType     string
	StartedAt        time.Time
	EndedAt          time.Time
	StartStationName string
	StartStationID   string
	EndStationName   string
	EndStationID     string
	StartLat         float64 // NaN when missing in the source file
	StartLng         float64
	EndLat           float64
	EndLng           float64
	MemberCasual     string

	// Derived columns.
	DurationMin float64
	DistanceKm  float64
	StartHour   int
	Weekday     int // 0=Monday .. 6=Sunday
	IsWeekend   int
	IsMember    int
	IsRoundTrip int
	IsElectric  int
}

// FeatureColumns lists the clustering features in their fixed order.
// The feature matrix built from cleaned trips always has exactly these
// columns, so fitted pipelines stay applicable to future data.
var FeatureColumns = []string{
	"duration_min",
	"distance_km",
	"start_hour",
	"weekday",
	"is_weekend",
	"is_member",
	"is_round_trip",
	"is_electric",
}

// Features returns the trip's feature vector in FeatureColumns order.
func (t *Trip) Features() []float64 {
	return []float64{
		t.DurationMin,
		t.DistanceKm,
		float64(t.StartHour),
		float64(t.Weekday),
		float64(t.IsWeekend),
		float64(t.IsMember),
		float64(t.IsRoundTrip),
		float64(t.IsElectric),
	}
}

package preprocess

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// EngineerFeatures fills the clustering features on cleaned trips:
//
//   - start_hour: hour of day (0-23)
//   - weekday: day of week (0=Monday .. 6=Sunday)
//   - is_weekend: 1 if Saturday/Sunday
//   - is_member: 1 if the rider is a member
//   - is_round_trip: 1 if start and end station match
//   - is_electric: 1 if the bike is electric
//
// Duration and distance are already derived by cleaning.
func EngineerFeatures(trips []models.Trip, logger zerolog.Logger) []models.Trip {
	out := make([]models.Trip, len(trips))
	copy(out, trips)

	for i := range out {
		t := &out[i]

		t.StartHour = t.StartedAt.Hour()
		t.Weekday = mondayWeekday(t.StartedAt.Weekday())
		t.IsWeekend = boolToInt(t.Weekday >= 5)
		t.IsMember = boolToInt(t.MemberCasual == "member")
		t.IsRoundTrip = boolToInt(t.StartStationName == t.EndStationName)
		t.IsElectric = boolToInt(t.RideableType == "electric_bike")
	}

	logger.Info().
		Int("rows", len(out)).
		Int("features", len(models.FeatureColumns)).
		Msg("feature engineering complete")

	return out
}

// FeatureMatrix builds the fixed-column numeric matrix for clustering,
// one row per trip in FeatureColumns order.
func FeatureMatrix(trips []models.Trip) [][]float64 {
	X := make([][]float64, len(trips))
	for i := range trips {
		X[i] = trips[i].Features()
	}
	return X
}

// mondayWeekday converts Go's Sunday-based weekday to 0=Monday.
func mondayWeekday(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package preprocess

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
	"github.com/jengzang/bikeshare-clustering-go/internal/spatial"
	"github.com/jengzang/bikeshare-clustering-go/internal/stats"
)

// Cleaning bounds. Trips outside these are rental artifacts (dock
// errors, abandoned bikes) or GPS errors, not rider behavior.
const (
	MinDurationMin = 1.0
	MaxDurationMin = 180.0
	MaxDistanceKm  = 50.0

	// CapPercentile is where surviving extreme values are capped
	// instead of dropped.
	CapPercentile = 99.0
)

// Cleaner removes invalid trip records and caps outliers.
type Cleaner struct {
	logger zerolog.Logger
}

// NewCleaner creates a new Cleaner.
func NewCleaner(logger zerolog.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean derives duration/distance and filters trips to the valid
// range, then caps remaining extremes at the 99th percentile.
// Deterministic and idempotent: re-running on already-cleaned trips
// drops zero rows.
//
// Filters, in order:
//   - missing coordinates
//   - missing station names
//   - duration outside [1, 180] minutes
//   - ended before started (clock skew)
//   - distance above 50 km (GPS errors)
func (c *Cleaner) Clean(trips []models.Trip) []models.Trip {
	initial := len(trips)

	derived := make([]models.Trip, len(trips))
	copy(derived, trips)
	for i := range derived {
		DeriveDurationDistance(&derived[i])
	}

	kept := filter(derived, func(t *models.Trip) bool {
		return !math.IsNaN(t.StartLat) && !math.IsNaN(t.StartLng) &&
			!math.IsNaN(t.EndLat) && !math.IsNaN(t.EndLng)
	})
	c.logDropped("missing coordinates", len(derived)-len(kept))

	before := len(kept)
	kept = filter(kept, func(t *models.Trip) bool {
		return t.StartStationName != "" && t.EndStationName != ""
	})
	c.logDropped("missing station names", before-len(kept))

	before = len(kept)
	kept = filter(kept, func(t *models.Trip) bool {
		return t.DurationMin >= MinDurationMin && t.DurationMin <= MaxDurationMin
	})
	c.logDropped("duration out of range", before-len(kept))

	before = len(kept)
	kept = filter(kept, func(t *models.Trip) bool {
		return !t.StartedAt.After(t.EndedAt)
	})
	c.logDropped("clock skew", before-len(kept))

	before = len(kept)
	kept = filter(kept, func(t *models.Trip) bool {
		return t.DistanceKm <= MaxDistanceKm
	})
	c.logDropped("distance above limit", before-len(kept))

	capColumn(kept, CapPercentile,
		func(t *models.Trip) float64 { return t.DurationMin },
		func(t *models.Trip, v float64) { t.DurationMin = v })
	capColumn(kept, CapPercentile,
		func(t *models.Trip) float64 { return t.DistanceKm },
		func(t *models.Trip, v float64) { t.DistanceKm = v })

	loss := 0.0
	if initial > 0 {
		loss = (1 - float64(len(kept))/float64(initial)) * 100
	}
	c.logger.Info().
		Int("initial", initial).
		Int("final", len(kept)).
		Float64("loss_pct", loss).
		Msg("cleaning complete")

	return kept
}

// DeriveDurationDistance fills in the duration and distance columns
// from the trip's raw fields.
func DeriveDurationDistance(t *models.Trip) {
	if t.StartedAt.IsZero() || t.EndedAt.IsZero() {
		t.DurationMin = math.NaN()
	} else {
		t.DurationMin = t.EndedAt.Sub(t.StartedAt).Minutes()
	}
	t.DistanceKm = spatial.TripDistanceKm(t.StartLat, t.StartLng, t.EndLat, t.EndLng)
}

func (c *Cleaner) logDropped(reason string, n int) {
	if n > 0 {
		c.logger.Info().Int("dropped", n).Str("reason", reason).Msg("filtered rows")
	}
}

func filter(trips []models.Trip, keep func(*models.Trip) bool) []models.Trip {
	out := trips[:0:0]
	for i := range trips {
		if keep(&trips[i]) {
			out = append(out, trips[i])
		}
	}
	return out
}

// capColumn winsorizes the upper tail of one derived column in place.
// Capped values equal the percentile exactly.
func capColumn(trips []models.Trip, percentile float64, get func(*models.Trip) float64, set func(*models.Trip, float64)) {
	if len(trips) == 0 {
		return
	}

	values := make([]float64, len(trips))
	for i := range trips {
		values[i] = get(&trips[i])
	}

	// Lower bound 0 caps at the minimum, leaving the lower tail alone.
	capped := stats.Winsorize(values, 0, percentile)
	for i := range trips {
		set(&trips[i], capped[i])
	}
}

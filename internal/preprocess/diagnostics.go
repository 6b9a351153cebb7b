package preprocess

import (
	"math"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// QualityReport builds data-quality counters over a raw dataset.
// Duration and distance are derived on a copy; the input is not
// modified.
func QualityReport(trips []models.Trip) models.QualityReport {
	report := models.QualityReport{
		TotalRows:          len(trips),
		MissingByColumn:    make(map[string]int),
		MemberCasualCounts: make(map[string]int),
	}

	for i := range trips {
		t := trips[i]
		DeriveDurationDistance(&t)

		if math.IsNaN(t.StartLat) || math.IsNaN(t.StartLng) ||
			math.IsNaN(t.EndLat) || math.IsNaN(t.EndLng) {
			report.MissingCoordinates++
		}
		if math.IsNaN(t.StartLat) || math.IsNaN(t.StartLng) {
			report.MissingByColumn["start_coords"]++
		}
		if math.IsNaN(t.EndLat) || math.IsNaN(t.EndLng) {
			report.MissingByColumn["end_coords"]++
		}
		if t.StartStationName == "" {
			report.MissingByColumn["start_station_name"]++
		}
		if t.EndStationName == "" {
			report.MissingByColumn["end_station_name"]++
		}

		switch {
		case math.IsNaN(t.DurationMin):
			report.MissingByColumn["duration_min"]++
		case t.DurationMin < 0:
			report.NegativeDurations++
		case t.DurationMin == 0:
			report.ZeroDurations++
		case t.DurationMin > MaxDurationMin:
			report.ExtremeDurations++
		}

		if t.MemberCasual != "" {
			report.MemberCasualCounts[t.MemberCasual]++
		}
	}

	return report
}

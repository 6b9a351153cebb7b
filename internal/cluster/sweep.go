package cluster

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
	"github.com/jengzang/bikeshare-clustering-go/internal/stats"
)

// Advisory quality thresholds. Both appear in reports and logs only;
// neither gates execution.
const (
	// SilhouetteTarget is the silhouette score the elbow figure
	// annotates as acceptable.
	SilhouetteTarget = 0.35
	// StabilityStdThreshold is the silhouette standard deviation
	// under which a k is considered stable across seeds.
	StabilityStdThreshold = 0.05
)

// ElbowSweep re-runs K-Means for each candidate k with a fixed seed,
// recording the quality metrics and the inertia per k. There is no
// adaptive stopping rule: the caller inspects the curve.
func ElbowSweep(X [][]float64, ks []int, seed int64, logger zerolog.Logger) ([]models.ElbowPoint, error) {
	points := make([]models.ElbowPoint, 0, len(ks))

	for _, k := range ks {
		result, err := KMeans(X, KMeansOptions{K: k, Seed: seed})
		if err != nil {
			return nil, err
		}
		m := Evaluate(X, result.Labels, logger.Level(zerolog.Disabled))

		points = append(points, models.ElbowPoint{
			K:                k,
			Silhouette:       m.Silhouette,
			DaviesBouldin:    m.DaviesBouldin,
			CalinskiHarabasz: m.CalinskiHarabasz,
			Inertia:          result.Inertia,
		})

		logger.Info().
			Int("k", k).
			Float64("silhouette", m.Silhouette).
			Float64("davies_bouldin", m.DaviesBouldin).
			Float64("calinski_harabasz", m.CalinskiHarabasz).
			Float64("inertia", result.Inertia).
			Msg("elbow sweep step")
	}

	return points, nil
}

// StabilityCheck repeats K-Means with a fixed k across consecutive
// seeds and aggregates the silhouette spread. Stable records whether
// the standard deviation stayed under the documented threshold; it is
// advisory, not a gate.
func StabilityCheck(X [][]float64, k, runs int, baseSeed int64, logger zerolog.Logger) (*models.StabilityReport, error) {
	silhouettes := make([]float64, 0, runs)

	for i := 0; i < runs; i++ {
		result, err := KMeans(X, KMeansOptions{K: k, Seed: baseSeed + int64(i)})
		if err != nil {
			return nil, err
		}
		m := Evaluate(X, result.Labels, logger.Level(zerolog.Disabled))
		silhouettes = append(silhouettes, m.Silhouette)
	}

	report := &models.StabilityReport{
		K:              k,
		Runs:           runs,
		MeanSilhouette: stats.Mean(silhouettes),
		StdSilhouette:  stats.PopStdDev(silhouettes),
		MinSilhouette:  stats.Min(silhouettes),
		MaxSilhouette:  stats.Max(silhouettes),
	}
	report.Stable = !math.IsNaN(report.StdSilhouette) && report.StdSilhouette < StabilityStdThreshold

	logger.Info().
		Int("k", k).
		Int("runs", runs).
		Float64("mean", report.MeanSilhouette).
		Float64("std", report.StdSilhouette).
		Float64("min", report.MinSilhouette).
		Float64("max", report.MaxSilhouette).
		Bool("stable", report.Stable).
		Msg("stability check")

	return report, nil
}

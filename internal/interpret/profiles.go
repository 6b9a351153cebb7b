package interpret

import (
	"fmt"
	"sort"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
	"github.com/jengzang/bikeshare-clustering-go/internal/stats"
)

// Profiles computes the aggregate feature profile of each cluster:
// per-feature means plus size and share. Profiles are derived on
// demand and never persisted as source of truth. Every label present
// in the assignment gets a profile, including the noise sentinel.
func Profiles(trips []models.Trip, labels []int) ([]models.ClusterProfile, error) {
	if len(trips) != len(labels) {
		return nil, fmt.Errorf("label count %d does not match trip count %d", len(labels), len(trips))
	}
	if len(trips) == 0 {
		return nil, nil
	}

	byCluster := make(map[int][]int)
	for i, l := range labels {
		byCluster[l] = append(byCluster[l], i)
	}

	ids := make([]int, 0, len(byCluster))
	for id := range byCluster {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	profiles := make([]models.ClusterProfile, 0, len(ids))
	col := make([]float64, 0, len(trips))
	for _, id := range ids {
		members := byCluster[id]

		means := make(map[string]float64, len(models.FeatureColumns))
		for j, name := range models.FeatureColumns {
			col = col[:0]
			for _, i := range members {
				col = append(col, trips[i].Features()[j])
			}
			means[name] = stats.Mean(col)
		}

		profiles = append(profiles, models.ClusterProfile{
			Cluster: id,
			Means:   means,
			Size:    len(members),
			Pct:     float64(len(members)) / float64(len(trips)) * 100,
		})
	}

	return profiles, nil
}

package cluster

import (
	"fmt"
	"sort"

	"github.com/mpraski/clusters"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// DBSCAN clusters X by density with the given neighborhood radius and
// minimum neighborhood size. Points in no sufficiently dense
// neighborhood get the noise sentinel -1; cluster count is discovered
// at runtime and labels are renumbered to {0..m-1}.
func DBSCAN(X [][]float64, eps float64, minPts int) ([]int, error) {
	if eps <= 0 {
		return nil, fmt.Errorf("eps must be positive, got %g", eps)
	}
	if minPts < 1 {
		return nil, fmt.Errorf("minPts must be at least 1, got %d", minPts)
	}

	c, err := clusters.DBSCAN(minPts, eps, 1, clusters.EuclideanDistance)
	if err != nil {
		return nil, fmt.Errorf("failed to create DBSCAN clusterer: %w", err)
	}
	if err := c.Learn(X); err != nil {
		return nil, fmt.Errorf("failed to run DBSCAN: %w", err)
	}

	return normalizeLabels(c.Guesses()), nil
}

// normalizeLabels renumbers cluster ids to contiguous non-negative
// integers starting at 0 in ascending original order, preserving the
// noise sentinel.
func normalizeLabels(raw []int) []int {
	ids := make(map[int]struct{})
	for _, l := range raw {
		if l >= 0 {
			ids[l] = struct{}{}
		}
	}

	sorted := make([]int, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Ints(sorted)

	remap := make(map[int]int, len(sorted))
	for i, id := range sorted {
		remap[id] = i
	}

	labels := make([]int, len(raw))
	for i, l := range raw {
		if l < 0 {
			labels[i] = models.NoiseLabel
			continue
		}
		labels[i] = remap[l]
	}
	return labels
}

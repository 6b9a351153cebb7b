package cluster

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

// Evaluate computes the internal validity metrics for a clustering
// result over non-noise points only. All scores are NaN when fewer
// than two non-noise clusters exist.
func Evaluate(X [][]float64, labels []int, logger zerolog.Logger) models.Metrics {
	points, assigned := dropNoise(X, labels)
	// Cluster ids may have gaps once noise is removed; the score
	// functions index per-cluster state by label.
	assigned = normalizeLabels(assigned)

	nClusters := countClusters(assigned)
	m := models.Metrics{
		Silhouette:       math.NaN(),
		DaviesBouldin:    math.NaN(),
		CalinskiHarabasz: math.NaN(),
		NClusters:        nClusters,
	}

	if nClusters < 2 {
		logger.Warn().Int("clusters", nClusters).Msg("fewer than 2 clusters, metrics undefined")
		return m
	}

	m.Silhouette = silhouette(points, assigned, nClusters)
	m.DaviesBouldin = daviesBouldin(points, assigned, nClusters)
	m.CalinskiHarabasz = calinskiHarabasz(points, assigned, nClusters)

	logger.Info().
		Float64("silhouette", m.Silhouette).
		Float64("davies_bouldin", m.DaviesBouldin).
		Float64("calinski_harabasz", m.CalinskiHarabasz).
		Int("clusters", nClusters).
		Msg("clustering metrics")

	return m
}

func dropNoise(X [][]float64, labels []int) ([][]float64, []int) {
	points := make([][]float64, 0, len(X))
	assigned := make([]int, 0, len(labels))
	for i, l := range labels {
		if l >= 0 {
			points = append(points, X[i])
			assigned = append(assigned, l)
		}
	}
	return points, assigned
}

func countClusters(labels []int) int {
	seen := make(map[int]struct{})
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

// silhouette averages, over all points, how much closer each point is
// to its own cluster than to the nearest other cluster. Range [-1,1].
func silhouette(X [][]float64, labels []int, nClusters int) float64 {
	n := len(X)
	if n == 0 {
		return math.NaN()
	}

	sizes := make([]int, nClusters)
	for _, l := range labels {
		sizes[l]++
	}

	var total float64
	sums := make([]float64, nClusters)
	for i := 0; i < n; i++ {
		for c := range sums {
			sums[c] = 0
		}
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			sums[labels[j]] += math.Sqrt(sqDist(X[i], X[j]))
		}

		own := labels[i]
		if sizes[own] < 2 {
			// Singleton clusters contribute 0 by convention.
			continue
		}

		a := sums[own] / float64(sizes[own]-1)
		b := math.MaxFloat64
		for c := 0; c < nClusters; c++ {
			if c == own || sizes[c] == 0 {
				continue
			}
			if mean := sums[c] / float64(sizes[c]); mean < b {
				b = mean
			}
		}

		if max := math.Max(a, b); max > 0 {
			total += (b - a) / max
		}
	}

	return total / float64(n)
}

// daviesBouldin averages each cluster's worst ratio of summed scatter
// to centroid separation. Lower is better.
func daviesBouldin(X [][]float64, labels []int, nClusters int) float64 {
	centroids, sizes := clusterCentroids(X, labels, nClusters)

	// Mean distance of members to their centroid.
	scatter := make([]float64, nClusters)
	for i, p := range X {
		scatter[labels[i]] += math.Sqrt(sqDist(p, centroids[labels[i]]))
	}
	for c := range scatter {
		if sizes[c] > 0 {
			scatter[c] /= float64(sizes[c])
		}
	}

	var sum float64
	for i := 0; i < nClusters; i++ {
		worst := 0.0
		for j := 0; j < nClusters; j++ {
			if i == j {
				continue
			}
			sep := math.Sqrt(sqDist(centroids[i], centroids[j]))
			if sep == 0 {
				continue
			}
			if r := (scatter[i] + scatter[j]) / sep; r > worst {
				worst = r
			}
		}
		sum += worst
	}

	return sum / float64(nClusters)
}

// calinskiHarabasz is the variance-ratio criterion: between-cluster
// dispersion over within-cluster dispersion. Higher is better.
func calinskiHarabasz(X [][]float64, labels []int, nClusters int) float64 {
	n := len(X)
	centroids, sizes := clusterCentroids(X, labels, nClusters)

	dim := len(X[0])
	overall := make([]float64, dim)
	for _, p := range X {
		for j, v := range p {
			overall[j] += v
		}
	}
	for j := range overall {
		overall[j] /= float64(n)
	}

	var between, within float64
	for c := 0; c < nClusters; c++ {
		between += float64(sizes[c]) * sqDist(centroids[c], overall)
	}
	for i, p := range X {
		within += sqDist(p, centroids[labels[i]])
	}

	if within == 0 || n == nClusters {
		return math.NaN()
	}
	return (between / float64(nClusters-1)) / (within / float64(n-nClusters))
}

func clusterCentroids(X [][]float64, labels []int, nClusters int) ([][]float64, []int) {
	dim := len(X[0])
	centroids := make([][]float64, nClusters)
	for c := range centroids {
		centroids[c] = make([]float64, dim)
	}
	sizes := make([]int, nClusters)

	for i, p := range X {
		c := labels[i]
		sizes[c]++
		for j, v := range p {
			centroids[c][j] += v
		}
	}
	for c := range centroids {
		if sizes[c] == 0 {
			continue
		}
		for j := range centroids[c] {
			centroids[c][j] /= float64(sizes[c])
		}
	}

	return centroids, sizes
}

package cluster

import (
	"fmt"
	"math"
	"math/rand"
)

// K-Means defaults matching the pipeline's standard configuration.
const (
	DefaultNInit   = 20
	DefaultMaxIter = 300
	DefaultSeed    = 42
)

// KMeansOptions configures a K-Means run.
type KMeansOptions struct {
	K       int
	NInit   int   // number of k-means++ restarts; best inertia wins
	MaxIter int   // Lloyd iteration cap per restart
	Seed    int64 // deterministic seed
}

// KMeansResult holds the assignment and fitted state of a K-Means run.
type KMeansResult struct {
	Labels     []int
	Centroids  [][]float64
	Inertia    float64 // sum of squared distances to assigned centroids
	Iterations int     // iterations of the winning restart
}

// KMeans partitions X into exactly opts.K clusters with k-means++
// initialization and multi-start restarts. Every point is assigned;
// labels are {0..K-1}. Deterministic for a fixed seed.
func KMeans(X [][]float64, opts KMeansOptions) (*KMeansResult, error) {
	if opts.K < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", opts.K)
	}
	if len(X) < opts.K {
		return nil, fmt.Errorf("cannot form %d clusters from %d points", opts.K, len(X))
	}
	if opts.NInit < 1 {
		opts.NInit = DefaultNInit
	}
	if opts.MaxIter < 1 {
		opts.MaxIter = DefaultMaxIter
	}

	rng := rand.New(rand.NewSource(opts.Seed))

	var best *KMeansResult
	for run := 0; run < opts.NInit; run++ {
		result := lloyd(X, opts.K, opts.MaxIter, rng)
		if best == nil || result.Inertia < best.Inertia {
			best = result
		}
	}

	return best, nil
}

// lloyd runs one restart: k-means++ seeding followed by Lloyd
// iterations until assignments stop changing or the cap is hit.
func lloyd(X [][]float64, k, maxIter int, rng *rand.Rand) *KMeansResult {
	centroids := seedPlusPlus(X, k, rng)
	labels := make([]int, len(X))
	for i := range labels {
		labels[i] = -1
	}

	iterations := 0
	for iter := 0; iter < maxIter; iter++ {
		iterations = iter + 1

		changed := false
		for i, p := range X {
			nearest := nearestCentroid(p, centroids)
			if nearest != labels[i] {
				labels[i] = nearest
				changed = true
			}
		}
		if !changed {
			break
		}

		recomputeCentroids(X, labels, centroids, rng)
	}

	inertia := 0.0
	for i, p := range X {
		inertia += sqDist(p, centroids[labels[i]])
	}

	return &KMeansResult{
		Labels:     labels,
		Centroids:  centroids,
		Inertia:    inertia,
		Iterations: iterations,
	}
}

// seedPlusPlus picks initial centroids with the k-means++ scheme:
// the first uniformly, the rest weighted by squared distance to the
// nearest chosen centroid.
func seedPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, copyPoint(X[rng.Intn(len(X))]))

	dists := make([]float64, len(X))
	for len(centroids) < k {
		var total float64
		for i, p := range X {
			d := sqDist(p, centroids[0])
			for _, c := range centroids[1:] {
				if d2 := sqDist(p, c); d2 < d {
					d = d2
				}
			}
			dists[i] = d
			total += d
		}

		if total == 0 {
			// All points coincide with existing centroids.
			centroids = append(centroids, copyPoint(X[rng.Intn(len(X))]))
			continue
		}

		target := rng.Float64() * total
		idx := 0
		for i, d := range dists {
			target -= d
			if target <= 0 {
				idx = i
				break
			}
		}
		centroids = append(centroids, copyPoint(X[idx]))
	}

	return centroids
}

// recomputeCentroids replaces each centroid with the mean of its
// members. Empty clusters are reseeded from a random point.
func recomputeCentroids(X [][]float64, labels []int, centroids [][]float64, rng *rand.Rand) {
	dim := len(X[0])
	counts := make([]int, len(centroids))
	for c := range centroids {
		for j := 0; j < dim; j++ {
			centroids[c][j] = 0
		}
	}

	for i, p := range X {
		c := labels[i]
		counts[c]++
		for j, v := range p {
			centroids[c][j] += v
		}
	}

	for c := range centroids {
		if counts[c] == 0 {
			copy(centroids[c], X[rng.Intn(len(X))])
			continue
		}
		for j := 0; j < dim; j++ {
			centroids[c][j] /= float64(counts[c])
		}
	}
}

func nearestCentroid(p []float64, centroids [][]float64) int {
	best := 0
	bestDist := math.MaxFloat64
	for c, centroid := range centroids {
		if d := sqDist(p, centroid); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func sqDist(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func copyPoint(p []float64) []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}

package cluster

import (
	"fmt"
	"math"
)

// Linkage selects the merge criterion for agglomerative clustering.
type Linkage string

const (
	// LinkageWard merges the pair minimizing the within-cluster
	// variance increase.
	LinkageWard Linkage = "ward"
	// LinkageComplete merges by maximum pairwise distance.
	LinkageComplete Linkage = "complete"
	// LinkageAverage merges by average pairwise distance.
	LinkageAverage Linkage = "average"
)

// Agglomerative performs hierarchical agglomerative clustering down to
// exactly k clusters. Every point is assigned; labels are {0..k-1},
// numbered by first occurrence. The merge schedule follows the
// Lance-Williams update for the chosen linkage.
//
// Memory is O(n²) for the distance matrix, which is fine for the batch
// sample sizes this pipeline runs on.
func Agglomerative(X [][]float64, k int, linkage Linkage) ([]int, error) {
	n := len(X)
	if k < 1 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if n < k {
		return nil, fmt.Errorf("cannot form %d clusters from %d points", k, n)
	}
	switch linkage {
	case LinkageWard, LinkageComplete, LinkageAverage:
	default:
		return nil, fmt.Errorf("unknown linkage criterion: %s", linkage)
	}

	// Ward's update operates on squared euclidean distances; the
	// other criteria on raw distances.
	squared := linkage == LinkageWard

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := sqDist(X[i], X[j])
			if !squared {
				d = math.Sqrt(d)
			}
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
	}
	// member cluster index per point; clusters are identified by a
	// representative row of the distance matrix.
	assign := make([]int, n)
	for i := range assign {
		assign[i] = i
	}

	for remaining := n; remaining > k; remaining-- {
		// Find the closest active pair.
		bi, bj := -1, -1
		best := math.MaxFloat64
		for i := 0; i < n; i++ {
			if !active[i] {
				continue
			}
			for j := i + 1; j < n; j++ {
				if !active[j] {
					continue
				}
				if dist[i][j] < best {
					best = dist[i][j]
					bi, bj = i, j
				}
			}
		}

		// Merge bj into bi and update distances per Lance-Williams.
		ni, nj := float64(size[bi]), float64(size[bj])
		for m := 0; m < n; m++ {
			if !active[m] || m == bi || m == bj {
				continue
			}
			var d float64
			switch linkage {
			case LinkageWard:
				nm := float64(size[m])
				d = ((ni+nm)*dist[bi][m] + (nj+nm)*dist[bj][m] - nm*dist[bi][bj]) / (ni + nj + nm)
			case LinkageComplete:
				d = math.Max(dist[bi][m], dist[bj][m])
			case LinkageAverage:
				d = (ni*dist[bi][m] + nj*dist[bj][m]) / (ni + nj)
			}
			dist[bi][m] = d
			dist[m][bi] = d
		}

		active[bj] = false
		size[bi] += size[bj]
		for i := range assign {
			if assign[i] == bj {
				assign[i] = bi
			}
		}
	}

	// Relabel representatives to contiguous ids by first occurrence.
	labels := make([]int, n)
	next := 0
	ids := make(map[int]int, k)
	for i, rep := range assign {
		id, ok := ids[rep]
		if !ok {
			id = next
			ids[rep] = id
			next++
		}
		labels[i] = id
	}

	return labels, nil
}

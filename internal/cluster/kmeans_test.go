package cluster

import (
	"math/rand"
	"testing"
)

// threeBlobs generates well-separated gaussian-ish blobs for recovery
// tests.
func threeBlobs(perBlob int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}

	var X [][]float64
	var truth []int
	for c, center := range centers {
		for i := 0; i < perBlob; i++ {
			X = append(X, []float64{
				center[0] + rng.NormFloat64()*0.5,
				center[1] + rng.NormFloat64()*0.5,
			})
			truth = append(truth, c)
		}
	}
	return X, truth
}

// samePartition reports whether two labelings split the points
// identically, ignoring label numbering.
func samePartition(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	forward := make(map[int]int)
	backward := make(map[int]int)
	for i := range a {
		if m, ok := forward[a[i]]; ok && m != b[i] {
			return false
		}
		if m, ok := backward[b[i]]; ok && m != a[i] {
			return false
		}
		forward[a[i]] = b[i]
		backward[b[i]] = a[i]
	}
	return true
}

func TestKMeansRecoversBlobs(t *testing.T) {
	t.Parallel()

	X, truth := threeBlobs(30, 1)
	result, err := KMeans(X, KMeansOptions{K: 3, Seed: DefaultSeed})
	if err != nil {
		t.Fatalf("KMeans() error: %v", err)
	}

	if len(result.Labels) != len(X) {
		t.Fatalf("got %d labels for %d points", len(result.Labels), len(X))
	}
	if !samePartition(result.Labels, truth) {
		t.Error("separated blobs not recovered")
	}
	if result.Inertia <= 0 {
		t.Errorf("Inertia = %v, want > 0", result.Inertia)
	}
}

func TestKMeansLabelRange(t *testing.T) {
	t.Parallel()

	X, _ := threeBlobs(20, 2)
	result, err := KMeans(X, KMeansOptions{K: 4, Seed: DefaultSeed})
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[int]bool)
	for _, l := range result.Labels {
		if l < 0 || l >= 4 {
			t.Fatalf("label %d outside {0..3}", l)
		}
		seen[l] = true
	}
	if len(seen) != 4 {
		t.Errorf("only %d distinct labels, want 4", len(seen))
	}
	if len(result.Centroids) != 4 {
		t.Errorf("got %d centroids, want 4", len(result.Centroids))
	}
}

func TestKMeansDeterministic(t *testing.T) {
	t.Parallel()

	X, _ := threeBlobs(25, 3)

	a, err := KMeans(X, KMeansOptions{K: 3, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	b, err := KMeans(X, KMeansOptions{K: 3, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}

	if a.Inertia != b.Inertia {
		t.Errorf("same seed, different inertia: %v vs %v", a.Inertia, b.Inertia)
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("same seed, different label at %d", i)
		}
	}
}

func TestKMeansValidation(t *testing.T) {
	t.Parallel()

	X := [][]float64{{1, 2}, {3, 4}}
	if _, err := KMeans(X, KMeansOptions{K: 0}); err == nil {
		t.Error("expected error for k=0")
	}
	if _, err := KMeans(X, KMeansOptions{K: 3}); err == nil {
		t.Error("expected error for k > n")
	}
}

func TestKMeansSinglePointClusters(t *testing.T) {
	t.Parallel()

	X := [][]float64{{0, 0}, {5, 5}, {10, 10}}
	result, err := KMeans(X, KMeansOptions{K: 3, Seed: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.Inertia != 0 {
		t.Errorf("Inertia = %v, want 0 for exact fit", result.Inertia)
	}
}

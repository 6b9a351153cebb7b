package cluster

import (
	"testing"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
)

func TestDBSCANValidation(t *testing.T) {
	t.Parallel()

	X := [][]float64{{1, 2}, {3, 4}}
	if _, err := DBSCAN(X, 0, 5); err == nil {
		t.Error("expected error for eps=0")
	}
	if _, err := DBSCAN(X, -1, 5); err == nil {
		t.Error("expected error for negative eps")
	}
	if _, err := DBSCAN(X, 0.5, 0); err == nil {
		t.Error("expected error for minPts=0")
	}
}

func TestDBSCANFindsDenseBlobs(t *testing.T) {
	t.Parallel()

	X, _ := threeBlobs(30, 6)
	// Far from everything: must come out as noise.
	X = append(X, []float64{100, 100})

	labels, err := DBSCAN(X, 2.0, 5)
	if err != nil {
		t.Fatalf("DBSCAN() error: %v", err)
	}
	if len(labels) != len(X) {
		t.Fatalf("got %d labels for %d points", len(labels), len(X))
	}

	if labels[len(labels)-1] != models.NoiseLabel {
		t.Errorf("isolated point labeled %d, want noise", labels[len(labels)-1])
	}

	clusters := make(map[int]int)
	for _, l := range labels {
		if l != models.NoiseLabel {
			clusters[l]++
		}
	}
	if len(clusters) != 3 {
		t.Errorf("found %d clusters, want 3", len(clusters))
	}
}

func TestNormalizeLabels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  []int
		want []int
	}{
		{
			name: "one-based ids",
			raw:  []int{1, 1, 2, 2, -1},
			want: []int{0, 0, 1, 1, models.NoiseLabel},
		},
		{
			name: "gapped ids",
			raw:  []int{5, 9, 5, -1, 9},
			want: []int{0, 1, 0, models.NoiseLabel, 1},
		},
		{
			name: "all noise",
			raw:  []int{-1, -1},
			want: []int{models.NoiseLabel, models.NoiseLabel},
		},
		{
			name: "already contiguous",
			raw:  []int{0, 1, 2, 0},
			want: []int{0, 1, 2, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLabels(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d labels, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("label[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

package models

import "time"

// NoiseLabel is the sentinel assigned to points no density-based
// cluster claims. Partitioning and hierarchical clustering never
// produce it.
const NoiseLabel = -1

// Metrics holds internal validity scores for one clustering result.
// All three scores are NaN when fewer than two non-noise clusters
// exist; NClusters is always set.
type Metrics struct {
	Silhouette       float64
	DaviesBouldin    float64
	CalinskiHarabasz float64
	NClusters        int
}

// ClusterProfile aggregates one cluster's feature means together with
// its size and share of the assigned points.
type ClusterProfile struct {
	Cluster int
	Means   map[string]float64
	Size    int
	Pct     float64
}

// ElbowPoint is one row of the K-Means elbow sweep table.
type ElbowPoint struct {
	K                int
	Silhouette       float64
	DaviesBouldin    float64
	CalinskiHarabasz float64
	Inertia          float64
}

// StabilityReport summarizes silhouette spread across repeated
// K-Means runs with varying seeds. Stable is advisory: it records
// whether the spread stayed under the documented threshold but never
// gates execution.
type StabilityReport struct {
	K              int
	Runs           int
	MeanSilhouette float64
	StdSilhouette  float64
	MinSilhouette  float64
	MaxSilhouette  float64
	Stable         bool
}

// ClusterRun is one persisted clustering execution in the results store.
type ClusterRun struct {
	ID               int64
	Algorithm        string
	Params           string // JSON-encoded algorithm parameters
	NClusters        int
	Silhouette       float64
	DaviesBouldin    float64
	CalinskiHarabasz float64
	RuntimeSec       float64
	CreatedAt        time.Time
}

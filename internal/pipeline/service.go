package pipeline

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jengzang/bikeshare-clustering-go/internal/cluster"
	"github.com/jengzang/bikeshare-clustering-go/internal/config"
	"github.com/jengzang/bikeshare-clustering-go/internal/interpret"
	"github.com/jengzang/bikeshare-clustering-go/internal/loader"
	"github.com/jengzang/bikeshare-clustering-go/internal/models"
	"github.com/jengzang/bikeshare-clustering-go/internal/preprocess"
	"github.com/jengzang/bikeshare-clustering-go/internal/repository"
	"github.com/jengzang/bikeshare-clustering-go/internal/report"
	"github.com/jengzang/bikeshare-clustering-go/internal/stats"
)

// Supported clustering algorithms.
const (
	AlgorithmKMeans        = "kmeans"
	AlgorithmAgglomerative = "agglomerative"
	AlgorithmDBSCAN        = "dbscan"
)

// PipelineArtifact is the filename of the fitted preprocessing state.
const PipelineArtifact = "pipeline.json"

// ClusterOptions selects an algorithm and its parameters. Fields not
// used by the chosen algorithm are ignored.
type ClusterOptions struct {
	Algorithm string  `json:"algorithm"`
	K         int     `json:"k,omitempty"`
	Linkage   string  `json:"linkage,omitempty"`
	Eps       float64 `json:"eps,omitempty"`
	MinPts    int     `json:"min_pts,omitempty"`
}

// ClusterOutcome is the result of one clustering execution.
type ClusterOutcome struct {
	RunID           int64
	Labels          []int
	Metrics         models.Metrics
	Profiles        []models.ClusterProfile
	Interpretations map[int]string
	RuntimeSec      float64
}

// Service orchestrates the analysis stages over a shared dataset and
// results store.
type Service struct {
	cfg       *config.Config
	loader    *loader.Loader
	cleaner   *preprocess.Cleaner
	trips     *repository.TripRepository
	runs      *repository.RunRepository
	figures   *report.FigureWriter
	tables    *report.TableWriter
	processed *report.TableWriter
	logger    zerolog.Logger
}

// NewService creates a pipeline service backed by the given results
// store.
func NewService(cfg *config.Config, db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		cfg:       cfg,
		loader:    loader.New(cfg.RawDataDir, logger),
		cleaner:   preprocess.NewCleaner(logger),
		trips:     repository.NewTripRepository(db),
		runs:      repository.NewRunRepository(db),
		figures:   report.NewFigureWriter(cfg.Paths.FiguresDir, logger),
		tables:    report.NewTableWriter(cfg.Paths.ReportsDir, logger),
		processed: report.NewTableWriter(cfg.Paths.ProcessedDir, logger),
		logger:    logger,
	}
}

// RunDiagnostics loads the raw dataset and writes the data-quality
// table plus the exploratory distribution figures. Nothing is filtered
// or capped at this stage.
func (s *Service) RunDiagnostics() error {
	raw, err := s.loader.LoadAll(s.cfg.SampleFraction, s.cfg.RandomSeed)
	if err != nil {
		return err
	}

	quality := preprocess.QualityReport(raw)
	if err := s.tables.WriteQuality(quality, "data_quality.csv"); err != nil {
		return err
	}

	for i := range raw {
		preprocess.DeriveDurationDistance(&raw[i])
	}
	derived := preprocess.EngineerFeatures(raw, s.logger.Level(zerolog.Disabled))

	if err := s.logOutliers(derived, "duration_min", func(t *models.Trip) float64 { return t.DurationMin }); err != nil {
		return err
	}
	if err := s.logOutliers(derived, "distance_km", func(t *models.Trip) float64 { return t.DistanceKm }); err != nil {
		return err
	}

	if err := s.figures.DurationHistogram(derived); err != nil {
		return err
	}
	if err := s.figures.DistanceHistogram(derived); err != nil {
		return err
	}
	if err := s.figures.HourlyCounts(derived); err != nil {
		return err
	}
	if err := s.figures.WeekdayCounts(derived); err != nil {
		return err
	}

	s.logger.Info().Int("rows", quality.TotalRows).Msg("diagnostics complete")
	return nil
}

// logOutliers reports the spread of one derived column and how many of
// its rows each outlier detection method flags. NaN rows are excluded
// first.
func (s *Service) logOutliers(trips []models.Trip, column string, get func(*models.Trip) float64) error {
	values := make([]float64, 0, len(trips))
	for i := range trips {
		if v := get(&trips[i]); !math.IsNaN(v) {
			values = append(values, v)
		}
	}

	s.logger.Info().
		Str("column", column).
		Float64("median", stats.Median(values)).
		Float64("iqr", stats.IQR(values)).
		Msg("column spread")

	for _, method := range []string{stats.MethodIQR, stats.MethodZScore} {
		mask, err := stats.OutlierMask(values, method)
		if err != nil {
			return err
		}
		n := 0
		for _, flagged := range mask {
			if flagged {
				n++
			}
		}
		s.logger.Info().
			Str("column", column).
			Str("method", method).
			Int("outliers", n).
			Int("rows", len(values)).
			Msg("outlier detection")
	}
	return nil
}

// RunPreprocess loads, cleans and feature-engineers the dataset, then
// persists the result three ways: the cleaned trips CSV, the trips
// table in the results store, and the fitted scaler artifact.
func (s *Service) RunPreprocess() error {
	trips, _, pipe, err := s.prepare()
	if err != nil {
		return err
	}

	if err := s.processed.WriteTrips(trips, "trips_clean.csv"); err != nil {
		return err
	}
	if err := s.trips.ReplaceAll(trips); err != nil {
		return err
	}
	if err := pipe.Save(s.cfg.Paths.ArtifactFile(PipelineArtifact)); err != nil {
		return err
	}

	s.logger.Info().Int("trips", len(trips)).Msg("preprocessing complete")
	return nil
}

// RunCluster executes one clustering algorithm end to end: fit,
// evaluate, persist the run and its assignments, then write the
// cluster-level figures and the characteristics table.
func (s *Service) RunCluster(opts ClusterOptions) (*ClusterOutcome, error) {
	trips, X, _, err := s.prepare()
	if err != nil {
		return nil, err
	}
	return s.clusterAndReport(trips, X, opts)
}

// CompareAlgorithms runs each configured algorithm on the same
// prepared matrix and writes the side-by-side comparison table. The
// K-Means outcome (the pipeline's primary algorithm) is returned.
func (s *Service) CompareAlgorithms(optsList []ClusterOptions) (*ClusterOutcome, error) {
	trips, X, _, err := s.prepare()
	if err != nil {
		return nil, err
	}

	var primary, first *ClusterOutcome
	rows := make([]report.ComparisonRow, 0, len(optsList))
	for _, opts := range optsList {
		outcome, err := s.clusterAndReport(trips, X, opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, report.ComparisonRow{
			Algorithm:  opts.Algorithm,
			NClusters:  outcome.Metrics.NClusters,
			Metrics:    outcome.Metrics,
			RuntimeSec: outcome.RuntimeSec,
		})
		if first == nil {
			first = outcome
		}
		if opts.Algorithm == AlgorithmKMeans && primary == nil {
			primary = outcome
		}
	}

	if err := s.tables.WriteComparison(rows, "algorithm_comparison.csv"); err != nil {
		return nil, err
	}
	if primary == nil {
		primary = first
	}
	return primary, nil
}

// RunElbow sweeps K-Means over the candidate k values and writes the
// elbow table and four-panel figure.
func (s *Service) RunElbow(ks []int) ([]models.ElbowPoint, error) {
	_, X, _, err := s.prepare()
	if err != nil {
		return nil, err
	}

	points, err := cluster.ElbowSweep(X, ks, s.cfg.RandomSeed, s.logger)
	if err != nil {
		return nil, err
	}

	if err := s.tables.WriteElbow(points, "elbow.csv"); err != nil {
		return nil, err
	}
	if err := s.figures.ElbowFigure(points); err != nil {
		return nil, err
	}
	return points, nil
}

// RunStability repeats K-Means across seeds at a fixed k and writes
// the silhouette-spread summary.
func (s *Service) RunStability(k, runs int) (*models.StabilityReport, error) {
	_, X, _, err := s.prepare()
	if err != nil {
		return nil, err
	}

	rep, err := cluster.StabilityCheck(X, k, runs, s.cfg.RandomSeed, s.logger)
	if err != nil {
		return nil, err
	}
	if err := s.tables.WriteStability(*rep, "stability.csv"); err != nil {
		return nil, err
	}
	if !rep.Stable {
		s.logger.Warn().
			Float64("std", rep.StdSilhouette).
			Msg("silhouette spread exceeds stability threshold")
	}
	return rep, nil
}

// RunInterpret re-derives profiles and segment labels for a persisted
// run and rewrites the characteristics table. With runID 0 the most
// recent run is used.
func (s *Service) RunInterpret(runID int64) (map[int]string, error) {
	if runID == 0 {
		runs, err := s.runs.GetRuns()
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no clustering runs stored yet")
		}
		runID = runs[0].ID
	}

	labels, err := s.runs.GetAssignments(runID)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("run %d has no stored assignments", runID)
	}

	trips, err := s.allStoredTrips()
	if err != nil {
		return nil, err
	}

	profiles, err := interpret.Profiles(trips, labels)
	if err != nil {
		return nil, err
	}
	interpretations := interpret.Interpret(profiles)

	if err := s.tables.WriteCharacteristics(trips, labels, interpretations, "cluster_characteristics.csv"); err != nil {
		return nil, err
	}

	for _, p := range profiles {
		s.logger.Info().
			Int("cluster", p.Cluster).
			Int("size", p.Size).
			Str("segment", interpretations[p.Cluster]).
			Msg("cluster interpreted")
	}
	return interpretations, nil
}

// RunAll executes the full pipeline: diagnostics, preprocessing, the
// elbow sweep, all three algorithms with a comparison table, and the
// stability check at the chosen k.
func (s *Service) RunAll(k int, eps float64, minPts int) error {
	if err := s.RunDiagnostics(); err != nil {
		return err
	}
	if err := s.RunPreprocess(); err != nil {
		return err
	}
	if _, err := s.RunElbow([]int{3, 4, 5, 6, 7}); err != nil {
		return err
	}

	_, err := s.CompareAlgorithms([]ClusterOptions{
		{Algorithm: AlgorithmKMeans, K: k},
		{Algorithm: AlgorithmAgglomerative, K: k, Linkage: string(cluster.LinkageWard)},
		{Algorithm: AlgorithmDBSCAN, Eps: eps, MinPts: minPts},
	})
	if err != nil {
		return err
	}

	if _, err := s.RunStability(k, 20); err != nil {
		return err
	}

	s.logger.Info().Msg("pipeline complete")
	return nil
}

// prepare loads, cleans and feature-engineers the raw dataset and fits
// the standard scaler, returning the trips alongside the scaled
// feature matrix.
func (s *Service) prepare() ([]models.Trip, [][]float64, *preprocess.Pipeline, error) {
	raw, err := s.loader.LoadAll(s.cfg.SampleFraction, s.cfg.RandomSeed)
	if err != nil {
		return nil, nil, nil, err
	}

	cleaned := s.cleaner.Clean(raw)
	if len(cleaned) == 0 {
		return nil, nil, nil, fmt.Errorf("no trips survived cleaning")
	}
	trips := preprocess.EngineerFeatures(cleaned, s.logger)

	pipe, X, err := preprocess.FitPipeline(preprocess.FeatureMatrix(trips), false, 0, s.logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return trips, X, pipe, nil
}

// clusterAndReport fits one algorithm on the scaled matrix, persists
// the run, and writes the per-cluster reports.
func (s *Service) clusterAndReport(trips []models.Trip, X [][]float64, opts ClusterOptions) (*ClusterOutcome, error) {
	started := time.Now()
	labels, err := s.fit(X, opts)
	if err != nil {
		return nil, err
	}
	runtime := time.Since(started).Seconds()

	metrics := cluster.Evaluate(X, labels, s.logger)

	params, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode algorithm parameters: %w", err)
	}

	outcome := &ClusterOutcome{Labels: labels, Metrics: metrics, RuntimeSec: runtime}

	runID, err := s.runs.CreateRun(&models.ClusterRun{
		Algorithm:        opts.Algorithm,
		Params:           string(params),
		NClusters:        metrics.NClusters,
		Silhouette:       metrics.Silhouette,
		DaviesBouldin:    metrics.DaviesBouldin,
		CalinskiHarabasz: metrics.CalinskiHarabasz,
		RuntimeSec:       outcome.RuntimeSec,
	})
	if err != nil {
		return nil, err
	}
	outcome.RunID = runID
	if err := s.runs.SaveAssignments(runID, labels); err != nil {
		return nil, err
	}

	profiles, err := interpret.Profiles(trips, labels)
	if err != nil {
		return nil, err
	}
	outcome.Profiles = profiles
	outcome.Interpretations = interpret.Interpret(profiles)

	if err := s.writeClusterReports(trips, X, labels, outcome); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("algorithm", opts.Algorithm).
		Int("n_clusters", metrics.NClusters).
		Float64("silhouette", metrics.Silhouette).
		Int64("run_id", runID).
		Msg("clustering run complete")
	return outcome, nil
}

// fit dispatches to the selected algorithm.
func (s *Service) fit(X [][]float64, opts ClusterOptions) ([]int, error) {
	switch strings.ToLower(opts.Algorithm) {
	case AlgorithmKMeans:
		result, err := cluster.KMeans(X, cluster.KMeansOptions{K: opts.K, Seed: s.cfg.RandomSeed})
		if err != nil {
			return nil, err
		}
		return result.Labels, nil
	case AlgorithmAgglomerative:
		return cluster.Agglomerative(X, opts.K, cluster.Linkage(opts.Linkage))
	case AlgorithmDBSCAN:
		return cluster.DBSCAN(X, opts.Eps, opts.MinPts)
	default:
		return nil, fmt.Errorf("unknown clustering algorithm: %s", opts.Algorithm)
	}
}

// writeClusterReports renders the cluster-level artifacts: the PCA
// scatter, explained variance, size chart, profile heat map and the
// characteristics table.
func (s *Service) writeClusterReports(trips []models.Trip, X [][]float64, labels []int, outcome *ClusterOutcome) error {
	// Visualization-only projection; clustering always runs on the
	// full scaled feature space.
	viz, projected, err := preprocess.FitPipeline(X, true, 2, s.logger.Level(zerolog.Disabled))
	if err != nil {
		return err
	}

	if err := s.figures.ClusterScatter(projected, labels, "Clusters in PCA space"); err != nil {
		return err
	}
	if err := s.figures.ExplainedVariance(viz.PCA.ExplainedVariance); err != nil {
		return err
	}
	if err := s.figures.ClusterSizes(outcome.Profiles); err != nil {
		return err
	}
	if err := s.figures.ProfileHeatmap(outcome.Profiles); err != nil {
		return err
	}
	return s.tables.WriteCharacteristics(trips, labels, outcome.Interpretations, "cluster_characteristics.csv")
}

// allStoredTrips pages through the trips table in insertion order.
func (s *Service) allStoredTrips() ([]models.Trip, error) {
	const pageSize = 5000

	var all []models.Trip
	for page := 1; ; page++ {
		batch, err := s.trips.GetTrips(models.TripFilter{Page: page, PageSize: pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no trips stored; run preprocessing first")
	}
	return all, nil
}

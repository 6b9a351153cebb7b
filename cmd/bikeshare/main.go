package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jengzang/bikeshare-clustering-go/internal/cluster"
	"github.com/jengzang/bikeshare-clustering-go/internal/config"
	"github.com/jengzang/bikeshare-clustering-go/internal/database"
	"github.com/jengzang/bikeshare-clustering-go/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	svc    *pipeline.Service
	close  func()
}

// setup loads configuration, opens the results store and wires the
// pipeline service. Flag values override the environment.
func setup(sample float64, seed int64) (*app, error) {
	cfg := config.Load()
	if sample > 0 {
		cfg.SampleFraction = sample
	}
	if seed != 0 {
		cfg.RandomSeed = seed
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).
		With().Timestamp().Logger()

	if err := cfg.Paths.EnsureDirs(); err != nil {
		return nil, err
	}

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		svc:    pipeline.NewService(cfg, db, logger),
		close:  func() { db.Close() },
	}, nil
}

func newRootCmd() *cobra.Command {
	var (
		sample float64
		seed   int64
	)

	root := &cobra.Command{
		Use:   "bikeshare",
		Short: "Bike-share trip clustering pipeline",
		Long: `Analyzes bike-share trip logs: loads raw CSV exports, cleans and
feature-engineers them, clusters rider behavior and writes figures,
tables and a sqlite results store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().Float64Var(&sample, "sample", 0, "fraction of rows to load (0 = use config)")
	root.PersistentFlags().Int64Var(&seed, "seed", 0, "random seed (0 = use config)")

	run := func(fn func(*app) error) func(*cobra.Command, []string) error {
		return func(*cobra.Command, []string) error {
			a, err := setup(sample, seed)
			if err != nil {
				return err
			}
			defer a.close()
			return fn(a)
		}
	}

	root.AddCommand(
		newDiagnoseCmd(run),
		newPreprocessCmd(run),
		newClusterCmd(run),
		newElbowCmd(run),
		newStabilityCmd(run),
		newInterpretCmd(run),
		newPipelineCmd(run),
	)
	return root
}

type runner func(func(*app) error) func(*cobra.Command, []string) error

func newDiagnoseCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Write the data-quality report and distribution figures",
		RunE: run(func(a *app) error {
			return a.svc.RunDiagnostics()
		}),
	}
}

func newPreprocessCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "preprocess",
		Short: "Clean trips, engineer features and fit the scaler",
		RunE: run(func(a *app) error {
			return a.svc.RunPreprocess()
		}),
	}
}

func newClusterCmd(run runner) *cobra.Command {
	var (
		algorithm string
		k         int
		linkage   string
		eps       float64
		minPts    int
		compare   bool
	)

	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run one clustering algorithm, or all three with --compare",
		RunE: run(func(a *app) error {
			if compare {
				_, err := a.svc.CompareAlgorithms([]pipeline.ClusterOptions{
					{Algorithm: pipeline.AlgorithmKMeans, K: k},
					{Algorithm: pipeline.AlgorithmAgglomerative, K: k, Linkage: linkage},
					{Algorithm: pipeline.AlgorithmDBSCAN, Eps: eps, MinPts: minPts},
				})
				return err
			}
			_, err := a.svc.RunCluster(pipeline.ClusterOptions{
				Algorithm: algorithm,
				K:         k,
				Linkage:   linkage,
				Eps:       eps,
				MinPts:    minPts,
			})
			return err
		}),
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", pipeline.AlgorithmKMeans, "kmeans, agglomerative or dbscan")
	cmd.Flags().IntVar(&k, "k", 5, "number of clusters (kmeans, agglomerative)")
	cmd.Flags().StringVar(&linkage, "linkage", string(cluster.LinkageWard), "ward, complete or average (agglomerative)")
	cmd.Flags().Float64Var(&eps, "eps", 0.8, "neighborhood radius (dbscan)")
	cmd.Flags().IntVar(&minPts, "min-pts", 10, "minimum neighborhood size (dbscan)")
	cmd.Flags().BoolVar(&compare, "compare", false, "run all three algorithms and write the comparison table")
	return cmd
}

func newElbowCmd(run runner) *cobra.Command {
	var minK, maxK int

	cmd := &cobra.Command{
		Use:   "elbow",
		Short: "Sweep K-Means over candidate k values",
		RunE: run(func(a *app) error {
			if minK < 2 || maxK < minK {
				return fmt.Errorf("invalid k range [%d, %d]", minK, maxK)
			}
			ks := make([]int, 0, maxK-minK+1)
			for k := minK; k <= maxK; k++ {
				ks = append(ks, k)
			}
			_, err := a.svc.RunElbow(ks)
			return err
		}),
	}

	cmd.Flags().IntVar(&minK, "min-k", 3, "smallest k to try")
	cmd.Flags().IntVar(&maxK, "max-k", 7, "largest k to try")
	return cmd
}

func newStabilityCmd(run runner) *cobra.Command {
	var k, runs int

	cmd := &cobra.Command{
		Use:   "stability",
		Short: "Repeat K-Means across seeds and summarize silhouette spread",
		RunE: run(func(a *app) error {
			_, err := a.svc.RunStability(k, runs)
			return err
		}),
	}

	cmd.Flags().IntVar(&k, "k", 5, "number of clusters")
	cmd.Flags().IntVar(&runs, "runs", 20, "number of seeded repetitions")
	return cmd
}

func newInterpretCmd(run runner) *cobra.Command {
	var runID int64

	cmd := &cobra.Command{
		Use:   "interpret",
		Short: "Assign segment labels to a stored clustering run",
		RunE: run(func(a *app) error {
			_, err := a.svc.RunInterpret(runID)
			return err
		}),
	}

	cmd.Flags().Int64Var(&runID, "run", 0, "run id (0 = most recent)")
	return cmd
}

func newPipelineCmd(run runner) *cobra.Command {
	var (
		k      int
		eps    float64
		minPts int
	)

	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Run the full analysis end to end",
		RunE: run(func(a *app) error {
			return a.svc.RunAll(k, eps, minPts)
		}),
	}

	cmd.Flags().IntVar(&k, "k", 5, "number of clusters for kmeans and agglomerative")
	cmd.Flags().Float64Var(&eps, "eps", 0.8, "neighborhood radius (dbscan)")
	cmd.Flags().IntVar(&minPts, "min-pts", 10, "minimum neighborhood size (dbscan)")
	return cmd
}

package preprocess

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
	"github.com/jengzang/bikeshare-clustering-go/internal/stats"
)

// PipelineVersion is the artifact schema version.
const PipelineVersion = 1

// Pipeline holds the fitted preprocessing state (per-feature
// standardization, optionally followed by PCA) so future feature
// matrices can be transformed consistently with the training data.
type Pipeline struct {
	Version int      `json:"version"`
	Columns []string `json:"columns"`
	Means   []float64 `json:"means"`
	Scales  []float64 `json:"scales"`
	PCA     *PCATransform `json:"pca,omitempty"`
}

// PCATransform is a fitted principal-component projection.
// Components is feature-major: Components[i][j] is the loading of
// feature i on component j.
type PCATransform struct {
	NComponents       int         `json:"n_components"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance_ratio"`
}

// FitPipeline standardizes X column-wise and optionally fits a PCA
// projection to nComponents dimensions. Returns the fitted pipeline
// and the transformed matrix.
func FitPipeline(X [][]float64, applyPCA bool, nComponents int, logger zerolog.Logger) (*Pipeline, [][]float64, error) {
	if len(X) == 0 {
		return nil, nil, fmt.Errorf("cannot fit preprocessing pipeline on empty matrix")
	}
	nFeatures := len(X[0])

	p := &Pipeline{
		Version: PipelineVersion,
		Columns: models.FeatureColumns,
		Means:   make([]float64, nFeatures),
		Scales:  make([]float64, nFeatures),
	}

	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		for i := range X {
			col[i] = X[i][j]
		}
		p.Means[j] = stats.Mean(col)
		scale := stats.PopStdDev(col)
		if scale == 0 {
			scale = 1
		}
		p.Scales[j] = scale
	}

	scaled := p.scale(X)
	logger.Info().Int("features", nFeatures).Msg("applied standard scaler")

	if applyPCA {
		if nComponents < 1 || nComponents > nFeatures {
			return nil, nil, fmt.Errorf("invalid PCA component count %d for %d features", nComponents, nFeatures)
		}

		pca, err := fitPCA(scaled, nComponents)
		if err != nil {
			return nil, nil, err
		}
		p.PCA = pca
		scaled = pca.project(scaled)

		logger.Info().
			Int("components", nComponents).
			Float64("explained_variance", stats.Sum(pca.ExplainedVariance)).
			Msg("applied PCA")
	}

	return p, scaled, nil
}

// Transform reapplies the fitted pipeline to a new feature matrix.
func (p *Pipeline) Transform(X [][]float64) ([][]float64, error) {
	for i := range X {
		if len(X[i]) != len(p.Means) {
			return nil, fmt.Errorf("feature matrix has %d columns, pipeline expects %d", len(X[i]), len(p.Means))
		}
	}

	out := p.scale(X)
	if p.PCA != nil {
		out = p.PCA.project(out)
	}
	return out, nil
}

func (p *Pipeline) scale(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		row := make([]float64, len(X[i]))
		for j := range X[i] {
			row[j] = (X[i][j] - p.Means[j]) / p.Scales[j]
		}
		out[i] = row
	}
	return out
}

// fitPCA computes principal components of the standardized matrix.
func fitPCA(X [][]float64, nComponents int) (*PCATransform, error) {
	rows, cols := len(X), len(X[0])

	m := mat.NewDense(rows, cols, nil)
	for i, row := range X {
		m.SetRow(i, row)
	}

	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return nil, fmt.Errorf("failed to compute principal components")
	}

	var vecs mat.Dense
	pc.VectorsTo(&vecs)
	vars := pc.VarsTo(nil)

	total := stats.Sum(vars)

	t := &PCATransform{
		NComponents:       nComponents,
		Components:        make([][]float64, cols),
		ExplainedVariance: make([]float64, nComponents),
	}
	for i := 0; i < cols; i++ {
		t.Components[i] = make([]float64, nComponents)
		for j := 0; j < nComponents; j++ {
			t.Components[i][j] = vecs.At(i, j)
		}
	}
	for j := 0; j < nComponents; j++ {
		if total > 0 {
			t.ExplainedVariance[j] = vars[j] / total
		}
	}

	return t, nil
}

// project multiplies X by the fitted component loadings.
func (t *PCATransform) project(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		proj := make([]float64, t.NComponents)
		for j := 0; j < t.NComponents; j++ {
			var sum float64
			for k, v := range row {
				sum += v * t.Components[k][j]
			}
			proj[j] = sum
		}
		out[i] = proj
	}
	return out
}

// Save writes the fitted pipeline artifact as JSON.
func (p *Pipeline) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode pipeline artifact: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write pipeline artifact: %w", err)
	}
	return nil
}

// LoadPipeline reads a previously saved pipeline artifact.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline artifact: %w", err)
	}

	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to decode pipeline artifact: %w", err)
	}
	if p.Version != PipelineVersion {
		return nil, fmt.Errorf("unsupported pipeline artifact version %d", p.Version)
	}
	return &p, nil
}

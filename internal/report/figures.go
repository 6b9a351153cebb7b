package report

import (
	"fmt"
	"image/color"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/jengzang/bikeshare-clustering-go/internal/models"
	"github.com/jengzang/bikeshare-clustering-go/internal/stats"
)

const (
	histBins = 40

	figWidth  = 6 * vg.Inch
	figHeight = 4.5 * vg.Inch
)

// FigureWriter renders analysis figures as PNG files under a fixed
// directory.
type FigureWriter struct {
	dir    string
	logger zerolog.Logger
}

// NewFigureWriter creates a figure writer rooted at dir.
func NewFigureWriter(dir string, logger zerolog.Logger) *FigureWriter {
	return &FigureWriter{dir: dir, logger: logger.With().Str("component", "figures").Logger()}
}

func (w *FigureWriter) path(name string) string {
	return w.dir + "/" + name
}

// DurationHistogram draws trip durations twice: the full range and a
// zoom on 1 to 60 minutes where most of the mass sits.
func (w *FigureWriter) DurationHistogram(trips []models.Trip) error {
	all := make([]float64, 0, len(trips))
	zoom := make([]float64, 0, len(trips))
	for i := range trips {
		d := trips[i].DurationMin
		all = append(all, d)
		if d >= 1 && d <= 60 {
			zoom = append(zoom, d)
		}
	}

	left, err := histogramPlot("Trip duration (all)", "duration (min)", all)
	if err != nil {
		return err
	}
	right, err := histogramPlot("Trip duration (1-60 min)", "duration (min)", zoom)
	if err != nil {
		return err
	}
	return w.saveTiles([][]*plot.Plot{{left, right}}, "duration_hist.png")
}

// DistanceHistogram draws trip distances for the full range and for
// 0.1 to 10 km, excluding round trips that collapse to zero.
func (w *FigureWriter) DistanceHistogram(trips []models.Trip) error {
	all := make([]float64, 0, len(trips))
	zoom := make([]float64, 0, len(trips))
	for i := range trips {
		d := trips[i].DistanceKm
		all = append(all, d)
		if d >= 0.1 && d <= 10 {
			zoom = append(zoom, d)
		}
	}

	left, err := histogramPlot("Trip distance (all)", "distance (km)", all)
	if err != nil {
		return err
	}
	right, err := histogramPlot("Trip distance (0.1-10 km)", "distance (km)", zoom)
	if err != nil {
		return err
	}
	return w.saveTiles([][]*plot.Plot{{left, right}}, "distance_hist.png")
}

// HourlyCounts draws the number of trips started in each hour of day.
func (w *FigureWriter) HourlyCounts(trips []models.Trip) error {
	counts := make(plotter.Values, 24)
	for i := range trips {
		h := trips[i].StartHour
		if h >= 0 && h < 24 {
			counts[h]++
		}
	}

	p := plot.New()
	p.Title.Text = "Trips by start hour"
	p.X.Label.Text = "hour of day"
	p.Y.Label.Text = "trips"

	bars, err := plotter.NewBarChart(counts, vg.Points(10))
	if err != nil {
		return fmt.Errorf("failed to build hourly bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)

	labels := make([]string, 24)
	for h := range labels {
		labels[h] = fmt.Sprintf("%d", h)
	}
	p.NominalX(labels...)

	return w.save(p, "hourly_counts.png")
}

// WeekdayCounts draws the number of trips per weekday, Monday first.
func (w *FigureWriter) WeekdayCounts(trips []models.Trip) error {
	counts := make(plotter.Values, 7)
	for i := range trips {
		d := trips[i].Weekday
		if d >= 0 && d < 7 {
			counts[d]++
		}
	}

	p := plot.New()
	p.Title.Text = "Trips by weekday"
	p.Y.Label.Text = "trips"

	bars, err := plotter.NewBarChart(counts, vg.Points(24))
	if err != nil {
		return fmt.Errorf("failed to build weekday bar chart: %w", err)
	}
	bars.Color = plotutil.Color(2)
	p.Add(bars)
	p.NominalX("Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun")

	return w.save(p, "weekday_counts.png")
}

// ElbowFigure draws the four K-Means selection curves in a 2x2 grid.
// The silhouette panel carries the 0.35 target line and the
// Davies-Bouldin panel the 1.5 guideline, both purely advisory.
func (w *FigureWriter) ElbowFigure(points []models.ElbowPoint) error {
	if len(points) == 0 {
		return fmt.Errorf("no elbow points to plot")
	}

	sil, err := elbowPanel(points, "Silhouette", func(p models.ElbowPoint) float64 { return p.Silhouette })
	if err != nil {
		return err
	}
	if err := addGuideline(sil, points, 0.35); err != nil {
		return err
	}

	db, err := elbowPanel(points, "Davies-Bouldin", func(p models.ElbowPoint) float64 { return p.DaviesBouldin })
	if err != nil {
		return err
	}
	if err := addGuideline(db, points, 1.5); err != nil {
		return err
	}

	ch, err := elbowPanel(points, "Calinski-Harabasz", func(p models.ElbowPoint) float64 { return p.CalinskiHarabasz })
	if err != nil {
		return err
	}
	inertia, err := elbowPanel(points, "Inertia", func(p models.ElbowPoint) float64 { return p.Inertia })
	if err != nil {
		return err
	}

	return w.saveTiles([][]*plot.Plot{{sil, db}, {ch, inertia}}, "elbow.png")
}

// ClusterScatter projects the feature matrix onto the first two
// principal components and colors each point by its cluster label.
// Noise points are drawn in grey.
func (w *FigureWriter) ClusterScatter(projected [][]float64, labels []int, title string) error {
	if len(projected) != len(labels) {
		return fmt.Errorf("projection has %d rows but %d labels", len(projected), len(labels))
	}

	groups := make(map[int]plotter.XYs)
	for i, row := range projected {
		if len(row) < 2 {
			return fmt.Errorf("projection row %d has %d components, need 2", i, len(row))
		}
		groups[labels[i]] = append(groups[labels[i]], plotter.XY{X: row[0], Y: row[1]})
	}

	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	for _, id := range ids {
		sc, err := plotter.NewScatter(groups[id])
		if err != nil {
			return fmt.Errorf("failed to build cluster scatter: %w", err)
		}
		sc.GlyphStyle.Radius = vg.Points(1.5)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		if id == models.NoiseLabel {
			sc.GlyphStyle.Color = color.Gray{Y: 0xaa}
			p.Legend.Add("noise", sc)
		} else {
			sc.GlyphStyle.Color = plotutil.Color(id)
			p.Legend.Add(fmt.Sprintf("cluster %d", id), sc)
		}
		p.Add(sc)
	}
	p.Legend.Top = true

	return w.save(p, "cluster_scatter.png")
}

// ExplainedVariance draws per-component explained variance ratios as
// bars with the cumulative ratio as a line.
func (w *FigureWriter) ExplainedVariance(ratios []float64) error {
	if len(ratios) == 0 {
		return fmt.Errorf("no variance ratios to plot")
	}

	p := plot.New()
	p.Title.Text = "PCA explained variance"
	p.X.Label.Text = "component"
	p.Y.Label.Text = "variance ratio"
	p.Y.Min = 0

	bars, err := plotter.NewBarChart(plotter.Values(ratios), vg.Points(20))
	if err != nil {
		return fmt.Errorf("failed to build variance bar chart: %w", err)
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)

	cum := make(plotter.XYs, len(ratios))
	total := 0.0
	for i, r := range ratios {
		total += r
		cum[i] = plotter.XY{X: float64(i), Y: total}
	}
	line, err := plotter.NewLine(cum)
	if err != nil {
		return fmt.Errorf("failed to build cumulative variance line: %w", err)
	}
	line.Color = plotutil.Color(3)
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("cumulative", line)

	labels := make([]string, len(ratios))
	for i := range labels {
		labels[i] = fmt.Sprintf("PC%d", i+1)
	}
	p.NominalX(labels...)

	return w.save(p, "explained_variance.png")
}

// ClusterSizes draws the number of points per cluster, noise included.
func (w *FigureWriter) ClusterSizes(profiles []models.ClusterProfile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no cluster profiles to plot")
	}

	values := make(plotter.Values, len(profiles))
	labels := make([]string, len(profiles))
	for i, pr := range profiles {
		values[i] = float64(pr.Size)
		if pr.Cluster == models.NoiseLabel {
			labels[i] = "noise"
		} else {
			labels[i] = fmt.Sprintf("%d", pr.Cluster)
		}
	}

	p := plot.New()
	p.Title.Text = "Cluster sizes"
	p.X.Label.Text = "cluster"
	p.Y.Label.Text = "trips"

	bars, err := plotter.NewBarChart(values, vg.Points(24))
	if err != nil {
		return fmt.Errorf("failed to build cluster size chart: %w", err)
	}
	bars.Color = plotutil.Color(1)
	p.Add(bars)
	p.NominalX(labels...)

	return w.save(p, "cluster_sizes.png")
}

// ProfileHeatmap draws cluster-by-feature means, z-scored per feature
// so that every column is comparable.
func (w *FigureWriter) ProfileHeatmap(profiles []models.ClusterProfile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("no cluster profiles to plot")
	}

	cols := models.FeatureColumns
	z := make([][]float64, len(profiles))
	for i := range z {
		z[i] = make([]float64, len(cols))
	}
	for j, name := range cols {
		column := make([]float64, len(profiles))
		for i, pr := range profiles {
			column[i] = pr.Means[name]
		}
		mean := stats.Mean(column)
		std := stats.PopStdDev(column)
		for i, v := range column {
			if std > 0 {
				z[i][j] = (v - mean) / std
			}
		}
	}

	grid := profileGrid{z: z}
	pal := moreland.SmoothBlueRed().Palette(255)
	hm := plotter.NewHeatMap(grid, pal)

	p := plot.New()
	p.Title.Text = "Cluster profiles (z-scored feature means)"
	p.X.Tick.Marker = labelTicks{labels: cols}

	rowLabels := make([]string, len(profiles))
	for i, pr := range profiles {
		if pr.Cluster == models.NoiseLabel {
			rowLabels[i] = "noise"
		} else {
			rowLabels[i] = fmt.Sprintf("cluster %d", pr.Cluster)
		}
	}
	p.Y.Tick.Marker = labelTicks{labels: rowLabels}
	p.Add(hm)

	return w.save(p, "cluster_profiles.png")
}

func (w *FigureWriter) save(p *plot.Plot, name string) error {
	path := w.path(name)
	if err := p.Save(figWidth, figHeight, path); err != nil {
		return fmt.Errorf("failed to save figure %s: %w", name, err)
	}
	w.logger.Info().Str("path", path).Msg("figure written")
	return nil
}

// saveTiles lays out a grid of panels on one PNG canvas.
func (w *FigureWriter) saveTiles(plots [][]*plot.Plot, name string) error {
	rows := len(plots)
	cols := len(plots[0])

	img := vgimg.New(vg.Length(cols)*figWidth, vg.Length(rows)*figHeight)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: rows, Cols: cols,
		PadX: vg.Points(8), PadY: vg.Points(8),
		PadTop: vg.Points(4), PadBottom: vg.Points(4),
		PadLeft: vg.Points(4), PadRight: vg.Points(4),
	}

	canvases := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c := range plots[r] {
			if plots[r][c] != nil {
				plots[r][c].Draw(canvases[r][c])
			}
		}
	}

	path := w.path(name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create figure file: %w", err)
	}
	defer f.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("failed to write figure %s: %w", name, err)
	}
	w.logger.Info().Str("path", path).Msg("figure written")
	return nil
}

func histogramPlot(title, xlabel string, values []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "trips"

	if len(values) == 0 {
		return p, nil
	}
	h, err := plotter.NewHist(plotter.Values(values), histBins)
	if err != nil {
		return nil, fmt.Errorf("failed to build histogram %q: %w", title, err)
	}
	h.FillColor = plotutil.Color(0)
	p.Add(h)
	return p, nil
}

func elbowPanel(points []models.ElbowPoint, title string, value func(models.ElbowPoint) float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "k"

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: float64(pt.K), Y: value(pt)}
	}

	line, pts, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s panel: %w", title, err)
	}
	line.Color = plotutil.Color(0)
	pts.Shape = draw.CircleGlyph{}
	pts.Color = plotutil.Color(0)
	p.Add(line, pts)
	return p, nil
}

func addGuideline(p *plot.Plot, points []models.ElbowPoint, y float64) error {
	minK, maxK := points[0].K, points[0].K
	for _, pt := range points {
		if pt.K < minK {
			minK = pt.K
		}
		if pt.K > maxK {
			maxK = pt.K
		}
	}

	line, err := plotter.NewLine(plotter.XYs{
		{X: float64(minK), Y: y},
		{X: float64(maxK), Y: y},
	})
	if err != nil {
		return fmt.Errorf("failed to build guideline: %w", err)
	}
	line.Color = color.RGBA{R: 0xcc, A: 0xff}
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(line)
	return nil
}

// profileGrid adapts a cluster-by-feature matrix to the heat map
// input interface.
type profileGrid struct {
	z [][]float64 // [cluster][feature]
}

func (g profileGrid) Dims() (c, r int)   { return len(g.z[0]), len(g.z) }
func (g profileGrid) Z(c, r int) float64 { return g.z[r][c] }
func (g profileGrid) X(c int) float64    { return float64(c) }
func (g profileGrid) Y(r int) float64    { return float64(r) }

// labelTicks places one named tick per integer position.
type labelTicks struct {
	labels []string
}

func (t labelTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for i, l := range t.labels {
		v := float64(i)
		if v < min || v > max {
			continue
		}
		ticks = append(ticks, plot.Tick{Value: v, Label: l})
	}
	return ticks
}

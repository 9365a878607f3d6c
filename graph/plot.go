package graph

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// distanceGrid adapts a Table to plotter.GridXYZ.
type distanceGrid struct {
	t *Table
}

func (g distanceGrid) Dims() (c, r int)   { return g.t.Len(), g.t.Len() }
func (g distanceGrid) Z(c, r int) float64 { return g.t.Distance(r, c) }
func (g distanceGrid) X(c int) float64    { return float64(c) }
func (g distanceGrid) Y(r int) float64    { return float64(r) }

// PlotDistanceHeatMap writes a PNG heat map of the full distance matrix.
func PlotDistanceHeatMap(t *Table, path string) error {
	if t.Len() < 2 {
		return errors.Wrapf(ErrDataShape, "heat map needs at least 2 regions, have %d", t.Len())
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("DTW distance between %d regions", t.Len())
	p.X.Label.Text = "region"
	p.Y.Label.Text = "region"

	h := plotter.NewHeatMap(distanceGrid{t}, palette.Heat(16, 1))
	p.Add(h)

	return save(p, path)
}

// PlotProfiles writes a PNG with the averaged weekly profile of the given
// regions, one line per region.
func PlotProfiles(agg *Aggregate, regions []int, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Average profile over %d windows", agg.Windows())
	p.X.Label.Text = "step within period"
	p.Y.Label.Text = "demand"

	for i, r := range regions {
		if r < 0 || r >= agg.Regions() {
			return errors.Wrapf(ErrDataShape, "region %d out of range [0, %d)", r, agg.Regions())
		}
		signal := agg.Signal(r)
		xys := make(plotter.XYs, len(signal))
		for t, v := range signal {
			xys[t] = plotter.XY{X: float64(t), Y: v}
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = plotutil.Color(i)
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("region %d", r), line)
	}
	p.Add(plotter.NewGrid())

	return save(p, path)
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(ErrIO, "mkdir for %s: %v", path, err)
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return errors.Wrapf(ErrIO, "save plot %s: %v", path, err)
	}
	return nil
}

package graph

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Noofbiz/demandgraph/datasets"
	"gonum.org/v1/gonum/mat"
)

// fourRegionSeries returns 48 hourly steps on a 2x2 grid. Every region
// repeats a daily shape with its own amplitude and phase.
func fourRegionSeries(t *testing.T) *datasets.RegionSeries {
	t.Helper()
	steps, rows, cols := 48, 2, 2
	data := make([]float64, steps*rows*cols)
	for s := range steps {
		for r := range rows * cols {
			h := float64((s + 3*r) % 24)
			data[s*rows*cols+r] = float64(r+1) * (1 + math.Sin(h/24*2*math.Pi))
		}
	}
	series, err := datasets.NewRegionSeries(steps, rows, cols, data)
	if err != nil {
		t.Fatalf("NewRegionSeries: %v", err)
	}
	return series
}

func TestWeeklyAggregateAveragesFullWindows(t *testing.T) {
	// 5 steps, 1 region, period 2: windows {1,2} and {3,4}, trailing 5 dropped
	series, err := datasets.NewRegionSeries(5, 1, 1, []float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatal(err)
	}
	agg, err := WeeklyAggregate(series, 2)
	if err != nil {
		t.Fatalf("WeeklyAggregate: %v", err)
	}
	if agg.Windows() != 2 || agg.Period() != 2 || agg.Regions() != 1 {
		t.Fatalf("unexpected dims windows=%d period=%d regions=%d", agg.Windows(), agg.Period(), agg.Regions())
	}
	got := agg.Signal(0)
	if got[0] != 2 || got[1] != 3 {
		t.Fatalf("signal = %v, want [2 3]", got)
	}
}

func TestWeeklyAggregateRejectsShortSeries(t *testing.T) {
	series, err := datasets.NewRegionSeries(10, 1, 2, make([]float64, 20))
	if err != nil {
		t.Fatal(err)
	}
	for _, period := range []int{0, -1, 11} {
		if _, err := WeeklyAggregate(series, period); !errors.Is(err, ErrDataShape) {
			t.Fatalf("period %d: expected ErrDataShape, got %v", period, err)
		}
	}
	if _, err := Build(series, Options{Period: 168}); !errors.Is(err, ErrDataShape) {
		t.Fatalf("Build: expected ErrDataShape, got %v", err)
	}
}

func TestDTWKnownCost(t *testing.T) {
	cost, path := DTW([]float64{1, 2, 3}, []float64{2, 3, 4})
	if cost != 2 {
		t.Fatalf("DTW cost = %v, want 2", cost)
	}
	checkPath(t, path, 3, 3)

	if cost, _ := DTW([]float64{0, 0, 1}, []float64{0, 1, 1}); cost != 0 {
		t.Fatalf("warped identical shapes cost %v, want 0", cost)
	}
}

func TestFastDTWBounds(t *testing.T) {
	x := make([]float64, 64)
	y := make([]float64, 57)
	for i := range x {
		x[i] = math.Sin(float64(i) / 5)
	}
	for i := range y {
		y[i] = math.Cos(float64(i)/4) * 1.5
	}
	exact, _ := DTW(x, y)

	for _, radius := range []int{1, 2, 5} {
		approx, path := FastDTW(x, y, radius)
		if approx < exact-1e-9 {
			t.Fatalf("radius %d: FastDTW %v below exact %v", radius, approx, exact)
		}
		checkPath(t, path, len(x), len(y))
	}
	if approx, _ := FastDTW(x, y, len(x)); approx != exact {
		t.Fatalf("wide radius: FastDTW %v, exact %v", approx, exact)
	}
	if self, _ := FastDTW(x, x, 1); self != 0 {
		t.Fatalf("FastDTW(x, x) = %v, want 0", self)
	}
}

func checkPath(t *testing.T, p Path, n, m int) {
	t.Helper()
	if len(p) == 0 {
		t.Fatalf("empty path")
	}
	if p[0] != (Cell{0, 0}) || p[len(p)-1] != (Cell{n - 1, m - 1}) {
		t.Fatalf("path endpoints %v .. %v", p[0], p[len(p)-1])
	}
	for k := 1; k < len(p); k++ {
		di, dj := p[k].I-p[k-1].I, p[k].J-p[k-1].J
		if di < 0 || dj < 0 || di > 1 || dj > 1 || di+dj == 0 {
			t.Fatalf("invalid step %v -> %v", p[k-1], p[k])
		}
	}
}

func TestBuildFourRegions(t *testing.T) {
	series := fourRegionSeries(t)
	res, err := Build(series, Options{Period: 24, Workers: 2})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Aggregate.Windows() != 2 {
		t.Fatalf("windows = %d, want 2", res.Aggregate.Windows())
	}
	if got := len(res.Aggregate.Signal(3)); got != 24 {
		t.Fatalf("signal length = %d, want 24", got)
	}
	tbl := res.Table
	if tbl.Len() != 4 {
		t.Fatalf("table has %d rows, want 4", tbl.Len())
	}
	for i, row := range tbl.Rows {
		if len(row) != 4-i {
			t.Fatalf("row %d has %d entries", i, len(row))
		}
		if row[0] != 0 {
			t.Fatalf("self distance of %d = %v", i, row[0])
		}
	}
	for i := range 4 {
		for j := range 4 {
			if tbl.Distance(i, j) != tbl.Distance(j, i) {
				t.Fatalf("asymmetric distance at (%d, %d)", i, j)
			}
			if i != j && tbl.Distance(i, j) <= 0 {
				t.Fatalf("distinct regions %d, %d have distance %v", i, j, tbl.Distance(i, j))
			}
		}
	}
	if tbl.Period != 24 || tbl.Radius != 1 {
		t.Fatalf("table parameters period=%d radius=%d", tbl.Period, tbl.Radius)
	}

	var buf bytes.Buffer
	if err := tbl.WriteEdgeList(&buf, EdgeListOptions{}); err != nil {
		t.Fatalf("WriteEdgeList: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 16 {
		t.Fatalf("edge list has %d lines, want 16", len(lines))
	}
	if lines[0] != "0 0 0.0" || !strings.HasPrefix(lines[1], "0 1 ") || !strings.HasPrefix(lines[2], "1 0 ") {
		t.Fatalf("unexpected edge order: %q", lines[:3])
	}
	if strings.TrimPrefix(lines[1], "0 1 ") != strings.TrimPrefix(lines[2], "1 0 ") {
		t.Fatalf("reverse edge distance differs: %q vs %q", lines[1], lines[2])
	}

	buf.Reset()
	if err := tbl.WriteEdgeList(&buf, EdgeListOptions{DuplicateSelfLoops: true}); err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != 20 {
		t.Fatalf("duplicated self loops: %d lines, want 20", n)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	series := fourRegionSeries(t)
	a, err := Build(series, Options{Period: 24, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Build(series, Options{Period: 24, Workers: 4})
	if err != nil {
		t.Fatal(err)
	}
	if !a.Table.Equal(b.Table) {
		t.Fatalf("tables differ between runs")
	}
	exact, err := Build(series, Options{Period: 24, Exact: true})
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range exact.Table.Rows {
		for k, d := range row {
			if a.Table.Rows[i][k] < d-1e-9 {
				t.Fatalf("FastDTW below exact at (%d, %d)", i, i+k)
			}
		}
	}
	if _, err := Build(series, Options{Period: 24, Radius: -2}); !errors.Is(err, ErrRadius) {
		t.Fatalf("expected ErrRadius, got %v", err)
	}
}

func TestTableSaveLoad(t *testing.T) {
	res, err := Build(fourRegionSeries(t), Options{Period: 24})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "nested", TableFile)
	if err := res.Table.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if !loaded.Equal(res.Table) {
		t.Fatalf("reloaded table differs")
	}
	for i := range 4 {
		for j := i; j < 4; j++ {
			if loaded.Rows[i][j-i] != res.Table.Distance(i, j) {
				t.Fatalf("reloaded[%d][%d] mismatch", i, j-i)
			}
		}
	}
	if loaded.Period != 24 || loaded.Radius != 1 {
		t.Fatalf("parameters lost: %+v", loaded)
	}

	if _, err := LoadTable(filepath.Join(t.TempDir(), "missing.gob")); !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for missing file, got %v", err)
	}
}

func TestFormatDistance(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0.0"},
		{1, "1.0"},
		{1.5, "1.5"},
		{123456.789, "123456.789"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{2.5e-7, "2.5e-07"},
		{1e16, "1e+16"},
		{math.Inf(1), "inf"},
		{math.NaN(), "nan"},
	}
	for _, c := range cases {
		if got := formatDistance(c.in); got != c.want {
			t.Errorf("formatDistance(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestRescaledWeights(t *testing.T) {
	tbl := &Table{Rows: [][]float64{{0, 0.5, 5}, {0, 1}, {0}}}
	w := RescaledWeights(tbl, 1, 0.1)
	if w.At(0, 0) != 0 || w.At(1, 1) != 0 {
		t.Fatalf("diagonal not cleared")
	}
	if got := w.At(1, 0); math.Abs(got-math.Exp(-0.5)) > 1e-12 {
		t.Fatalf("w(1,0) = %v", got)
	}
	if w.At(0, 2) != 0 {
		t.Fatalf("weight below epsilon kept: %v", w.At(0, 2))
	}
}

func TestScaledLaplacian(t *testing.T) {
	adj := mat.NewSymDense(2, []float64{0, 1, 1, 0})
	l := NormalizedLaplacian(adj)
	want := mat.NewSymDense(2, []float64{1, -1, -1, 1})
	if !mat.EqualApprox(l, want, 1e-12) {
		t.Fatalf("laplacian = %v", mat.Formatted(l))
	}
	scaled, err := ScaledLaplacian(adj, 0)
	if err != nil {
		t.Fatalf("ScaledLaplacian: %v", err)
	}
	want = mat.NewSymDense(2, []float64{0, -1, -1, 0})
	if !mat.EqualApprox(scaled, want, 1e-9) {
		t.Fatalf("scaled laplacian = %v", mat.Formatted(scaled))
	}

	// isolated node keeps only the identity term
	iso := NormalizedLaplacian(mat.NewSymDense(2, nil))
	if iso.At(0, 0) != 1 || iso.At(0, 1) != 0 {
		t.Fatalf("isolated laplacian = %v", mat.Formatted(iso))
	}
}

func TestWriteArtifacts(t *testing.T) {
	res, err := Build(fourRegionSeries(t), Options{Period: 24})
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "taxi")
	out, err := WriteArtifacts(dir, res, ArtifactOptions{Dataset: "taxi", Plots: true, LaplacianDelta: 10})
	if err != nil {
		t.Fatalf("WriteArtifacts: %v", err)
	}
	if len(out.Plots) != 2 {
		t.Fatalf("plots = %v", out.Plots)
	}

	fh, err := os.Open(out.EdgeList)
	if err != nil {
		t.Fatal(err)
	}
	defer fh.Close()
	lines := 0
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		if len(strings.Fields(sc.Text())) != 3 {
			t.Fatalf("malformed edge line %q", sc.Text())
		}
		lines++
	}
	if lines != 16 {
		t.Fatalf("edge list has %d lines, want 16", lines)
	}

	data, err := os.ReadFile(out.Manifest)
	if err != nil {
		t.Fatal(err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.RunID != out.RunID || m.Regions != 4 || m.Windows != 2 || len(m.Files) != 5 {
		t.Fatalf("unexpected manifest %+v", m)
	}

	lap, err := datasets.LoadNPY(out.Laplacian)
	if err != nil {
		t.Fatalf("LoadNPY: %v", err)
	}
	if len(lap.Shape) != 2 || lap.Shape[0] != 4 || lap.Shape[1] != 4 {
		t.Fatalf("laplacian shape %v", lap.Shape)
	}
}

func TestWriteArtifactsUnwritableDir(t *testing.T) {
	res, err := Build(fourRegionSeries(t), Options{Period: 24})
	if err != nil {
		t.Fatal(err)
	}
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = WriteArtifacts(filepath.Join(blocker, "out"), res, ArtifactOptions{})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

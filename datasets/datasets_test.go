package datasets

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func TestSpansDiscardsTrailingWindow(t *testing.T) {
	var got [][2]int
	for s, e := range Spans(50, 24, false) {
		got = append(got, [2]int{s, e})
	}
	want := [][2]int{{0, 24}, {24, 48}}
	if len(got) != len(want) {
		t.Fatalf("got %v windows, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window %d: got %v want %v", i, got[i], want[i])
		}
	}
	if n := SpanCount(50, 24, false); n != 2 {
		t.Fatalf("SpanCount = %d, want 2", n)
	}
}

func TestSpansKeepPartialAndRestart(t *testing.T) {
	seq := Spans(10, 4, true)
	for pass := 0; pass < 2; pass++ {
		var ends []int
		for _, e := range seq {
			ends = append(ends, e)
		}
		if len(ends) != 3 || ends[2] != 10 {
			t.Fatalf("pass %d: unexpected ends %v", pass, ends)
		}
	}
	if n := SpanCount(10, 4, true); n != 3 {
		t.Fatalf("SpanCount = %d, want 3", n)
	}
	for range Spans(10, 0, true) {
		t.Fatalf("zero size must yield nothing")
	}
}

func TestArraySplitAndChannel(t *testing.T) {
	// 6 steps, 2x1 grid, 2 channels: value = step*10 + region*2 + channel
	steps, regions, channels := 6, 2, 2
	data := make([]float64, steps*regions*channels)
	for s := range steps {
		for r := range regions {
			for c := range channels {
				data[(s*regions+r)*channels+c] = float64(s*10 + r*2 + c)
			}
		}
	}
	a := &Array{Shape: []int{steps, regions, channels}, Data: data}

	train, val, test, err := a.Split([]int{3, 1, 2})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if train.Len() != 3 || val.Len() != 1 || test.Len() != 2 {
		t.Fatalf("unexpected split lengths %d/%d/%d", train.Len(), val.Len(), test.Len())
	}
	if test.Data[0] != 40 {
		t.Fatalf("test split starts at %v, want 40", test.Data[0])
	}

	_, val2, test2, err := a.Split([]int{4, 2})
	if err != nil {
		t.Fatalf("Split two sizes: %v", err)
	}
	if val2 != nil || test2.Len() != 2 {
		t.Fatalf("two-way split: val=%v test len=%d", val2, test2.Len())
	}

	if _, _, _, err := a.Split([]int{5, 5}); !errors.Is(err, ErrShape) {
		t.Fatalf("oversized split: want ErrShape, got %v", err)
	}

	s, err := train.Channel(2, 1, 1)
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if s.Steps != 3 || s.Regions() != 2 {
		t.Fatalf("unexpected series shape %d x %d", s.Steps, s.Regions())
	}
	if got := s.At(2, 1, 0); got != 23 {
		t.Fatalf("At(2,1,0) = %v, want 23", got)
	}
	if got := s.Region(0); got[1] != 11 {
		t.Fatalf("Region(0) = %v", got)
	}
	if _, err := train.Channel(2, 1, 2); !errors.Is(err, ErrShape) {
		t.Fatalf("channel out of range: want ErrShape, got %v", err)
	}
	if _, err := train.Channel(3, 1, 0); !errors.Is(err, ErrShape) {
		t.Fatalf("bad grid: want ErrShape, got %v", err)
	}
}

func TestLoadNPY(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.npy")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m := mat.NewDense(3, 4, []float64{
		0, 1, 2, 3,
		4, 5, 6, 7,
		8, 9, 10, 11,
	})
	if err := npyio.Write(f, m); err != nil {
		t.Fatalf("npyio.Write: %v", err)
	}
	f.Close()

	a, err := LoadNPY(path)
	if err != nil {
		t.Fatalf("LoadNPY: %v", err)
	}
	if len(a.Shape) != 2 || a.Shape[0] != 3 || a.Shape[1] != 4 {
		t.Fatalf("unexpected shape %v", a.Shape)
	}
	s, err := a.Channel(2, 2, 0)
	if err != nil {
		t.Fatalf("Channel: %v", err)
	}
	if got := s.At(1, 1, 0); got != 6 {
		t.Fatalf("At(1,1,0) = %v, want 6", got)
	}

	if _, err := LoadNPY(filepath.Join(t.TempDir(), "missing.npy")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	s, err := NewRegionSeries(3, 1, 2, []float64{1, 2, 3.5, 4, 5, 6})
	if err != nil {
		t.Fatalf("NewRegionSeries: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	path := filepath.Join(t.TempDir(), "series.csv")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := LoadCSV(path, 1, 2)
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	for i := range s.Data {
		if got.Data[i] != s.Data[i] {
			t.Fatalf("value %d: got %v want %v", i, got.Data[i], s.Data[i])
		}
	}
	if _, err := LoadCSV(path, 2, 2); !errors.Is(err, ErrShape) {
		t.Fatalf("grid mismatch: want ErrShape, got %v", err)
	}
}

func TestNewRegionSeriesRejectsBadShape(t *testing.T) {
	if _, err := NewRegionSeries(2, 2, 2, make([]float64, 7)); !errors.Is(err, ErrShape) {
		t.Fatalf("want ErrShape, got %v", err)
	}
	if _, err := NewRegionSeries(0, 2, 2, nil); !errors.Is(err, ErrShape) {
		t.Fatalf("want ErrShape, got %v", err)
	}
}

func TestMinMaxScaler(t *testing.T) {
	var s MinMaxScaler
	if err := s.Fit([]float64{2, 10, 6}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	v := []float64{2, 6, 10}
	s.Transform(v)
	if v[0] != -1 || v[1] != 0 || v[2] != 1 {
		t.Fatalf("Transform = %v", v)
	}
	s.InverseTransform(v)
	if v[0] != 2 || v[1] != 6 || v[2] != 10 {
		t.Fatalf("InverseTransform = %v", v)
	}
	if got := s.RealLoss(0.5); math.Abs(got-2) > 1e-12 {
		t.Fatalf("RealLoss = %v, want 2", got)
	}
	if err := s.Fit([]float64{3, 3}); !errors.Is(err, ErrShape) {
		t.Fatalf("constant fit: want ErrShape, got %v", err)
	}
}

func TestReadEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emb.txt")
	content := "2 3\n2 0.5 1 -1\n0 1 2 3\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	emb, err := ReadEmbeddings(path, 4)
	if err != nil {
		t.Fatalf("ReadEmbeddings: %v", err)
	}
	if len(emb) != 4 || len(emb[0]) != 3 {
		t.Fatalf("unexpected embedding shape %d x %d", len(emb), len(emb[0]))
	}
	if emb[2][0] != 0.5 || emb[0][2] != 3 || emb[1][1] != 0 {
		t.Fatalf("unexpected embeddings %v", emb)
	}
	tt := EmbeddingsTensor(emb)
	if dims := tt.Shape().Dimensions; len(dims) != 2 || dims[0] != 4 || dims[1] != 3 {
		t.Fatalf("unexpected tensor dims %v", dims)
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(bad, []byte("1 2\n7 0 0\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadEmbeddings(bad, 4); !errors.Is(err, ErrFormat) {
		t.Fatalf("out-of-range region: want ErrFormat, got %v", err)
	}
}

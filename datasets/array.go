package datasets

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
)

// Array is a dense row-major numeric array with an arbitrary number of axes.
// Axis 0 is always time.
type Array struct {
	Shape []int
	Data  []float64
}

// Len returns the size of axis 0.
func (a *Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	return a.Shape[0]
}

// stride returns the number of values in one step of axis 0.
func (a *Array) stride() int {
	n := 1
	for _, d := range a.Shape[1:] {
		n *= d
	}
	return n
}

// Slice returns axis-0 steps [start, end) as a new Array sharing data.
func (a *Array) Slice(start, end int) (*Array, error) {
	if start < 0 || end > a.Len() || start > end {
		return nil, errors.Wrapf(ErrShape, "slice [%d, %d) out of range for length %d", start, end, a.Len())
	}
	st := a.stride()
	shape := append([]int{end - start}, a.Shape[1:]...)
	return &Array{Shape: shape, Data: a.Data[start*st : end*st]}, nil
}

// Split cuts the array along time the way the experiment scripts do: with
// three sizes it returns train, validate and test; with two sizes validate is
// nil and test follows train directly.
func (a *Array) Split(sizes []int) (train, validate, test *Array, err error) {
	if len(sizes) != 2 && len(sizes) != 3 {
		return nil, nil, nil, errors.Wrapf(ErrShape, "split needs 2 or 3 sizes, got %d", len(sizes))
	}
	if train, err = a.Slice(0, sizes[0]); err != nil {
		return nil, nil, nil, errors.Wrap(err, "train split")
	}
	offset := sizes[0]
	if len(sizes) == 3 {
		if validate, err = a.Slice(offset, offset+sizes[1]); err != nil {
			return nil, nil, nil, errors.Wrap(err, "validate split")
		}
		offset += sizes[1]
		sizes = sizes[1:]
	}
	if test, err = a.Slice(offset, offset+sizes[1]); err != nil {
		return nil, nil, nil, errors.Wrap(err, "test split")
	}
	return train, validate, test, nil
}

// Channel reshapes the array to (T, rows, cols, C) and extracts channel ch.
// Arrays stored as (T, rows*cols, C), (T, rows, cols, C) or (T, rows, cols)
// all qualify; C is inferred from the total size.
func (a *Array) Channel(rows, cols, ch int) (*RegionSeries, error) {
	steps := a.Len()
	if steps == 0 || rows <= 0 || cols <= 0 {
		return nil, errors.Wrapf(ErrShape, "cannot take grid %dx%d from shape %v", rows, cols, a.Shape)
	}
	st := a.stride()
	regions := rows * cols
	if st%regions != 0 {
		return nil, errors.Wrapf(ErrShape, "shape %v is not divisible into a %dx%d grid", a.Shape, rows, cols)
	}
	channels := st / regions
	if ch < 0 || ch >= channels {
		return nil, errors.Wrapf(ErrShape, "channel %d out of range, shape %v has %d channels", ch, a.Shape, channels)
	}
	data := make([]float64, steps*regions)
	for t := range steps {
		base := t * st
		for r := range regions {
			data[t*regions+r] = a.Data[base+r*channels+ch]
		}
	}
	return NewRegionSeries(steps, rows, cols, data)
}

// LoadNPY reads a little-endian, C-ordered .npy file into an Array.
func LoadNPY(path string) (*Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "%s: %v", path, err)
	}
	descr := r.Header.Descr
	if descr.Fortran {
		return nil, errors.Wrapf(ErrFormat, "%s: fortran-ordered arrays are not supported", path)
	}

	var data []float64
	switch descr.Type {
	case "<f8":
		err = r.Read(&data)
	case "<f4":
		var raw []float32
		if err = r.Read(&raw); err == nil {
			data = widen(raw)
		}
	case "<i8":
		var raw []int64
		if err = r.Read(&raw); err == nil {
			data = widen(raw)
		}
	case "<i4":
		var raw []int32
		if err = r.Read(&raw); err == nil {
			data = widen(raw)
		}
	default:
		return nil, errors.Wrapf(ErrFormat, "%s: dtype %q", path, descr.Type)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	shape := append([]int(nil), descr.Shape...)
	want := 1
	for _, d := range shape {
		want *= d
	}
	if want != len(data) {
		return nil, errors.Wrapf(ErrShape, "%s: header shape %v but %d values", path, shape, len(data))
	}
	return &Array{Shape: shape, Data: data}, nil
}

func widen[T float32 | int32 | int64](in []T) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

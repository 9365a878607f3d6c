package graph

import (
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// tableVersion is incremented when the on-disk table format changes.
const tableVersion = 1

// Table is the upper triangle of the region distance matrix. Rows[i] holds
// the distances from region i to regions i, i+1, ..., n-1, so the distance
// between i and j >= i is Rows[i][j-i] and Rows[i][0] is always 0.
type Table struct {
	Rows [][]float64

	// Parameters the table was built with.
	Period int
	Radius int
	Exact  bool
}

// Len returns the number of regions.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Distance returns the distance between regions i and j in either order.
func (t *Table) Distance(i, j int) float64 {
	if j < i {
		i, j = j, i
	}
	return t.Rows[i][j-i]
}

// Dense returns the full symmetric matrix.
func (t *Table) Dense() *mat.SymDense {
	n := t.Len()
	if n == 0 {
		return &mat.SymDense{}
	}
	s := mat.NewSymDense(n, nil)
	for i, row := range t.Rows {
		for k, d := range row {
			s.SetSym(i, i+k, d)
		}
	}
	return s
}

// Equal reports whether both tables hold bit-identical distances.
func (t *Table) Equal(o *Table) bool {
	if t.Len() != o.Len() {
		return false
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(o.Rows[i]) {
			return false
		}
		for k := range t.Rows[i] {
			if math.Float64bits(t.Rows[i][k]) != math.Float64bits(o.Rows[i][k]) {
				return false
			}
		}
	}
	return true
}

// tableFormat is the on-disk representation of a Table.
type tableFormat struct {
	Version   int
	Regions   int
	Period    int
	Radius    int
	Exact     bool
	CreatedAt int64
	Rows      [][]float64
}

// Save writes the table to path using encoding/gob. The write is atomic:
// the data goes to a temporary file in the same directory which is then
// renamed over path.
func (t *Table) Save(path string) error {
	if path == "" {
		return errors.Wrap(ErrIO, "empty table path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(ErrIO, "mkdir %s: %v", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errors.Wrapf(ErrIO, "create temp table file: %v", err)
	}
	tmpName := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		_ = os.Remove(tmpName)
	}()

	tf := tableFormat{
		Version:   tableVersion,
		Regions:   t.Len(),
		Period:    t.Period,
		Radius:    t.Radius,
		Exact:     t.Exact,
		CreatedAt: time.Now().Unix(),
		Rows:      t.Rows,
	}
	if err := gob.NewEncoder(tmpFile).Encode(&tf); err != nil {
		return errors.Wrapf(ErrIO, "encode table: %v", err)
	}
	if err := tmpFile.Sync(); err != nil {
		klog.Warningf("sync temp table file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrapf(ErrIO, "close temp table file: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.Wrapf(ErrIO, "rename temp table to %s: %v", path, err)
	}
	return nil
}

// LoadTable reads a table written by Save and validates its structure.
func LoadTable(path string) (*Table, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIO, "open table %s: %v", path, err)
	}
	defer fh.Close()

	var tf tableFormat
	if err := gob.NewDecoder(fh).Decode(&tf); err != nil {
		return nil, errors.Wrapf(ErrIO, "decode table %s: %v", path, err)
	}
	if tf.Version != tableVersion {
		return nil, errors.Wrapf(ErrIO, "table version mismatch: file=%d expected=%d", tf.Version, tableVersion)
	}
	if len(tf.Rows) != tf.Regions {
		return nil, errors.Wrapf(ErrIO, "table %s declares %d regions but has %d rows", path, tf.Regions, len(tf.Rows))
	}
	for i, row := range tf.Rows {
		if len(row) != tf.Regions-i {
			return nil, errors.Wrapf(ErrIO, "table %s row %d has %d entries, want %d", path, i, len(row), tf.Regions-i)
		}
	}
	return &Table{Rows: tf.Rows, Period: tf.Period, Radius: tf.Radius, Exact: tf.Exact}, nil
}

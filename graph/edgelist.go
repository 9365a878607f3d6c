package graph

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EdgeListOptions controls WriteEdgeList.
type EdgeListOptions struct {
	// DuplicateSelfLoops writes the "i i 0.0" line twice for every region,
	// as the first version of the embedding scripts did. By default self
	// loops are written once.
	DuplicateSelfLoops bool
}

// WriteEdgeList writes the table as a directed, weighted edge list, one
// "<i> <j> <distance>" line per edge. Every unordered pair i < j appears in
// both directions right after each other, rows in ascending order.
func (t *Table) WriteEdgeList(w io.Writer, opts EdgeListOptions) error {
	bw := bufio.NewWriter(w)
	var line []byte
	emit := func(i, j int, d string) error {
		line = line[:0]
		line = strconv.AppendInt(line, int64(i), 10)
		line = append(line, ' ')
		line = strconv.AppendInt(line, int64(j), 10)
		line = append(line, ' ')
		line = append(line, d...)
		line = append(line, '\n')
		_, err := bw.Write(line)
		return err
	}
	for i, row := range t.Rows {
		for k, dist := range row {
			j := i + k
			d := formatDistance(dist)
			if err := emit(i, j, d); err != nil {
				return err
			}
			if j == i && !opts.DuplicateSelfLoops {
				continue
			}
			if err := emit(j, i, d); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// SaveEdgeList writes the edge list to path, creating parent directories.
func (t *Table) SaveEdgeList(path string, opts EdgeListOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(ErrIO, "mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "create %s: %v", path, err)
	}
	if err := t.WriteEdgeList(f, opts); err != nil {
		f.Close()
		return errors.Wrapf(ErrIO, "write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(ErrIO, "close %s: %v", path, err)
	}
	return nil
}

// formatDistance renders d the way the embedding tools were fed historically:
// the shortest round-trip digits, plain notation with a ".0" suffix for
// magnitudes in [1e-4, 1e16), scientific notation otherwise.
func formatDistance(d float64) string {
	switch {
	case math.IsNaN(d):
		return "nan"
	case math.IsInf(d, 1):
		return "inf"
	case math.IsInf(d, -1):
		return "-inf"
	case d == 0:
		if math.Signbit(d) {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(d, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(d, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}

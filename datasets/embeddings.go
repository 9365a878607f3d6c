package datasets

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/pkg/errors"
)

// ReadEmbeddings loads the output of a node2vec-style embedder run on the
// edge list produced by the graph package. The first line is "<count> <dim>";
// each following line is "<region> v1 ... v<dim>". Regions missing from the
// file keep a zero vector. num is the number of regions of the grid.
func ReadEmbeddings(path string, num int) ([][]float32, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		return nil, errors.Wrapf(ErrFormat, "%s is empty", path)
	}
	head := strings.Fields(sc.Text())
	if len(head) != 2 {
		return nil, errors.Wrapf(ErrFormat, "%s: bad header %q", path, sc.Text())
	}
	dim, err := strconv.Atoi(head[1])
	if err != nil || dim <= 0 {
		return nil, errors.Wrapf(ErrFormat, "%s: bad dimension %q", path, head[1])
	}

	out := make([][]float32, num)
	for i := range out {
		out[i] = make([]float32, dim)
	}
	line := 1
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != dim+1 {
			return nil, errors.Wrapf(ErrFormat, "%s:%d: want %d values, got %d", path, line, dim, len(fields)-1)
		}
		label, err := strconv.Atoi(fields[0])
		if err != nil || label < 0 || label >= num {
			return nil, errors.Wrapf(ErrFormat, "%s:%d: bad region %q", path, line, fields[0])
		}
		for k, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "%s:%d: %v", path, line, err)
			}
			out[label][k] = float32(v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return out, nil
}

// EmbeddingsTensor packs embeddings into a [regions, dim] gomlx tensor.
func EmbeddingsTensor(emb [][]float32) *tensors.Tensor {
	return tensors.FromAnyValue(emb)
}

package datasets

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

func parseFloat64(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty string")
	}
	return strconv.ParseFloat(s, 64)
}

// LoadCSV reads one channel of a grid from a CSV file. The first line is a
// header (one label per region), every following line is a time step holding
// rows*cols values in row-major region order.
func LoadCSV(path string, rows, cols int) (*RegionSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "read header of %s", path)
	}
	regions := rows * cols
	if len(header) != regions {
		return nil, errors.Wrapf(ErrShape, "%s has %d columns, grid %dx%d needs %d", path, len(header), rows, cols, regions)
	}

	var data []float64
	steps := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", path)
		}
		for i, field := range record {
			v, err := parseFloat64(field)
			if err != nil {
				return nil, errors.Wrapf(ErrFormat, "%s step %d column %d: %v", path, steps, i, err)
			}
			data = append(data, v)
		}
		steps++
	}

	return NewRegionSeries(steps, rows, cols, data)
}

// WriteCSV writes s in the layout LoadCSV reads, labelling columns r<row>c<col>.
func WriteCSV(w io.Writer, s *RegionSeries) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, s.Regions())
	for r := range s.Rows {
		for c := range s.Cols {
			header = append(header, "r"+strconv.Itoa(r)+"c"+strconv.Itoa(c))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, s.Regions())
	for t := range s.Steps {
		for i, v := range s.Step(t) {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

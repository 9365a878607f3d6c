// Package config holds the settings shared by the command line tools: which
// dataset to read, how to build the similarity graph, how to evaluate
// forecasts and where to send metrics.
//
// Values come from a dataset preset, are overridden by an optional JSON file
// and finally by command line flags the user set explicitly.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// ErrInvalid reports a configuration that cannot be used.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the full configuration of one run.
type Config struct {
	Dataset Dataset `json:"dataset"`
	Graph   Graph   `json:"graph"`
	Eval    Eval    `json:"eval"`
	Influx  Influx  `json:"influx"`

	// OutputRoot is the directory under which per-dataset output folders
	// are created.
	OutputRoot string `json:"output_root"`
}

// Dataset describes the input array.
type Dataset struct {
	Name string `json:"name"`
	// Path is a .npy file of shape (steps, rows*cols*channels) or
	// (steps, rows, cols, channels), or a .csv file with one column per
	// region.
	Path string `json:"path"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
	// Split holds the train, validation and test lengths along the time
	// axis. Only the training block feeds the graph.
	Split []int `json:"split"`
	// Channel selects inflow (0) or outflow (1).
	Channel int `json:"channel"`
}

// Graph holds the similarity graph settings.
type Graph struct {
	Period                  int  `json:"period"`
	Radius                  int  `json:"radius"`
	Exact                   bool `json:"exact"`
	Workers                 int  `json:"workers"`
	ProgressIntervalSeconds int  `json:"progress_interval_seconds"`
	Plots                   bool `json:"plots"`
	DuplicateSelfLoops      bool `json:"duplicate_self_loops"`
}

// ProgressInterval returns the progress logging interval.
func (g Graph) ProgressInterval() time.Duration {
	return time.Duration(g.ProgressIntervalSeconds) * time.Second
}

// Eval holds the forecast evaluation settings.
type Eval struct {
	BatchSize int `json:"batch_size"`
	// Scaled marks prediction and target files as holding [-1, 1] values
	// that must be mapped back with ScaleMin and ScaleMax.
	Scaled   bool    `json:"scaled"`
	ScaleMin float64 `json:"scale_min"`
	ScaleMax float64 `json:"scale_max"`
}

// Influx configures the optional InfluxDB metrics sink. An empty URL
// disables it.
type Influx struct {
	URL         string `json:"url"`
	Org         string `json:"org"`
	Token       string `json:"token"`
	Bucket      string `json:"bucket"`
	Measurement string `json:"measurement"`
}

// Enabled reports whether metrics should be written to InfluxDB.
func (i Influx) Enabled() bool {
	return i.URL != ""
}

// MeasurementName returns the measurement, defaulting to "demand_metrics".
func (i Influx) MeasurementName() string {
	if i.Measurement == "" {
		return "demand_metrics"
	}
	return i.Measurement
}

var presets = map[string]Config{
	"taxi": {
		Dataset: Dataset{
			Name:  "taxi",
			Path:  "datasets/taxi-data/graph-data/nyc_taxi_data.npy",
			Rows:  20,
			Cols:  10,
			Split: []int{11640, 744, 720},
		},
		Graph: Graph{Period: 24 * 7},
	},
	"didi": {
		Dataset: Dataset{
			Name:  "didi",
			Path:  "datasets/didi-data/data/cd_didi_data.npy",
			Rows:  20,
			Cols:  20,
			Split: []int{2400, 192, 288},
		},
		Graph: Graph{Period: 24 * 7 * 4},
	},
}

// Presets returns the names of the built-in datasets.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset returns the defaults for a built-in dataset.
func Preset(name string) (Config, error) {
	p, ok := presets[name]
	if !ok {
		return Config{}, errors.Wrapf(ErrInvalid, "unknown dataset %q (known: %v)", name, Presets())
	}
	c := Default()
	c.Dataset = p.Dataset
	c.Dataset.Split = append([]int(nil), p.Dataset.Split...)
	c.Graph.Period = p.Graph.Period
	return c, nil
}

// Default returns the settings shared by every dataset.
func Default() Config {
	return Config{
		Graph: Graph{
			Radius:                  1,
			ProgressIntervalSeconds: 3,
		},
		Eval: Eval{
			BatchSize: 32,
		},
		Influx: Influx{
			Org:    "demandgraph",
			Bucket: "forecasts",
		},
		OutputRoot: "data",
	}
}

// LoadFile overlays the JSON file at path onto c. Keys missing from the file
// keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return errors.Wrapf(ErrInvalid, "parse config %s: %v", path, err)
	}
	return nil
}

// ApplyEnv reads secrets that should not live in files. INFLUX_TOKEN
// overrides Influx.Token and INFLUXDB_URL overrides Influx.URL.
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv("INFLUX_TOKEN"); ok {
		c.Influx.Token = v
	}
	if v, ok := os.LookupEnv("INFLUXDB_URL"); ok {
		c.Influx.URL = v
	}
}

// OutputDir returns the output folder of the dataset: <root>/<name> for
// channel 0 and <root>/<name>/dim<k> otherwise.
func (c *Config) OutputDir() string {
	dir := filepath.Join(c.OutputRoot, c.Dataset.Name)
	if c.Dataset.Channel > 0 {
		dir = filepath.Join(dir, "dim"+strconv.Itoa(c.Dataset.Channel))
	}
	return dir
}

// Validate checks the values needed to build a graph.
func (c *Config) Validate() error {
	switch {
	case c.Dataset.Name == "":
		return errors.Wrap(ErrInvalid, "dataset name is empty")
	case c.Dataset.Rows <= 0 || c.Dataset.Cols <= 0:
		return errors.Wrapf(ErrInvalid, "grid %dx%d", c.Dataset.Rows, c.Dataset.Cols)
	case c.Dataset.Channel < 0:
		return errors.Wrapf(ErrInvalid, "channel %d", c.Dataset.Channel)
	case c.Graph.Period <= 0:
		return errors.Wrapf(ErrInvalid, "period %d", c.Graph.Period)
	case c.Graph.Radius < 0:
		return errors.Wrapf(ErrInvalid, "radius %d", c.Graph.Radius)
	case c.Eval.BatchSize <= 0:
		return errors.Wrapf(ErrInvalid, "batch size %d", c.Eval.BatchSize)
	case c.Eval.Scaled && c.Eval.ScaleMax <= c.Eval.ScaleMin:
		return errors.Wrapf(ErrInvalid, "scale range [%g, %g]", c.Eval.ScaleMin, c.Eval.ScaleMax)
	}
	if n := len(c.Dataset.Split); n != 0 && n != 2 && n != 3 {
		return errors.Wrapf(ErrInvalid, "split needs 2 or 3 sizes, got %v", c.Dataset.Split)
	}
	return nil
}

// JSON returns the indented JSON form of c with the InfluxDB token masked.
func (c Config) JSON() string {
	if c.Influx.Token != "" {
		c.Influx.Token = "***"
	}
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Noofbiz/demandgraph/config"
	"github.com/Noofbiz/demandgraph/datasets"
	"github.com/Noofbiz/demandgraph/graph"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)

	dataset := flag.String("dataset", "didi", "dataset preset: "+strings.Join(config.Presets(), ", "))
	configPath := flag.String("config", "", "path to JSON configuration file (optional). Values override the preset; explicit flags override the file")
	dataPath := flag.String("data", "", "input .npy or .csv file (overrides the preset path)")
	outRoot := flag.String("out", "data", "root output directory; artifacts go to <out>/<dataset>[/dim<k>]")
	channel := flag.Int("dim", 0, "channel of the data to process: 0 inflow, 1 outflow")
	period := flag.Int("period", 0, "aggregation period in time steps (0 = preset)")
	radius := flag.Int("radius", 1, "FastDTW radius")
	exact := flag.Bool("exact", false, "use exact quadratic DTW instead of FastDTW")
	workers := flag.Int("workers", 0, "number of DTW workers (0 = physical cores)")
	progress := flag.Int("progress-interval", 3, "progress logging interval in seconds (0 disables)")
	plots := flag.Bool("plots", false, "also write a distance heat map and profile plots")
	dupSelf := flag.Bool("duplicate-self-loops", false, "write every self loop line twice in the edge list")
	lapDelta := flag.Float64("laplacian-delta", 0, "if > 0, write the scaled Laplacian of exp(-d/delta) weights")
	lapEps := flag.Float64("laplacian-epsilon", 0.5, "weights below this value are dropped from the Laplacian")
	embeddings := flag.String("embeddings", "", "if set, validate a node2vec output file against the grid and exit")
	printEffectiveConfig := flag.Bool("print-effective-config", false, "print the effective (preset+JSON+CLI merged) configuration and exit")
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Preset(*dataset)
	if err != nil {
		klog.Exitf("%v", err)
	}
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			klog.Exitf("%v", err)
		}
		klog.Infof("loaded config from %s", *configPath)
	}
	cfg.ApplyEnv()

	// explicit flags win over the preset and the JSON file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.Dataset.Path = *dataPath
		case "out":
			cfg.OutputRoot = *outRoot
		case "dim":
			cfg.Dataset.Channel = *channel
		case "period":
			cfg.Graph.Period = *period
		case "radius":
			cfg.Graph.Radius = *radius
		case "exact":
			cfg.Graph.Exact = *exact
		case "workers":
			cfg.Graph.Workers = *workers
		case "progress-interval":
			cfg.Graph.ProgressIntervalSeconds = *progress
		case "plots":
			cfg.Graph.Plots = *plots
		case "duplicate-self-loops":
			cfg.Graph.DuplicateSelfLoops = *dupSelf
		}
	})

	if *printEffectiveConfig {
		fmt.Println(cfg.JSON())
		return
	}
	if err := cfg.Validate(); err != nil {
		klog.Exitf("%v", err)
	}

	if *embeddings != "" {
		if err := inspectEmbeddings(*embeddings, cfg.Dataset.Rows*cfg.Dataset.Cols); err != nil {
			klog.Exitf("%v", err)
		}
		return
	}

	series, err := loadTrainSeries(cfg.Dataset)
	if err != nil {
		klog.Exitf("load %s: %v", cfg.Dataset.Path, err)
	}
	klog.Infof("training block: %d steps on a %dx%d grid (channel %d)",
		series.Steps, series.Rows, series.Cols, cfg.Dataset.Channel)

	opts := graph.Options{
		Period:           cfg.Graph.Period,
		Radius:           cfg.Graph.Radius,
		Exact:            cfg.Graph.Exact,
		Workers:          cfg.Graph.Workers,
		ProgressInterval: cfg.Graph.ProgressInterval(),
	}
	res, err := graph.Build(series, opts)
	if err != nil {
		klog.Exitf("build graph: %v", err)
	}
	klog.Infof("computed %s distances in %s",
		humanize.Comma(int64(res.Table.Len())*int64(res.Table.Len()+1)/2), res.Elapsed)

	out, err := graph.WriteArtifacts(cfg.OutputDir(), res, graph.ArtifactOptions{
		EdgeList:         graph.EdgeListOptions{DuplicateSelfLoops: cfg.Graph.DuplicateSelfLoops},
		Build:            opts,
		Dataset:          cfg.Dataset.Name,
		Plots:            cfg.Graph.Plots,
		LaplacianDelta:   *lapDelta,
		LaplacianEpsilon: *lapEps,
	})
	if err != nil {
		klog.Exitf("write artifacts: %v", err)
	}
	fmt.Printf("graph table: %s\nedge list:   %s\nmanifest:    %s\n", out.Table, out.EdgeList, out.Manifest)
	for _, p := range out.Plots {
		fmt.Printf("plot:        %s\n", p)
	}
}

// loadTrainSeries reads the dataset and keeps the training block of the
// configured channel.
func loadTrainSeries(ds config.Dataset) (*datasets.RegionSeries, error) {
	if strings.EqualFold(filepath.Ext(ds.Path), ".csv") {
		series, err := datasets.LoadCSV(ds.Path, ds.Rows, ds.Cols)
		if err != nil {
			return nil, err
		}
		if len(ds.Split) > 0 && ds.Split[0] < series.Steps {
			n := ds.Split[0]
			return datasets.NewRegionSeries(n, ds.Rows, ds.Cols, series.Data[:n*series.Regions()])
		}
		return series, nil
	}

	arr, err := datasets.LoadNPY(ds.Path)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("loaded %s with shape %v", ds.Path, arr.Shape)
	train := arr
	if len(ds.Split) > 0 {
		if train, _, _, err = arr.Split(ds.Split); err != nil {
			return nil, errors.Wrapf(err, "split %v", ds.Split)
		}
	}
	return train.Channel(ds.Rows, ds.Cols, ds.Channel)
}

func inspectEmbeddings(path string, regions int) error {
	emb, err := datasets.ReadEmbeddings(path, regions)
	if err != nil {
		return err
	}
	t := datasets.EmbeddingsTensor(emb)
	missing := 0
	for _, v := range emb {
		zero := true
		for _, x := range v {
			if x != 0 {
				zero = false
				break
			}
		}
		if zero {
			missing++
		}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	fmt.Printf("embeddings %s (%s): tensor %s, %d of %d regions without a vector\n",
		path, humanize.Bytes(uint64(fi.Size())), t.Shape(), missing, regions)
	return nil
}

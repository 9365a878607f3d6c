package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/Noofbiz/demandgraph/config"
	"github.com/Noofbiz/demandgraph/datasets"
	"github.com/Noofbiz/demandgraph/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

func main() {
	klog.InitFlags(nil)

	configPath := flag.String("config", "", "path to JSON configuration file (optional)")
	targetPath := flag.String("target", "", "ground truth .npy of shape (N, regions, 2) or (N, rows, cols, 2)")
	predictionPath := flag.String("prediction", "", "prediction .npy with the same shape as -target")
	batchSize := flag.Int("batch-size", 32, "samples per evaluation batch (overrides JSON if provided)")
	scaled := flag.Bool("scaled", false, "inputs hold [-1, 1] values; map back with -scale-min/-scale-max, round and clip")
	scaleMin := flag.Float64("scale-min", 0, "minimum count seen by the scaler")
	scaleMax := flag.Float64("scale-max", 0, "maximum count seen by the scaler")
	split := flag.String("split", "test", "label used in the report and the influx tags")
	epoch := flag.Int("epoch", 0, "epoch recorded with the metrics")
	influxURL := flag.String("influx-url", "", "InfluxDB URL; empty disables the sink (INFLUXDB_URL env also works)")
	printEffectiveConfig := flag.Bool("print-effective-config", false, "print the effective (JSON+CLI merged) configuration and exit")
	flag.Parse()
	defer klog.Flush()

	cfg := config.Default()
	if *configPath != "" {
		if err := cfg.LoadFile(*configPath); err != nil {
			klog.Exitf("%v", err)
		}
	}
	cfg.ApplyEnv()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "batch-size":
			cfg.Eval.BatchSize = *batchSize
		case "scaled":
			cfg.Eval.Scaled = *scaled
		case "scale-min":
			cfg.Eval.ScaleMin = *scaleMin
		case "scale-max":
			cfg.Eval.ScaleMax = *scaleMax
		case "influx-url":
			cfg.Influx.URL = *influxURL
		}
	})

	if *printEffectiveConfig {
		fmt.Println(cfg.JSON())
		return
	}
	if *targetPath == "" || *predictionPath == "" {
		klog.Exitf("both -target and -prediction are required")
	}
	if cfg.Eval.BatchSize <= 0 {
		klog.Exitf("batch size must be positive, got %d", cfg.Eval.BatchSize)
	}
	if cfg.Eval.Scaled && cfg.Eval.ScaleMax <= cfg.Eval.ScaleMin {
		klog.Exitf("scale range [%g, %g] is empty", cfg.Eval.ScaleMin, cfg.Eval.ScaleMax)
	}

	target, err := loadTensor(*targetPath)
	if err != nil {
		klog.Exitf("%v", err)
	}
	prediction, err := loadTensor(*predictionPath)
	if err != nil {
		klog.Exitf("%v", err)
	}
	if !target.SameShape(prediction) {
		klog.Exitf("target (%d, %d, 2) and prediction (%d, %d, 2) differ",
			target.Batch, target.Regions, prediction.Batch, prediction.Regions)
	}
	if cfg.Eval.Scaled {
		scaler := &datasets.MinMaxScaler{Min: cfg.Eval.ScaleMin, Max: cfg.Eval.ScaleMax}
		target = metrics.Postprocess(target, scaler)
		prediction = metrics.Postprocess(prediction, scaler)
	}

	var acc metrics.Accumulator
	for start, end := range datasets.Spans(target.Batch, cfg.Eval.BatchSize, true) {
		v, err := acc.Add(target.Slice(start, end), prediction.Slice(start, end))
		if err != nil {
			klog.Exitf("batch [%d, %d): %v", start, end, err)
		}
		klog.V(1).Infof("batch [%d, %d): %v", start, end, v)
	}
	klog.Infof("evaluated %d samples in %d batches", acc.Samples, acc.Batches)

	mean := acc.Mean()
	if !mean.Finite() {
		klog.Warningf("non-finite metrics, check the inputs for NaN or negative infinity: %v", mean)
	}
	if err := acc.Report(os.Stdout, *split); err != nil {
		klog.Exitf("%v", err)
	}

	if cfg.Influx.Enabled() {
		if err := publish(cfg.Influx, *split, *epoch, mean); err != nil {
			klog.Exitf("%v", err)
		}
	}
}

// loadTensor reads a (N, ..., 2) .npy file as a metrics tensor.
func loadTensor(path string) (*metrics.Tensor, error) {
	arr, err := datasets.LoadNPY(path)
	if err != nil {
		return nil, err
	}
	if len(arr.Shape) < 3 || arr.Shape[len(arr.Shape)-1] != 2 {
		return nil, errors.Wrapf(metrics.ErrShape, "%s: shape %v, want (N, regions, 2)", path, arr.Shape)
	}
	regions := 1
	for _, d := range arr.Shape[1 : len(arr.Shape)-1] {
		regions *= d
	}
	return &metrics.Tensor{Batch: arr.Shape[0], Regions: regions, Data: arr.Data}, nil
}

func publish(cfg config.Influx, split string, epoch int, v metrics.Vector) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sink, err := metrics.NewInfluxSink(ctx, cfg)
	if err != nil {
		return err
	}
	defer sink.Close()
	run := uuid.NewString()
	if err := sink.Write(ctx, run, split, epoch, v); err != nil {
		return err
	}
	klog.Infof("wrote %s metrics to %s as run %s", split, cfg.URL, run)
	return nil
}

package graph

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Noofbiz/demandgraph/datasets"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Options controls Build.
type Options struct {
	// Period is the aggregation window in time steps, e.g. 168 for hourly
	// data averaged into one week.
	Period int

	// Radius is the FastDTW resolution. Larger values trade speed for a
	// result closer to exact DTW. Default 1.
	Radius int

	// Exact computes quadratic DTW instead of FastDTW.
	Exact bool

	// Workers is the number of goroutines computing table rows. If zero the
	// number of physical cores is used.
	Workers int

	// ProgressInterval controls how often progress is logged. Zero disables
	// progress logging.
	ProgressInterval time.Duration
}

// Result is the output of Build.
type Result struct {
	Aggregate *Aggregate
	Table     *Table
	Elapsed   time.Duration
}

// DefaultWorkers returns the worker count used when Options.Workers is zero.
// DTW is compute bound, so hyperthreads are not counted.
func DefaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Build aggregates series into per-region weekly profiles and computes the
// DTW distance of every region pair (i, j) with j >= i.
func Build(series *datasets.RegionSeries, opts Options) (*Result, error) {
	if opts.Radius == 0 {
		opts.Radius = 1
	}
	if opts.Radius < 0 {
		return nil, errors.Wrapf(ErrRadius, "got %d", opts.Radius)
	}
	start := time.Now()

	agg, err := WeeklyAggregate(series, opts.Period)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("aggregated %d steps into %d windows of %d for %d regions",
		series.Steps, agg.Windows(), agg.Period(), agg.Regions())

	table, err := pairwise(agg.Signals(), opts)
	if err != nil {
		return nil, err
	}
	table.Period = opts.Period
	table.Radius = opts.Radius
	table.Exact = opts.Exact

	return &Result{Aggregate: agg, Table: table, Elapsed: time.Since(start)}, nil
}

// pairwise fills the triangular table with a small worker pool. Each job is a
// row index i; the worker owning it writes the whole row, so no two workers
// touch the same slot and the rows come out in row-major order.
func pairwise(signals [][]float64, opts Options) (*Table, error) {
	n := len(signals)
	rows := make([][]float64, n)
	if n == 0 {
		return &Table{Rows: rows}, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if workers > n {
		workers = n
	}

	distance := func(x, y []float64) float64 {
		if opts.Exact {
			d, _ := DTW(x, y)
			return d
		}
		d, _ := FastDTW(x, y, opts.Radius)
		return d
	}

	total := int64(n) * int64(n+1) / 2
	klog.Infof("computing %s region pairs with %d workers", humanize.Comma(total), workers)

	var done int64
	stopProgress := make(chan struct{})
	var progress sync.WaitGroup
	if opts.ProgressInterval > 0 {
		progress.Add(1)
		ticker := time.NewTicker(opts.ProgressInterval)
		go func() {
			defer progress.Done()
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					d := atomic.LoadInt64(&done)
					klog.Infof("[dtw] progress: %s/%s pairs (%.1f%%)",
						humanize.Comma(d), humanize.Comma(total), float64(d)/float64(total)*100)
				case <-stopProgress:
					return
				}
			}
		}()
	}

	jobs := make(chan int, n)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				row := make([]float64, n-i)
				for j := i + 1; j < n; j++ {
					row[j-i] = distance(signals[i], signals[j])
				}
				rows[i] = row
				atomic.AddInt64(&done, int64(n-i))
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	close(stopProgress)
	progress.Wait()
	klog.V(1).Infof("[dtw] completed %s pairs", humanize.Comma(total))

	return &Table{Rows: rows}, nil
}

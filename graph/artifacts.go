package graph

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
	"k8s.io/klog/v2"
)

// File names inside an artifact directory.
const (
	TableFile     = "graph.gob"
	EdgeListFile  = "graph_embedding_input.txt"
	ManifestFile  = "manifest.json"
	HeatMapFile   = "distance_heatmap.png"
	ProfilesFile  = "profiles.png"
	LaplacianFile = "graph_laplacian.npy"
)

// ArtifactOptions controls WriteArtifacts.
type ArtifactOptions struct {
	EdgeList EdgeListOptions

	// Build holds the options the result was built with, recorded in the
	// manifest.
	Build Options

	// Dataset is a free-form label recorded in the manifest.
	Dataset string

	// Plots enables the PNG heat map and profile plots.
	Plots bool

	// ProfileRegions selects the regions drawn in the profile plot. Empty
	// means the first few regions.
	ProfileRegions []int

	// LaplacianDelta, when positive, also writes the scaled Laplacian of
	// RescaledWeights(table, LaplacianDelta, LaplacianEpsilon) as .npy.
	LaplacianDelta   float64
	LaplacianEpsilon float64
}

// Artifacts lists what WriteArtifacts produced.
type Artifacts struct {
	RunID     string
	Dir       string
	Table     string
	EdgeList  string
	Manifest  string
	Laplacian string
	Plots     []string
}

type manifest struct {
	RunID     string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Dataset   string         `json:"dataset,omitempty"`
	Regions   int            `json:"regions"`
	Windows   int            `json:"windows"`
	Period    int            `json:"period"`
	Radius    int            `json:"radius"`
	Exact     bool           `json:"exact"`
	Workers   int            `json:"workers"`
	Elapsed   string         `json:"elapsed"`
	Files     []manifestFile `json:"files"`
}

type manifestFile struct {
	Name  string `json:"name"`
	Bytes int64  `json:"bytes"`
	Size  string `json:"size"`
}

const defaultProfileRegions = 4

// WriteArtifacts writes the table, the embedding edge list, a manifest and
// optionally plots into dir, creating it if needed.
func WriteArtifacts(dir string, res *Result, opts ArtifactOptions) (Artifacts, error) {
	var out Artifacts
	if res == nil || res.Table == nil {
		return out, errors.Wrap(ErrDataShape, "no table to write")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return out, errors.Wrapf(ErrIO, "create output dir %s: %v", dir, err)
	}
	out.RunID = uuid.NewString()
	out.Dir = dir
	out.Table = filepath.Join(dir, TableFile)
	out.EdgeList = filepath.Join(dir, EdgeListFile)
	out.Manifest = filepath.Join(dir, ManifestFile)

	if err := res.Table.Save(out.Table); err != nil {
		return out, err
	}
	if err := res.Table.SaveEdgeList(out.EdgeList, opts.EdgeList); err != nil {
		return out, err
	}

	if opts.Plots {
		heat := filepath.Join(dir, HeatMapFile)
		if err := PlotDistanceHeatMap(res.Table, heat); err != nil {
			klog.Warningf("skipping heat map: %v", err)
		} else {
			out.Plots = append(out.Plots, heat)
		}
		if res.Aggregate != nil {
			regions := opts.ProfileRegions
			if len(regions) == 0 {
				for r := range min(defaultProfileRegions, res.Aggregate.Regions()) {
					regions = append(regions, r)
				}
			}
			profiles := filepath.Join(dir, ProfilesFile)
			if err := PlotProfiles(res.Aggregate, regions, profiles); err != nil {
				return out, err
			}
			out.Plots = append(out.Plots, profiles)
		}
	}

	if opts.LaplacianDelta > 0 {
		out.Laplacian = filepath.Join(dir, LaplacianFile)
		if err := writeLaplacian(out.Laplacian, res.Table, opts.LaplacianDelta, opts.LaplacianEpsilon); err != nil {
			return out, err
		}
	}

	m := manifest{
		RunID:     out.RunID,
		CreatedAt: time.Now().UTC(),
		Dataset:   opts.Dataset,
		Regions:   res.Table.Len(),
		Period:    res.Table.Period,
		Radius:    res.Table.Radius,
		Exact:     res.Table.Exact,
		Workers:   opts.Build.Workers,
		Elapsed:   res.Elapsed.String(),
	}
	if res.Aggregate != nil {
		m.Windows = res.Aggregate.Windows()
	}
	files := []string{out.Table, out.EdgeList}
	if out.Laplacian != "" {
		files = append(files, out.Laplacian)
	}
	for _, p := range append(files, out.Plots...) {
		fi, err := os.Stat(p)
		if err != nil {
			return out, errors.Wrapf(ErrIO, "stat %s: %v", p, err)
		}
		m.Files = append(m.Files, manifestFile{
			Name:  filepath.Base(p),
			Bytes: fi.Size(),
			Size:  humanize.Bytes(uint64(fi.Size())),
		})
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return out, errors.Wrap(err, "marshal manifest")
	}
	if err := os.WriteFile(out.Manifest, data, 0644); err != nil {
		return out, errors.Wrapf(ErrIO, "write %s: %v", out.Manifest, err)
	}
	klog.Infof("wrote %d regions to %s (run %s)", m.Regions, dir, out.RunID)
	return out, nil
}

func writeLaplacian(path string, t *Table, delta, epsilon float64) error {
	lap, err := ScaledLaplacian(RescaledWeights(t, delta, epsilon), 0)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ErrIO, "create %s: %v", path, err)
	}
	if err := npyio.Write(f, mat.DenseCopyOf(lap)); err != nil {
		f.Close()
		return errors.Wrapf(ErrIO, "write %s: %v", path, err)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(ErrIO, "close %s: %v", path, err)
	}
	return nil
}

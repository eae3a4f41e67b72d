package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/config"
	"github.com/khanlab/neurobeer/pkg/fibers"
	"github.com/khanlab/neurobeer/pkg/observability"
	"github.com/khanlab/neurobeer/pkg/pipeline"
	"github.com/khanlab/neurobeer/pkg/storage"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "train":
		handleTrain(os.Args[2:])
	case "extend":
		handleExtend(os.Args[2:])
	case "version":
		fmt.Printf("neurobeer version %s\n", version)
	case "help", "-h", "--help":
		showUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		showUsage()
		os.Exit(1)
	}
}

func handleTrain(args []string) {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	var (
		fibersPath = fs.String("fibers", "", "path to JSON fiber bundle (required)")
		outDir     = fs.String("out", ".", "output directory for artifacts")
		configPath = fs.String("config", "", "path to YAML config file")
		k          = fs.Int("k", 0, "override k_clusters")
		sigma      = fs.Float64("sigma", 0, "override sigma")
		workers    = fs.Int("workers", 0, "override workers")
		seed       = fs.Int64("seed", 0, "override k-means seed")
		verbose    = fs.Bool("verbose", false, "verbose logging")
	)
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	cfg.Cluster.OutputDir = *outDir
	applyOverrides(&cfg.Cluster, *k, *sigma, *workers, *seed)

	log := newLogger(*verbose)
	defer log.Sync()

	store := loadBundle(*fibersPath, cfg.Cluster.PtsPerFiber, log)

	artifacts, err := storage.NewNpyStore(cfg.Cluster.OutputDir)
	if err != nil {
		fatal(log, "failed to create artifact store", err)
	}

	orch := pipeline.New(&cfg.Cluster,
		pipeline.WithLogger(log),
		pipeline.WithArtifacts(artifacts),
	)

	result, err := orch.Train(context.Background(), store)
	if err != nil {
		fatal(log, "clustering failed", err)
	}

	out := filepath.Join(cfg.Cluster.OutputDir, "labels.json")
	if err := writeLabels(out, result.Labels, result.Rejected, result.Colors, result.Centroids); err != nil {
		fatal(log, "failed to write labels", err)
	}
	if err := writeCentroids(filepath.Join(cfg.Cluster.OutputDir, "centroids.json"), result.Centroids); err != nil {
		fatal(log, "failed to write centroids", err)
	}
	retained, err := store.Retained(result.Rejected)
	if err != nil {
		fatal(log, "failed to subset retained fibers", err)
	}
	if err := writeRetained(filepath.Join(cfg.Cluster.OutputDir, "prior.json"), retained); err != nil {
		fatal(log, "failed to write retained bundle", err)
	}
	log.Info("wrote clustering output", "path", out, "run_id", result.RunID)
}

func handleExtend(args []string) {
	fs := flag.NewFlagSet("extend", flag.ExitOnError)
	var (
		fibersPath = fs.String("fibers", "", "path to JSON fiber bundle to classify (required)")
		priorPath  = fs.String("prior", "", "path to the prior run's JSON fiber bundle (required)")
		priorDir   = fs.String("prior-dir", ".", "directory holding the prior run's eigval.npy/eigvec.npy and centroids.json")
		outDir     = fs.String("out", ".", "output directory")
		configPath = fs.String("config", "", "path to YAML config file")
		sigma      = fs.Float64("sigma", config.ExtendSigma, "kernel bandwidth")
		workers    = fs.Int("workers", 0, "override workers")
		verbose    = fs.Bool("verbose", false, "verbose logging")
	)
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	cfg.Cluster.OutputDir = *outDir
	cfg.Cluster.Sigma = *sigma
	applyOverrides(&cfg.Cluster, 0, 0, *workers, 0)

	log := newLogger(*verbose)
	defer log.Sync()

	store := loadBundle(*fibersPath, cfg.Cluster.PtsPerFiber, log)
	prior := loadBundle(*priorPath, cfg.Cluster.PtsPerFiber, log)

	priorStore, err := storage.NewNpyStore(*priorDir)
	if err != nil {
		fatal(log, "failed to open prior artifacts", err)
	}
	basis, err := priorStore.LoadEigenbasis()
	if err != nil {
		fatal(log, "failed to load eigenbasis", err)
	}
	centroids, err := readCentroids(filepath.Join(*priorDir, "centroids.json"))
	if err != nil {
		fatal(log, "failed to load centroids", err)
	}

	artifacts, err := storage.NewNpyStore(cfg.Cluster.OutputDir)
	if err != nil {
		fatal(log, "failed to create artifact store", err)
	}

	orch := pipeline.New(&cfg.Cluster,
		pipeline.WithLogger(log),
		pipeline.WithArtifacts(artifacts),
	)

	result, err := orch.Extend(context.Background(), store, prior, basis, centroids)
	if err != nil {
		fatal(log, "extension failed", err)
	}

	out := filepath.Join(cfg.Cluster.OutputDir, "labels.json")
	if err := writeLabels(out, result.Labels, result.Rejected, result.Colors, nil); err != nil {
		fatal(log, "failed to write labels", err)
	}
	log.Info("wrote extension output", "path", out, "run_id", result.RunID)
}

func loadConfig(path string) *config.Config {
	if path == "" {
		return config.LoadFromEnv()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	return cfg
}

func applyOverrides(cfg *config.ClusterConfig, k int, sigma float64, workers int, seed int64) {
	if k > 0 {
		cfg.KClusters = k
	}
	if sigma > 0 {
		cfg.Sigma = sigma
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if seed != 0 {
		cfg.Seed = seed
	}
}

func newLogger(verbose bool) *observability.Logger {
	mode := "prod"
	if verbose {
		mode = "dev"
	}
	log, err := observability.NewLogger(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return log
}

func loadBundle(path string, ptsPerFiber int, log *observability.Logger) *fibers.Store {
	if path == "" {
		fmt.Fprintln(os.Stderr, "missing required fiber bundle path")
		os.Exit(1)
	}
	f, err := os.Open(path)
	if err != nil {
		fatal(log, "failed to open fiber bundle", err)
	}
	defer f.Close()
	store, err := fibers.ReadBundle(f)
	if err != nil {
		fatal(log, "failed to read fiber bundle", err)
	}
	if store.PtsPerFiber() != ptsPerFiber {
		log.Warn("bundle pts_per_fiber differs from configuration",
			"bundle", store.PtsPerFiber(), "config", ptsPerFiber)
	}
	return store
}

type labelOutput struct {
	Labels    []int       `json:"labels"`
	Rejected  []int       `json:"rejected"`
	Colors    [][3]int    `json:"colors"`
	Centroids [][]float64 `json:"centroids,omitempty"`
}

func writeLabels(path string, labels, rejected []int, colors [][3]int, centroids *mat.Dense) error {
	out := labelOutput{Labels: labels, Rejected: rejected, Colors: colors}
	if out.Rejected == nil {
		out.Rejected = []int{}
	}
	if centroids != nil {
		r, c := centroids.Dims()
		out.Centroids = make([][]float64, r)
		for i := 0; i < r; i++ {
			row := make([]float64, c)
			copy(row, centroids.RawRowView(i))
			out.Centroids[i] = row
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(&out)
}

func writeRetained(path string, store *fibers.Store) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return fibers.WriteBundle(f, store)
}

func writeCentroids(path string, centroids *mat.Dense) error {
	r, c := centroids.Dims()
	rows := make([][]float64, r)
	for i := 0; i < r; i++ {
		row := make([]float64, c)
		copy(row, centroids.RawRowView(i))
		rows[i] = row
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(rows)
}

func readCentroids(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var rows [][]float64
	if err := json.NewDecoder(f).Decode(&rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("centroid file %s is empty", path)
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m, nil
}

func fatal(log *observability.Logger, msg string, err error) {
	log.Error(msg, "error", err)
	log.Sync()
	os.Exit(1)
}

func showUsage() {
	fmt.Print(`neurobeer - spectral clustering of tractography fibers

Usage:
  neurobeer train  -fibers bundle.json [-out dir] [-k N] [-sigma S] [-workers W] [-seed N] [-config file] [-verbose]
  neurobeer extend -fibers new.json -prior prior.json [-prior-dir dir] [-out dir] [-sigma S] [-workers W] [-config file] [-verbose]
  neurobeer version
  neurobeer help

Train clusters a fiber bundle and writes labels.json plus the eigval.npy /
eigvec.npy artifacts needed by extend. Extend classifies a fresh bundle
against those artifacts without retraining.
`)
}

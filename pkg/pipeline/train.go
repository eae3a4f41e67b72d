package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/cluster"
	"github.com/khanlab/neurobeer/pkg/fibers"
	"github.com/khanlab/neurobeer/pkg/observability"
)

// Train runs the full spectral clustering path on a fiber store: weighted
// similarity, row-sum outlier rejection, Laplacian embedding, k-means and
// label canonicalization. The eigenbasis and centroids in the result are
// what the extension path later consumes.
func (o *Orchestrator) Train(ctx context.Context, store *fibers.Store) (*TrainResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := o.log.With("run_id", runID, "path", "train")

	n := store.Count()
	if n == 0 {
		return nil, fmt.Errorf("%w: training store", ErrEmptyInput)
	}
	k := o.cfg.KClusters
	if k <= 1 {
		return nil, fmt.Errorf("%w: k_clusters = %d", cluster.ErrDegenerate, k)
	}
	if err := o.combiner.Validate(o.cfg.ScalarWeights, len(o.cfg.ScalarTypes)); err != nil {
		return nil, err
	}

	log.Info("starting clustering", "fibers", n, "k_clusters", k, "sigma", o.cfg.Sigma)

	w, err := o.weightedSimilarity(ctx, store, log)
	if err != nil {
		o.countRun("train", "error")
		return nil, err
	}

	w, rejected := cluster.RowSumOutliers(w)
	if len(rejected) > 0 {
		log.Info("rejected weakly connected fibers", "count", len(rejected))
	}
	if o.metrics != nil {
		o.metrics.OutliersRejected.WithLabelValues("row_sum").Add(float64(len(rejected)))
	}

	if o.cfg.SaveWeightedSimilarity && o.artifacts != nil {
		if err := o.artifacts.SaveMatrix("weighted", w); err != nil {
			return nil, err
		}
	}

	solveStart := time.Now()
	basis, embedding, err := o.embedder.Embed(w, k)
	if err != nil {
		o.countRun("train", "error")
		return nil, err
	}
	if o.metrics != nil {
		o.metrics.EigensolveDuration.Observe(time.Since(solveStart).Seconds())
	}
	if o.artifacts != nil {
		if err := o.artifacts.SaveEigenbasis(basis); err != nil {
			return nil, err
		}
	}

	centroids, labels, iters, err := cluster.KMeans(embedding, k, o.cfg.Seed)
	if err != nil {
		o.countRun("train", "error")
		return nil, err
	}
	centroids = cluster.Canonicalize(centroids, labels)

	source, err := colorSource(k, centroids, basis)
	if err != nil {
		return nil, err
	}
	colors, err := cluster.Colors(source, k)
	if err != nil {
		return nil, err
	}

	if o.metrics != nil {
		o.metrics.KMeansIterations.Observe(float64(iters))
		o.metrics.FibersClustered.Add(float64(len(labels)))
		o.metrics.ClustersProduced.Set(float64(k))
		o.metrics.PipelineDuration.WithLabelValues("train").Observe(time.Since(start).Seconds())
	}
	o.countRun("train", "ok")
	log.Info("clustering finished", "retained", len(labels), "rejected", len(rejected),
		"kmeans_iterations", iters, "elapsed", time.Since(start))

	return &TrainResult{
		RunID:     runID,
		Labels:    labels,
		Rejected:  rejected,
		Centroids: centroids,
		Colors:    colors,
		Basis:     basis,
	}, nil
}

// weightedSimilarity builds the geometric and per-channel similarity
// matrices and fuses them with the configured weights.
func (o *Orchestrator) weightedSimilarity(ctx context.Context, store *fibers.Store, log *observability.Logger) (*mat.Dense, error) {
	buildStart := time.Now()
	geom, err := o.builder.Geometric(ctx, store, o.cfg.Sigma)
	if err != nil {
		return nil, err
	}
	o.observeBuild("geometry", buildStart, store.Count())

	geometryOnly := len(o.cfg.ScalarTypes) == 0 ||
		(len(o.cfg.ScalarWeights) > 0 && o.cfg.ScalarWeights[0] == 1)
	if geometryOnly {
		log.Info("calculating similarity based on geometry")
		if o.artifacts != nil {
			if err := o.artifacts.SaveMatrix("geometry", geom); err != nil {
				return nil, err
			}
		}
		return o.combiner.Combine(geom, nil, nil, true)
	}

	if o.cfg.SaveAllSimilarity && o.artifacts != nil {
		if err := o.artifacts.SaveMatrix("geometry", geom); err != nil {
			return nil, err
		}
	}

	scalars := make([]*mat.Dense, 0, len(o.cfg.ScalarTypes))
	for _, name := range o.cfg.ScalarTypes {
		chStart := time.Now()
		s, err := o.builder.ScalarChannel(ctx, store, name, o.cfg.Sigma)
		if err != nil {
			return nil, err
		}
		o.observeBuild(name, chStart, store.Count())
		if o.cfg.SaveAllSimilarity && o.artifacts != nil {
			if err := o.artifacts.SaveMatrix(name, s); err != nil {
				return nil, err
			}
		}
		scalars = append(scalars, s)
	}

	return o.combiner.Combine(geom, scalars, o.cfg.ScalarWeights, true)
}

func (o *Orchestrator) observeBuild(kind string, start time.Time, rows int) {
	if o.metrics == nil {
		return
	}
	o.metrics.MatrixBuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	o.metrics.MatrixRowsBuilt.Add(float64(rows))
}

func (o *Orchestrator) countRun(path, status string) {
	if o.metrics != nil {
		o.metrics.PipelineRuns.WithLabelValues(path, status).Inc()
	}
}

package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/cluster"
	"github.com/khanlab/neurobeer/pkg/fibers"
	"github.com/khanlab/neurobeer/pkg/spectral"
)

// Extend classifies a fresh fiber store against a previous training run.
// The rectangular affinity of the new fibers against the prior fibers is
// projected onto the stored eigenbasis, labels are assigned by nearest
// prior centroid, and centroid-distant fibers are rejected. The prior
// centroids are not retrained; the cluster count is theirs.
func (o *Orchestrator) Extend(ctx context.Context, store, prior *fibers.Store, basis *spectral.Eigenbasis, centroids *mat.Dense) (*ExtendResult, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := o.log.With("run_id", runID, "path", "extend")

	if store.Count() == 0 {
		return nil, fmt.Errorf("%w: extension store", ErrEmptyInput)
	}
	if prior.Count() == 0 {
		return nil, fmt.Errorf("%w: prior store", ErrEmptyInput)
	}
	if store.PtsPerFiber() != prior.PtsPerFiber() {
		return nil, fmt.Errorf("extension store has %d points per fiber, prior has %d",
			store.PtsPerFiber(), prior.PtsPerFiber())
	}
	if basis == nil || basis.Vectors == nil {
		return nil, spectral.ErrMissingEigenbasis
	}
	if centroids == nil {
		return nil, fmt.Errorf("%w: no prior centroids", spectral.ErrMissingEigenbasis)
	}
	k, _ := centroids.Dims()
	if k <= 1 {
		return nil, fmt.Errorf("%w: prior run has %d clusters", cluster.ErrDegenerate, k)
	}
	if err := o.combiner.Validate(o.cfg.ScalarWeights, len(o.cfg.ScalarTypes)); err != nil {
		return nil, err
	}

	log.Info("starting extension", "fibers", store.Count(), "prior_fibers", prior.Count(),
		"k_clusters", k, "sigma", o.cfg.Sigma)

	w, err := o.weightedSimilarityBetween(ctx, store, prior)
	if err != nil {
		o.countRun("extend", "error")
		return nil, err
	}

	embedding, err := o.projector.Project(w, basis, k)
	if err != nil {
		o.countRun("extend", "error")
		return nil, err
	}

	labels, dists, err := cluster.Assign(embedding, centroids)
	if err != nil {
		o.countRun("extend", "error")
		return nil, err
	}

	source, err := colorSource(k, centroids, basis)
	if err != nil {
		return nil, err
	}
	colors, err := cluster.Colors(source, k)
	if err != nil {
		return nil, err
	}

	w, labels, rejected := cluster.CentroidDistOutliers(w, dists, labels)
	if len(rejected) > 0 {
		log.Info("rejected centroid-distant fibers", "count", len(rejected))
	}
	if o.metrics != nil {
		o.metrics.OutliersRejected.WithLabelValues("centroid_distance").Add(float64(len(rejected)))
	}

	if o.cfg.SaveWeightedSimilarity && o.artifacts != nil {
		if err := o.artifacts.SaveMatrix("weighted", w); err != nil {
			return nil, err
		}
	}

	if o.metrics != nil {
		o.metrics.FibersClustered.Add(float64(len(labels)))
		o.metrics.ClustersProduced.Set(float64(k))
		o.metrics.PipelineDuration.WithLabelValues("extend").Observe(time.Since(start).Seconds())
	}
	o.countRun("extend", "ok")
	log.Info("extension finished", "retained", len(labels), "rejected", len(rejected),
		"elapsed", time.Since(start))

	return &ExtendResult{
		RunID:    runID,
		Labels:   labels,
		Rejected: rejected,
		Colors:   colors,
	}, nil
}

// weightedSimilarityBetween builds the rectangular affinity of store
// against prior with the configured weights.
func (o *Orchestrator) weightedSimilarityBetween(ctx context.Context, store, prior *fibers.Store) (*mat.Dense, error) {
	buildStart := time.Now()
	geom, err := o.builder.GeometricBetween(ctx, store, prior, o.cfg.Sigma)
	if err != nil {
		return nil, err
	}
	o.observeBuild("geometry", buildStart, store.Count())

	geometryOnly := len(o.cfg.ScalarTypes) == 0 ||
		(len(o.cfg.ScalarWeights) > 0 && o.cfg.ScalarWeights[0] == 1)
	if geometryOnly {
		if o.artifacts != nil {
			if err := o.artifacts.SaveMatrix("geometry", geom); err != nil {
				return nil, err
			}
		}
		return o.combiner.Combine(geom, nil, nil, false)
	}

	if o.cfg.SaveAllSimilarity && o.artifacts != nil {
		if err := o.artifacts.SaveMatrix("geometry", geom); err != nil {
			return nil, err
		}
	}

	scalars := make([]*mat.Dense, 0, len(o.cfg.ScalarTypes))
	for _, name := range o.cfg.ScalarTypes {
		chStart := time.Now()
		s, err := o.builder.ScalarBetween(ctx, store, prior, name, o.cfg.Sigma)
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

	return o.combiner.Combine(geom, scalars, o.cfg.ScalarWeights, false)
}

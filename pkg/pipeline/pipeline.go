// Package pipeline wires the clustering stages into the training and
// extension paths and enforces their input invariants.
package pipeline

import (
	"errors"

	"gonum.org/v1/gonum/mat"

	"github.com/khanlab/neurobeer/pkg/cluster"
	"github.com/khanlab/neurobeer/pkg/config"
	"github.com/khanlab/neurobeer/pkg/observability"
	"github.com/khanlab/neurobeer/pkg/similarity"
	"github.com/khanlab/neurobeer/pkg/spectral"
	"github.com/khanlab/neurobeer/pkg/storage"
)

// ErrEmptyInput is returned when an input store has no fibers.
var ErrEmptyInput = errors.New("input has no fibers")

// Orchestrator owns the pipeline collaborators. The artifact store is
// optional; with none configured nothing is persisted and the results are
// returned in memory only.
type Orchestrator struct {
	cfg       *config.ClusterConfig
	builder   *similarity.Builder
	combiner  *similarity.Combiner
	embedder  *spectral.Embedder
	projector *spectral.Projector
	artifacts storage.ArtifactStore
	log       *observability.Logger
	metrics   *observability.Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArtifacts injects the persistence collaborator.
func WithArtifacts(s storage.ArtifactStore) Option {
	return func(o *Orchestrator) { o.artifacts = s }
}

// WithLogger injects the pipeline logger.
func WithLogger(l *observability.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

// WithMetrics injects the Prometheus instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator for the given cluster configuration.
func New(cfg *config.ClusterConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: cfg,
		log: observability.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.builder = similarity.NewBuilder(cfg.Workers, o.log)
	o.combiner = similarity.NewCombiner(similarity.DefaultWeightTol)
	o.embedder = spectral.NewEmbedder(o.log)
	o.projector = spectral.NewProjector(o.log)
	return o
}

// TrainResult is the output of the training path. Labels cover the
// retained fibers in store order; Rejected holds the original indices of
// the outliers removed before embedding.
type TrainResult struct {
	RunID     string
	Labels    []int
	Rejected  []int
	Centroids *mat.Dense
	Colors    [][3]int
	Basis     *spectral.Eigenbasis
}

// ExtendResult is the output of the extension path. Labels cover the
// retained new fibers; Rejected holds the original indices removed by the
// centroid-distance policy.
type ExtendResult struct {
	RunID    string
	Labels   []int
	Rejected []int
	Colors   [][3]int
}

// colorSource picks the matrix that cluster colors derive from: the
// canonicalized centroids for k >= 3, the leading eigenvectors for k = 2.
func colorSource(k int, centroids *mat.Dense, basis *spectral.Eigenbasis) (*mat.Dense, error) {
	if k <= 1 {
		return nil, cluster.ErrDegenerate
	}
	if k == 2 {
		return basis.Vectors, nil
	}
	return centroids, nil
}

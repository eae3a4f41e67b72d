package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the clustering pipeline.
type Metrics struct {
	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec

	// Matrix construction metrics
	MatrixBuildDuration *prometheus.HistogramVec
	MatrixRowsBuilt     prometheus.Counter

	// Spectral metrics
	EigensolveDuration prometheus.Histogram
	KMeansIterations   prometheus.Histogram

	// Output metrics
	FibersClustered  prometheus.Counter
	OutliersRejected *prometheus.CounterVec
	ClustersProduced prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics on the given
// registerer. Pass prometheus.DefaultRegisterer outside of tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurobeer_pipeline_runs_total",
				Help: "Total number of pipeline runs by path and status",
			},
			[]string{"path", "status"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neurobeer_pipeline_duration_seconds",
				Help:    "End-to-end pipeline duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"path"},
		),
		MatrixBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "neurobeer_matrix_build_duration_seconds",
				Help:    "Similarity matrix construction duration by kind",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),
		MatrixRowsBuilt: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "neurobeer_matrix_rows_built_total",
				Help: "Total number of similarity matrix rows assembled",
			},
		),
		EigensolveDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "neurobeer_eigensolve_duration_seconds",
				Help:    "Laplacian eigendecomposition duration in seconds",
				Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		KMeansIterations: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "neurobeer_kmeans_iterations",
				Help:    "Number of Lloyd iterations until convergence",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 40, 50},
			},
		),
		FibersClustered: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "neurobeer_fibers_clustered_total",
				Help: "Total number of fibers assigned a cluster label",
			},
		),
		OutliersRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neurobeer_outliers_rejected_total",
				Help: "Total number of fibers rejected as outliers by policy",
			},
			[]string{"policy"},
		),
		ClustersProduced: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "neurobeer_clusters_produced",
				Help: "Cluster count of the most recent pipeline run",
			},
		),
	}
}

package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewLoggerModes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "production", ""} {
		log, err := NewLogger(mode)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		log.Debug("debug message", "key", "value")
		log.Info("info message", "count", 3)
		log.Sync()
	}
}

func TestLoggerWith(t *testing.T) {
	log := Nop()
	child := log.With("run_id", "abc")
	if child == nil {
		t.Fatal("With returned nil")
	}
	child.Warn("warning", "k", 1)
	child.Error("error", "k", 2)
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PipelineRuns.WithLabelValues("train", "ok").Inc()
	m.MatrixBuildDuration.WithLabelValues("geometry").Observe(0.5)
	m.EigensolveDuration.Observe(0.1)
	m.KMeansIterations.Observe(12)
	m.FibersClustered.Add(100)
	m.OutliersRejected.WithLabelValues("row_sum").Add(2)
	m.ClustersProduced.Set(4)
	m.MatrixRowsBuilt.Add(100)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestNewMetricsIsolatedRegistries(t *testing.T) {
	// Two instances must not collide when given separate registries.
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())
	a.FibersClustered.Add(1)
	b.FibersClustered.Add(2)
}

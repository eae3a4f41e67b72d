package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Cluster.PtsPerFiber != 20 {
		t.Errorf("expected 20 pts per fiber, got %d", cfg.Cluster.PtsPerFiber)
	}
	if cfg.Cluster.KClusters != 50 {
		t.Errorf("expected 50 clusters, got %d", cfg.Cluster.KClusters)
	}
	if cfg.Cluster.Sigma != TrainSigma {
		t.Errorf("expected sigma %g, got %g", TrainSigma, cfg.Cluster.Sigma)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config must validate: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero pts_per_fiber", func(c *Config) { c.Cluster.PtsPerFiber = 0 }},
		{"k_clusters of 1", func(c *Config) { c.Cluster.KClusters = 1 }},
		{"negative sigma", func(c *Config) { c.Cluster.Sigma = -0.1 }},
		{"zero workers", func(c *Config) { c.Cluster.Workers = 0 }},
		{"weight count mismatch", func(c *Config) {
			c.Cluster.ScalarTypes = []string{"FA"}
			c.Cluster.ScalarWeights = []float64{0.2, 0.4, 0.4}
		}},
		{"bad port", func(c *Config) { c.Server.Port = -1 }},
		{"auth without secret", func(c *Config) { c.Server.AuthEnabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NEUROBEER_K_CLUSTERS", "8")
	t.Setenv("NEUROBEER_SIGMA", "0.35")
	t.Setenv("NEUROBEER_WORKERS", "4")
	t.Setenv("NEUROBEER_SCALAR_TYPES", "FA,T1")

	cfg := LoadFromEnv()
	if cfg.Cluster.KClusters != 8 {
		t.Errorf("expected 8 clusters, got %d", cfg.Cluster.KClusters)
	}
	if cfg.Cluster.Sigma != 0.35 {
		t.Errorf("expected sigma 0.35, got %g", cfg.Cluster.Sigma)
	}
	if cfg.Cluster.Workers != 4 {
		t.Errorf("expected 4 workers, got %d", cfg.Cluster.Workers)
	}
	if len(cfg.Cluster.ScalarTypes) != 2 || cfg.Cluster.ScalarTypes[1] != "T1" {
		t.Errorf("unexpected scalar types: %v", cfg.Cluster.ScalarTypes)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `cluster:
  k_clusters: 12
  sigma: 0.25
  scalar_types: [FA]
  scalar_weights: [0.7, 0.3]
  workers: 2
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Cluster.KClusters != 12 {
		t.Errorf("expected 12 clusters, got %d", cfg.Cluster.KClusters)
	}
	// Untouched options keep their defaults.
	if cfg.Cluster.PtsPerFiber != 20 {
		t.Errorf("expected default pts_per_fiber, got %d", cfg.Cluster.PtsPerFiber)
	}
}

func TestLoadFileRejectsUnknownOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `cluster:
  k_clusters: 12
  bandwidth: 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("expected error for unknown option")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/does/not/exist.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

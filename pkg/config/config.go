// Package config holds the enumerated configuration of the clustering
// pipeline and its serving surfaces. Unknown options in a config file are
// rejected rather than silently ignored.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline and server configuration.
type Config struct {
	Cluster ClusterConfig `yaml:"cluster"`
	Server  ServerConfig  `yaml:"server"`
}

// ClusterConfig holds the clustering pipeline options.
type ClusterConfig struct {
	PtsPerFiber           int       `yaml:"pts_per_fiber"`           // samples per fiber (default: 20)
	KClusters             int       `yaml:"k_clusters"`              // cluster count, > 1 (default: 50)
	Sigma                 float64   `yaml:"sigma"`                   // Gaussian kernel bandwidth (default: 0.2 train, 0.4 extend)
	ScalarTypes           []string  `yaml:"scalar_types"`            // scalar channel names used for similarity
	ScalarWeights         []float64 `yaml:"scalar_weights"`          // geometry weight first, then one per channel; sums to 1
	SaveAllSimilarity     bool      `yaml:"save_all_similarity"`     // persist every per-channel similarity matrix
	SaveWeightedSimilarity bool     `yaml:"save_weighted_similarity"` // persist the combined affinity
	OutputDir             string    `yaml:"output_dir"`              // directory for persisted artifacts
	Workers               int       `yaml:"workers"`                 // parallel rows during matrix assembly (default: 1)
	Verbose               int       `yaml:"verbose"`                 // log verbosity level
	Seed                  int64     `yaml:"seed"`                    // k-means initialization seed
}

// ServerConfig holds the REST server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	JWTSecret       string        `yaml:"jwt_secret"`
	AuthEnabled     bool          `yaml:"auth_enabled"`
	RateLimitPerSec float64       `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int           `yaml:"rate_limit_burst"`
}

// TrainSigma is the default kernel bandwidth for the training path.
const TrainSigma = 0.2

// ExtendSigma is the default kernel bandwidth for the extension path.
const ExtendSigma = 0.4

// Default returns the default configuration for the training path.
func Default() *Config {
	return &Config{
		Cluster: ClusterConfig{
			PtsPerFiber: 20,
			KClusters:   50,
			Sigma:       TrainSigma,
			OutputDir:   ".",
			Workers:     1,
			Seed:        1,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			AuthEnabled:     false,
			RateLimitPerSec: 10,
			RateLimitBurst:  20,
		},
	}
}

// LoadFromEnv loads configuration from NEUROBEER_* environment variables on
// top of the defaults.
func LoadFromEnv() *Config {
	cfg := Default()

	if v := os.Getenv("NEUROBEER_PTS_PER_FIBER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cluster.PtsPerFiber = n
		}
	}
	if v := os.Getenv("NEUROBEER_K_CLUSTERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cluster.KClusters = n
		}
	}
	if v := os.Getenv("NEUROBEER_SIGMA"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Cluster.Sigma = f
		}
	}
	if v := os.Getenv("NEUROBEER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cluster.Workers = n
		}
	}
	if v := os.Getenv("NEUROBEER_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Cluster.Seed = n
		}
	}
	if v := os.Getenv("NEUROBEER_OUTPUT_DIR"); v != "" {
		cfg.Cluster.OutputDir = v
	}
	if v := os.Getenv("NEUROBEER_SCALAR_TYPES"); v != "" {
		cfg.Cluster.ScalarTypes = strings.Split(v, ",")
	}
	if v := os.Getenv("NEUROBEER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("NEUROBEER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("NEUROBEER_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
		cfg.Server.AuthEnabled = true
	}

	return cfg
}

// LoadFile loads a YAML configuration file on top of the defaults. Unknown
// keys are an error.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks option ranges. Weight/type consistency beyond length is
// enforced again by the affinity combiner at run time.
func (c *Config) Validate() error {
	cl := &c.Cluster
	if cl.PtsPerFiber <= 0 {
		return fmt.Errorf("pts_per_fiber must be positive, got %d", cl.PtsPerFiber)
	}
	if cl.KClusters <= 1 {
		return fmt.Errorf("k_clusters must be greater than 1, got %d", cl.KClusters)
	}
	if cl.Sigma <= 0 {
		return fmt.Errorf("sigma must be positive, got %g", cl.Sigma)
	}
	if cl.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cl.Workers)
	}
	if len(cl.ScalarWeights) > 0 && len(cl.ScalarWeights) != len(cl.ScalarTypes)+1 {
		return fmt.Errorf("scalar_weights has %d entries, want %d (geometry + %d scalar_types)",
			len(cl.ScalarWeights), len(cl.ScalarTypes)+1, len(cl.ScalarTypes))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	if c.Server.AuthEnabled && c.Server.JWTSecret == "" {
		return fmt.Errorf("auth enabled but jwt_secret is empty")
	}
	return nil
}

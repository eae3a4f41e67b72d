package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/khanlab/neurobeer/pkg/api/rest"
	"github.com/khanlab/neurobeer/pkg/config"
	"github.com/khanlab/neurobeer/pkg/observability"
	"github.com/khanlab/neurobeer/pkg/pipeline"
	"github.com/khanlab/neurobeer/pkg/storage"
)

func main() {
	var (
		configPath string
		mode       string
	)
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.StringVar(&mode, "log-mode", "dev", "log mode: dev or prod")
	flag.Parse()

	log, err := observability.NewLogger(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := config.LoadFromEnv()
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics),
	}
	if cfg.Cluster.SaveAllSimilarity || cfg.Cluster.SaveWeightedSimilarity {
		artifacts, err := storage.NewNpyStore(cfg.Cluster.OutputDir)
		if err != nil {
			log.Error("failed to create artifact store", "error", err)
			os.Exit(1)
		}
		opts = append(opts, pipeline.WithArtifacts(artifacts))
	}
	orch := pipeline.New(&cfg.Cluster, opts...)

	server := rest.NewServer(cfg.Server, orch, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Info("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("shutdown failed", "error", err)
			os.Exit(1)
		}
	}
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"anomaly-trainer/cmd"
	"anomaly-trainer/internal/config"
	"anomaly-trainer/internal/core"
	"anomaly-trainer/internal/core/detectors"
	"anomaly-trainer/internal/database"
	"anomaly-trainer/internal/storage"
)

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	cmd.InitLogger(cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg); err != nil {
		cmd.WriteErrorMarker(cfg.ErrorMarkerPath, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		return err
	}

	db, err := cmd.CreateDatabase(cfg)
	if err != nil {
		slog.Error("error opening database", "error", err)
		return err
	}
	defer database.Close(db)

	if err := cmd.ResolveJobMetadata(ctx, db, &cfg); err != nil {
		slog.Error("error resolving job metadata", "job_guid", cfg.Guid, "error", err)
		return err
	}

	provider, err := cmd.CreateStorageProvider(cfg)
	if err != nil {
		slog.Error("error creating storage provider", "backend", cfg.StorageBackend, "error", err)
		return err
	}

	loader, source, err := cmd.CreateDatasetLoader(cfg, provider)
	if err != nil {
		slog.Error("error creating dataset loader", "error", err)
		return err
	}

	publisher, err := cmd.CreatePublisher(cfg)
	if err != nil {
		slog.Error("error creating progress publisher", "transport", cfg.ProgressTransport, "error", err)
		return err
	}
	defer publisher.Close()

	detectorCfg := detectors.DefaultConfig()
	detectorCfg.Contamination = cfg.Contamination
	detectorCfg.Seed = cfg.RandomSeed

	var manifests *storage.ManifestWriter
	if cfg.MetadataPrefix != "" {
		manifests = storage.NewManifestWriter(provider, cfg.BucketName, cfg.MetadataPrefix)
	}

	processor := core.NewTrainingProcessor(
		db,
		loader,
		source,
		core.NewDetectorFitter(detectorCfg, nil),
		core.NewStatusRegistry(db, storage.NewArtifactStore(provider, cfg.BucketName, cfg.ArtifactPrefix)),
		core.NewProgressNotifier(publisher),
		manifests,
	)

	result, err := processor.Run(ctx, cfg.Job())
	if err != nil {
		return err
	}

	for _, r := range result.Runs {
		slog.Info("algorithm trained", "algorithm", r.Run.Algorithm, "model_guid", r.Run.ModelGuid, "mean_normal", r.Mean.String(), "std_normal", r.Std.String(), "artifact", r.Artifact.String())
	}
	return nil
}

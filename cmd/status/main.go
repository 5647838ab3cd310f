package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"anomaly-trainer/cmd"
	"anomaly-trainer/internal/api"
	"anomaly-trainer/internal/config"
	"anomaly-trainer/internal/database"
	"anomaly-trainer/internal/storage"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type StatusConfig struct {
	Port        int    `env:"PORT" envDefault:"9001"`
	ArtifactKey string `env:"ARTIFACT_KEY"`
}

func main() {
	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	var statusCfg StatusConfig
	if err := env.Parse(&statusCfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	cmd.InitLogger(cfg.LogLevel, cfg.LogFormat)

	db, err := cmd.CreateDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	provider, err := cmd.CreateStorageProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to create storage provider: %v", err)
	}

	artifacts := storage.NewArtifactStore(provider, cfg.BucketName, cfg.ArtifactPrefix)
	service := api.NewStatusService(db, artifacts)

	if ref, ok := artifactRef(cfg, statusCfg, artifacts); ok {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
		if err := service.LoadArtifact(ctx, ref); err != nil {
			// The server still starts and reports the model as not loaded.
			slog.Error("error loading model artifact", "artifact", ref.String(), "error", err)
		}
		cancel()
	} else {
		slog.Warn("no artifact configured, set ARTIFACT_KEY or GUID and ALGORITHM")
	}

	server := createServer(service, statusCfg.Port)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("shutting down status server")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	slog.Info("status server listening", "port", statusCfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %d: %v", statusCfg.Port, err)
	}

	slog.Info("status server stopped")
}

// artifactRef resolves the artifact to serve: ARTIFACT_KEY wins, otherwise the
// first algorithm of GUID/ALGORITHM names it.
func artifactRef(cfg config.Config, statusCfg StatusConfig, artifacts *storage.ArtifactStore) (storage.ArtifactRef, bool) {
	if statusCfg.ArtifactKey != "" {
		return storage.ArtifactRef{Bucket: cfg.BucketName, Key: statusCfg.ArtifactKey}, true
	}

	algorithms := cfg.Algorithms()
	if cfg.Guid == "" || len(algorithms) == 0 {
		return storage.ArtifactRef{}, false
	}
	return artifacts.Ref(cfg.Guid, algorithms[0]), true
}

func createServer(service *api.StatusService, port int) *http.Server {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	service.AddRoutes(r)

	return &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: r,
	}
}

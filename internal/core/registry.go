package core

import (
	"context"
	"log/slog"

	"anomaly-trainer/internal/core/types"
	"anomaly-trainer/internal/database"
	"anomaly-trainer/internal/storage"

	"gorm.io/gorm"
)

// StatusRegistry owns the persisted state of algorithm runs.
type StatusRegistry struct {
	db        *gorm.DB
	artifacts *storage.ArtifactStore
}

func NewStatusRegistry(db *gorm.DB, artifacts *storage.ArtifactStore) *StatusRegistry {
	return &StatusRegistry{db: db, artifacts: artifacts}
}

func (r *StatusRegistry) Resolve(ctx context.Context, jobGuid, algorithm string) (string, error) {
	return database.ResolveAlgorithmGuid(ctx, r.db, jobGuid, algorithm)
}

func (r *StatusRegistry) MarkRunning(ctx context.Context, run types.AlgorithmRun) error {
	return database.UpdateTrainingStatus(ctx, r.db, run.ModelGuid, database.StatusRunning)
}

func (r *StatusRegistry) MarkFailed(ctx context.Context, run types.AlgorithmRun) error {
	return database.UpdateTrainingStatus(ctx, r.db, run.ModelGuid, database.StatusFailed)
}

// Commit persists the artifact and then marks the run SUCCEEDED with its
// statistics. The artifact is written first so a failure at any point leaves
// the row short of SUCCEEDED; an interrupted commit can leave an orphaned
// artifact at the run's key, which the next attempt overwrites.
func (r *StatusRegistry) Commit(ctx context.Context, run types.AlgorithmRun, stats NormalStatistics, artifact []byte) (storage.ArtifactRef, error) {
	ref, err := r.artifacts.Save(ctx, run.JobGuid, run.Algorithm, artifact)
	if err != nil {
		return storage.ArtifactRef{}, err
	}

	if err := database.CommitStatistics(ctx, r.db, run.ModelGuid, stats.Mean, stats.Std, ref.String()); err != nil {
		slog.Error("artifact saved but status commit failed", "artifact", ref.String(), "model_guid", run.ModelGuid, "error", err)
		return storage.ArtifactRef{}, err
	}

	return ref, nil
}

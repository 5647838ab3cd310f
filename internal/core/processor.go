package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"anomaly-trainer/internal/core/types"
	"anomaly-trainer/internal/database"
	apperrors "anomaly-trainer/internal/errors"
	"anomaly-trainer/internal/storage"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type JobState string

const (
	StateInit        JobState = "INIT"
	StateLoading     JobState = "LOADING"
	StateRunningAlgo JobState = "RUNNING_ALGO"
	StateDone        JobState = "DONE"
	StateFailed      JobState = "FAILED"
)

type RunResult struct {
	Run      types.AlgorithmRun
	Mean     decimal.Decimal
	Std      decimal.Decimal
	Artifact storage.ArtifactRef
}

type Result struct {
	State      JobState
	Runs       []RunResult
	Percentage float64
	Duration   time.Duration
}

// TrainingProcessor runs one training job: the dataset is loaded once and
// every algorithm is fitted, committed and reported in list order. The first
// error of any step fails the whole job.
type TrainingProcessor struct {
	db        *gorm.DB
	loader    *storage.DatasetLoader
	source    storage.DatasetSource
	fitter    Fitter
	registry  *StatusRegistry
	notifier  *ProgressNotifier
	manifests *storage.ManifestWriter
}

func NewTrainingProcessor(
	db *gorm.DB,
	loader *storage.DatasetLoader,
	source storage.DatasetSource,
	fitter Fitter,
	registry *StatusRegistry,
	notifier *ProgressNotifier,
	manifests *storage.ManifestWriter,
) *TrainingProcessor {
	return &TrainingProcessor{
		db:        db,
		loader:    loader,
		source:    source,
		fitter:    fitter,
		registry:  registry,
		notifier:  notifier,
		manifests: manifests,
	}
}

// jobRun is the mutable state of a single Run call.
type jobRun struct {
	job      types.TrainingJob
	state    JobState
	progress *ProgressTracker
	current  *types.AlgorithmRun
	running  bool
	results  []RunResult
}

func ValidateJob(job types.TrainingJob) error {
	if job.Guid == "" {
		return apperrors.New(apperrors.ConfigInvalid, "job guid is required")
	}
	if job.Plant == "" || job.NodeId == "" {
		return apperrors.New(apperrors.ConfigInvalid, "plant and node id are required")
	}
	if len(job.Algorithms) == 0 {
		return apperrors.New(apperrors.ConfigInvalid, "algorithm list is empty")
	}
	return nil
}

func (proc *TrainingProcessor) Run(ctx context.Context, job types.TrainingJob) (Result, error) {
	start := time.Now()
	jr := &jobRun{job: job, state: StateInit}

	slog.Info("training job started", "job_guid", job.Guid, "plant", job.Plant, "node_id", job.NodeId, "algorithms", job.Algorithms)

	err := proc.run(ctx, jr)

	result := Result{State: jr.state, Runs: jr.results, Duration: time.Since(start)}
	if jr.progress != nil {
		result.Percentage = jr.progress.Current()
	}

	if err != nil {
		proc.fail(ctx, jr, err)
		result.State = StateFailed
		slog.Error("training job failed", "job_guid", job.Guid, "stage", jr.state, "kind", apperrors.KindOf(err), "error", err, "duration", result.Duration)
		return result, err
	}

	slog.Info("training job done", "job_guid", job.Guid, "algorithms", len(jr.results), "percentage", result.Percentage, "duration", result.Duration)
	return result, nil
}

func (proc *TrainingProcessor) run(ctx context.Context, jr *jobRun) error {
	if err := ValidateJob(jr.job); err != nil {
		return err
	}

	jr.state = StateLoading
	slog.Info("loading dataset", "job_guid", jr.job.Guid, "source", proc.source.String())
	table, err := proc.loader.Load(ctx, proc.source)
	if err != nil {
		return err
	}
	slog.Info("dataset ready", "job_guid", jr.job.Guid, "rows", table.NumRows(), "columns", table.NumColumns())

	jr.state = StateRunningAlgo
	jr.progress = NewProgressTracker(len(jr.job.Algorithms))

	for i, algorithm := range jr.job.Algorithms {
		run := types.AlgorithmRun{JobGuid: jr.job.Guid, Algorithm: algorithm, Position: i}
		jr.current = &run
		jr.running = false

		result, err := proc.runAlgorithm(ctx, jr, table, run)
		if err != nil {
			return err
		}
		jr.results = append(jr.results, result)
	}
	jr.current = nil

	if err := proc.writeManifest(ctx, jr); err != nil {
		return err
	}

	jr.state = StateDone
	return nil
}

func (proc *TrainingProcessor) runAlgorithm(ctx context.Context, jr *jobRun, table *types.Table, run types.AlgorithmRun) (RunResult, error) {
	slog.Info("algorithm started", "job_guid", run.JobGuid, "algorithm", run.Algorithm, "position", run.Position+1, "of", len(jr.job.Algorithms))

	modelGuid, err := proc.registry.Resolve(ctx, run.JobGuid, run.Algorithm)
	if err != nil {
		return RunResult{}, err
	}
	run.ModelGuid = modelGuid
	jr.current = &run

	if err := proc.registry.MarkRunning(ctx, run); err != nil {
		return RunResult{}, err
	}
	jr.running = true

	model, scored, err := proc.fitter.Fit(ctx, table, run.Algorithm)
	if err != nil {
		return RunResult{}, err
	}

	stats, err := ExtractStatistics(scored)
	if err != nil {
		return RunResult{}, fmt.Errorf("error extracting statistics for %s: %w", run, err)
	}

	artifact, err := model.Save()
	if err != nil {
		return RunResult{}, apperrors.Wrapf(apperrors.PersistenceFailed, err, "error serializing model for %s", run)
	}

	ref, err := proc.registry.Commit(ctx, run, stats, artifact)
	if err != nil {
		return RunResult{}, err
	}
	jr.running = false

	slog.Info("algorithm committed", "job_guid", run.JobGuid, "algorithm", run.Algorithm, "model_guid", run.ModelGuid,
		"mean_normal", stats.Mean.String(), "std_normal", stats.Std.String(), "artifact", ref.String())

	percentage := jr.progress.Next()
	if err := proc.notifier.Notify(ctx, jr.job, run, percentage); err != nil {
		return RunResult{}, err
	}
	jr.progress.Advance()

	return RunResult{Run: run, Mean: stats.Mean, Std: stats.Std, Artifact: ref}, nil
}

func (proc *TrainingProcessor) writeManifest(ctx context.Context, jr *jobRun) error {
	if proc.manifests == nil {
		return nil
	}

	manifest := storage.JobManifest{
		Guid:           jr.job.Guid,
		Plant:          jr.job.Plant,
		NodeId:         jr.job.NodeId,
		NodeParameters: jr.job.NodeParameters,
		Algorithms:     jr.job.Algorithms,
	}
	for _, r := range jr.results {
		manifest.Results = append(manifest.Results, storage.AlgorithmSummary{
			Algorithm:  r.Run.Algorithm,
			ModelGuid:  r.Run.ModelGuid,
			MeanNormal: r.Mean.StringFixed(StatisticsPrecision),
			StdNormal:  r.Std.StringFixed(StatisticsPrecision),
			Artifact:   r.Artifact.String(),
		})
	}

	_, err := proc.manifests.Write(ctx, manifest)
	return err
}

// fail leaves a diagnosable record of a failed job. The algorithm in progress
// is marked FAILED unless its commit already went through; algorithms that
// were never started are left untouched. Recording is best effort and never
// replaces the original error.
func (proc *TrainingProcessor) fail(ctx context.Context, jr *jobRun, cause error) {
	ctx = context.WithoutCancel(ctx)

	algorithm := ""
	if jr.current != nil {
		algorithm = jr.current.Algorithm
		if jr.running {
			if err := proc.registry.MarkFailed(ctx, *jr.current); err != nil {
				slog.Error("error marking algorithm run failed", "run", jr.current.String(), "error", err)
			}
		}
	}

	percentage := 0.0
	if jr.progress != nil {
		percentage = jr.progress.Current()
	}

	if proc.db == nil {
		return
	}
	database.SaveTrainingError(ctx, proc.db, jr.job.Guid, algorithm, string(apperrors.KindOf(cause)), cause.Error(), map[string]any{
		"stage":      string(jr.state),
		"percentage": percentage,
		"completed":  len(jr.results),
		"algorithms": jr.job.Algorithms,
	})
}

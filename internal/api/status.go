package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"anomaly-trainer/internal/core"
	"anomaly-trainer/internal/core/detectors"
	"anomaly-trainer/internal/database"
	"anomaly-trainer/internal/storage"
	"anomaly-trainer/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

const (
	ModelReadyMessage     = "Model is ready"
	ModelNotLoadedMessage = "Model not loaded"
)

// StatusService serves the readiness of one trained artifact and read-only
// views of the training rows of a job.
type StatusService struct {
	db        *gorm.DB
	artifacts *storage.ArtifactStore

	mu       sync.RWMutex
	detector detectors.Detector
	ref      storage.ArtifactRef
}

func NewStatusService(db *gorm.DB, artifacts *storage.ArtifactStore) *StatusService {
	return &StatusService{db: db, artifacts: artifacts}
}

// LoadArtifact fetches and decodes the artifact at ref. On failure the
// previously loaded model, if any, is kept.
func (s *StatusService) LoadArtifact(ctx context.Context, ref storage.ArtifactRef) error {
	data, err := s.artifacts.Load(ctx, ref)
	if err != nil {
		return err
	}

	detector, err := core.LoadModel(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.detector = detector
	s.ref = ref

	slog.Info("model artifact loaded", "artifact", ref.String(), "algorithm", detector.Algorithm())
	return nil
}

func (s *StatusService) AddRoutes(r chi.Router) {
	r.Get("/", s.Ready)
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Get("/status", RestHandler(s.GetStatus))
	r.Route("/models/{job_guid}", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListModels))
		r.Get("/errors", RestHandler(s.ListErrors))
	})
}

func (s *StatusService) Ready(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	loaded := s.detector != nil
	s.mu.RUnlock()

	if !loaded {
		render.Status(r, http.StatusServiceUnavailable)
		render.PlainText(w, r, ModelNotLoadedMessage)
		return
	}
	render.PlainText(w, r, ModelReadyMessage)
}

func (s *StatusService) GetStatus(r *http.Request) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.detector == nil {
		return api.ModelStatus{Loaded: false}, nil
	}
	return api.ModelStatus{Loaded: true, Algorithm: s.detector.Algorithm(), Artifact: s.ref.String()}, nil
}

func (s *StatusService) ListModels(r *http.Request) (any, error) {
	jobGuid, err := URLParam(r, "job_guid")
	if err != nil {
		return nil, err
	}

	params, err := ParseRequestQueryParams[api.ListModelsParams](r)
	if err != nil {
		return nil, err
	}

	models, err := database.ListAnomalyModels(r.Context(), s.db, jobGuid)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing models: %w", err)
	}

	if len(models) == 0 {
		return nil, CodedErrorf(http.StatusNotFound, "no models provisioned for job %s", jobGuid)
	}

	results := make([]api.AnomalyModel, 0, len(models))
	for _, m := range models {
		if params.Algorithm != "" && m.Algorithm != params.Algorithm {
			continue
		}
		status := database.StatusName(m.TrainingStatus)
		if params.Status != "" && !strings.EqualFold(status, params.Status) {
			continue
		}
		results = append(results, convertAnomalyModel(m))
	}

	return results, nil
}

func (s *StatusService) ListErrors(r *http.Request) (any, error) {
	jobGuid, err := URLParam(r, "job_guid")
	if err != nil {
		return nil, err
	}

	errs, err := database.GetTrainingErrors(r.Context(), s.db, jobGuid)
	if err != nil {
		return nil, CodedErrorf(http.StatusInternalServerError, "error listing training errors: %w", err)
	}

	results := make([]api.TrainingError, 0, len(errs))
	for _, e := range errs {
		results = append(results, convertTrainingError(e))
	}
	return results, nil
}

func convertAnomalyModel(m database.AnomalyModel) api.AnomalyModel {
	model := api.AnomalyModel{
		Guid:           m.Guid,
		JobGuid:        m.AnomalyGuid,
		Algorithm:      m.Algorithm,
		TrainingStatus: database.StatusName(m.TrainingStatus),
	}

	if m.AnomalyMeanNormal.Valid {
		mean := m.AnomalyMeanNormal.Decimal.StringFixed(core.StatisticsPrecision)
		model.MeanNormal = &mean
	}
	if m.AnomalyStdNormal.Valid {
		std := m.AnomalyStdNormal.Decimal.StringFixed(core.StatisticsPrecision)
		model.StdNormal = &std
	}
	if m.ModelArtifactRef.Valid {
		model.ModelArtifactRef = m.ModelArtifactRef.String
	}
	if m.CompletionTime.Valid {
		completed := m.CompletionTime.Time
		model.CompletionTime = &completed
	}

	return model
}

func convertTrainingError(e database.TrainingError) api.TrainingError {
	res := api.TrainingError{
		Id:        e.ErrorId,
		JobGuid:   e.JobGuid,
		Algorithm: e.Algorithm,
		Kind:      e.Kind,
		Error:     e.Error,
		Timestamp: e.Timestamp,
	}

	if len(e.Details) > 0 {
		var details map[string]any
		if err := json.Unmarshal(e.Details, &details); err != nil {
			slog.Warn("error decoding training error details", "error_id", e.ErrorId, "error", err)
		} else {
			res.Details = details
		}
	}

	return res
}

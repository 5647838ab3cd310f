package api_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	backend "anomaly-trainer/internal/api"
	"anomaly-trainer/internal/core/detectors"
	"anomaly-trainer/internal/database"
	"anomaly-trainer/internal/storage"
	"anomaly-trainer/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const bucket = "anomaly"

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := database.NewDatabase("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, database.GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func createArtifacts(t *testing.T) *storage.ArtifactStore {
	provider, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	return storage.NewArtifactStore(provider, bucket, storage.DefaultArtifactPrefix)
}

func saveDetector(t *testing.T, artifacts *storage.ArtifactStore, jobGuid string) storage.ArtifactRef {
	detector, err := detectors.New(detectors.NearestNeighbor, detectors.DefaultConfig())
	require.NoError(t, err)

	data := [][]float64{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {0.5, 0.5}, {8, 8}}
	require.NoError(t, detector.Fit(data))

	encoded, err := detectors.Encode(detector)
	require.NoError(t, err)

	ref, err := artifacts.Save(context.Background(), jobGuid, detectors.NearestNeighbor, encoded)
	require.NoError(t, err)
	return ref
}

func newRouter(service *backend.StatusService) chi.Router {
	router := chi.NewRouter()
	service.AddRoutes(router)
	return router
}

func get(router chi.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestReady(t *testing.T) {
	db := createDB(t)
	artifacts := createArtifacts(t)
	service := backend.NewStatusService(db, artifacts)
	router := newRouter(service)

	rec := get(router, "/")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, backend.ModelNotLoadedMessage, rec.Body.String())

	ref := saveDetector(t, artifacts, "job-1")
	require.NoError(t, service.LoadArtifact(context.Background(), ref))

	rec = get(router, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, backend.ModelReadyMessage, rec.Body.String())

	rec = get(router, "/status")
	assert.Equal(t, http.StatusOK, rec.Code)
	var status api.ModelStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, api.ModelStatus{Loaded: true, Algorithm: detectors.NearestNeighbor, Artifact: ref.String()}, status)
}

func TestLoadArtifactFailureKeepsPreviousModel(t *testing.T) {
	db := createDB(t)
	artifacts := createArtifacts(t)
	service := backend.NewStatusService(db, artifacts)
	router := newRouter(service)

	missing := artifacts.Ref("job-missing", detectors.IsolationForest)
	assert.Error(t, service.LoadArtifact(context.Background(), missing))
	assert.Equal(t, http.StatusServiceUnavailable, get(router, "/").Code)

	ref := saveDetector(t, artifacts, "job-1")
	require.NoError(t, service.LoadArtifact(context.Background(), ref))

	assert.Error(t, service.LoadArtifact(context.Background(), missing))
	assert.Equal(t, http.StatusOK, get(router, "/").Code)
}

func TestLoadArtifactCorrupt(t *testing.T) {
	db := createDB(t)
	provider, err := storage.NewLocalProvider(t.TempDir())
	require.NoError(t, err)
	artifacts := storage.NewArtifactStore(provider, bucket, storage.DefaultArtifactPrefix)

	key := storage.ArtifactKey(storage.DefaultArtifactPrefix, "job-1", detectors.AngleBased)
	require.NoError(t, provider.PutObject(context.Background(), bucket, key, bytes.NewReader([]byte("garbage"))))

	service := backend.NewStatusService(db, artifacts)
	assert.Error(t, service.LoadArtifact(context.Background(), artifacts.Ref("job-1", detectors.AngleBased)))
}

func TestHealth(t *testing.T) {
	router := newRouter(backend.NewStatusService(createDB(t), createArtifacts(t)))

	rec := get(router, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListModels(t *testing.T) {
	completed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db := createDB(t,
		&database.AnomalyModel{
			Guid:              "m-1",
			AnomalyGuid:       "job-1",
			Algorithm:         "abod",
			TrainingStatus:    database.StatusSucceeded,
			AnomalyMeanNormal: decimal.NewNullDecimal(decimal.RequireFromString("0.124")),
			AnomalyStdNormal:  decimal.NewNullDecimal(decimal.RequireFromString("1.5")),
			ModelArtifactRef:  sql.NullString{String: "anomaly/anomaly/model/job-1_abod", Valid: true},
			CompletionTime:    sql.NullTime{Time: completed, Valid: true},
		},
		&database.AnomalyModel{Guid: "m-2", AnomalyGuid: "job-1", Algorithm: "iforest", TrainingStatus: database.StatusPending},
		&database.AnomalyModel{Guid: "m-3", AnomalyGuid: "job-2", Algorithm: "knn", TrainingStatus: database.StatusPending},
	)
	router := newRouter(backend.NewStatusService(db, createArtifacts(t)))

	rec := get(router, "/models/job-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var models []api.AnomalyModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 2)

	assert.Equal(t, "abod", models[0].Algorithm)
	assert.Equal(t, "SUCCEEDED", models[0].TrainingStatus)
	require.NotNil(t, models[0].MeanNormal)
	assert.Equal(t, "0.124", *models[0].MeanNormal)
	require.NotNil(t, models[0].StdNormal)
	assert.Equal(t, "1.500", *models[0].StdNormal)
	assert.Equal(t, "anomaly/anomaly/model/job-1_abod", models[0].ModelArtifactRef)
	require.NotNil(t, models[0].CompletionTime)
	assert.True(t, completed.Equal(*models[0].CompletionTime))

	assert.Equal(t, "iforest", models[1].Algorithm)
	assert.Equal(t, "PENDING", models[1].TrainingStatus)
	assert.Nil(t, models[1].MeanNormal)
	assert.Nil(t, models[1].CompletionTime)

	rec = get(router, "/models/job-1?status=succeeded")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "m-1", models[0].Guid)

	rec = get(router, "/models/job-1?algorithm=iforest")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "m-2", models[0].Guid)

	rec = get(router, "/models/job-404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListErrors(t *testing.T) {
	db := createDB(t,
		&database.TrainingError{
			ErrorId:   uuid.New(),
			JobGuid:   "job-1",
			Algorithm: "knn",
			Kind:      "FittingFailed",
			Error:     "FittingFailed: detector fit failed",
			Details:   datatypes.JSON(`{"stage":"RUNNING_ALGO","percentage":50}`),
			Timestamp: time.Now().UTC(),
		},
	)
	router := newRouter(backend.NewStatusService(db, createArtifacts(t)))

	rec := get(router, "/models/job-1/errors")
	require.Equal(t, http.StatusOK, rec.Code)

	var errs []api.TrainingError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "FittingFailed", errs[0].Kind)
	assert.Equal(t, "knn", errs[0].Algorithm)
	assert.Equal(t, "RUNNING_ALGO", errs[0].Details["stage"])
	assert.Equal(t, float64(50), errs[0].Details["percentage"])

	rec = get(router, "/models/job-2/errors")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errs))
	assert.Empty(t, errs)
}

package database

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	apperrors "anomaly-trainer/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func createDB(t *testing.T, create ...any) *gorm.DB {
	db, err := NewDatabase("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { Close(db) })

	require.NoError(t, GetMigrator(db).Migrate())

	for _, c := range create {
		require.NoError(t, db.Create(c).Error)
	}

	return db
}

func TestGetModelMetadata(t *testing.T) {
	db := createDB(t, &PredictiveModel{
		Guid:           "job-1",
		Plant:          "P100",
		NodeId:         "N7",
		NodeParameters: datatypes.JSON(`{"sensor":"temp"}`),
	})
	ctx := context.Background()

	metadata, err := GetModelMetadata(ctx, db, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "P100", metadata.Plant)
	assert.Equal(t, "N7", metadata.NodeId)
	assert.JSONEq(t, `{"sensor":"temp"}`, metadata.NodeParameters)

	_, err = GetModelMetadata(ctx, db, "job-2")
	assert.ErrorIs(t, err, apperrors.ConfigInvalid)
}

func TestResolveAlgorithmGuid(t *testing.T) {
	db := createDB(t,
		&AnomalyModel{Guid: "m-1", AnomalyGuid: "job-1", Algorithm: "iforest", TrainingStatus: StatusPending},
		&AnomalyModel{Guid: "m-2", AnomalyGuid: "job-1", Algorithm: "abod", TrainingStatus: StatusPending},
		&AnomalyModel{Guid: "m-3", AnomalyGuid: "job-2", Algorithm: "iforest", TrainingStatus: StatusPending},
	)
	ctx := context.Background()

	guid, err := ResolveAlgorithmGuid(ctx, db, "job-1", "abod")
	require.NoError(t, err)
	assert.Equal(t, "m-2", guid)

	guid, err = ResolveAlgorithmGuid(ctx, db, "job-2", "iforest")
	require.NoError(t, err)
	assert.Equal(t, "m-3", guid)

	_, err = ResolveAlgorithmGuid(ctx, db, "job-2", "knn")
	assert.ErrorIs(t, err, apperrors.UnknownAlgorithmRun)
}

func TestUpdateTrainingStatus(t *testing.T) {
	db := createDB(t, &AnomalyModel{Guid: "m-1", AnomalyGuid: "job-1", Algorithm: "iforest", TrainingStatus: StatusPending})
	ctx := context.Background()

	require.NoError(t, UpdateTrainingStatus(ctx, db, "m-1", StatusRunning))
	model, err := GetAnomalyModel(ctx, db, "m-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, model.TrainingStatus)
	assert.False(t, model.CompletionTime.Valid)

	require.NoError(t, UpdateTrainingStatus(ctx, db, "m-1", StatusFailed))
	model, err = GetAnomalyModel(ctx, db, "m-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, model.TrainingStatus)
	assert.True(t, model.CompletionTime.Valid)

	err = UpdateTrainingStatus(ctx, db, "m-404", StatusRunning)
	assert.ErrorIs(t, err, apperrors.UnknownAlgorithmRun)
}

func TestCommitStatistics(t *testing.T) {
	db := createDB(t, &AnomalyModel{Guid: "m-1", AnomalyGuid: "job-1", Algorithm: "iforest", TrainingStatus: StatusRunning})
	ctx := context.Background()

	mean := decimal.RequireFromString("0.412")
	std := decimal.RequireFromString("2.501")

	for i := 0; i < 2; i++ {
		require.NoError(t, CommitStatistics(ctx, db, "m-1", mean, std, "anomaly/anomaly/model/job-1_iforest"))

		model, err := GetAnomalyModel(ctx, db, "m-1")
		require.NoError(t, err)
		assert.Equal(t, StatusSucceeded, model.TrainingStatus)
		require.True(t, model.AnomalyMeanNormal.Valid)
		require.True(t, model.AnomalyStdNormal.Valid)
		assert.True(t, mean.Equal(model.AnomalyMeanNormal.Decimal), "mean %s", model.AnomalyMeanNormal.Decimal)
		assert.True(t, std.Equal(model.AnomalyStdNormal.Decimal), "std %s", model.AnomalyStdNormal.Decimal)
		assert.Equal(t, "anomaly/anomaly/model/job-1_iforest", model.ModelArtifactRef.String)
	}

	var count int64
	require.NoError(t, db.Model(&AnomalyModel{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	err := CommitStatistics(ctx, db, "m-404", mean, std, "ref")
	assert.ErrorIs(t, err, apperrors.UnknownAlgorithmRun)
}

func TestSaveTrainingError(t *testing.T) {
	db := createDB(t)
	ctx := context.Background()

	SaveTrainingError(ctx, db, "job-1", "abod", string(apperrors.FittingFailed), "fit exploded", map[string]any{"stage": "RUNNING_ALGO", "percentage": 50.0})

	errs, err := GetTrainingErrors(ctx, db, "job-1")
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.NotEqual(t, uuid.Nil, errs[0].ErrorId)
	assert.Equal(t, "abod", errs[0].Algorithm)
	assert.Equal(t, "FittingFailed", errs[0].Kind)
	assert.Equal(t, "fit exploded", errs[0].Error)

	var details map[string]any
	require.NoError(t, json.Unmarshal(errs[0].Details, &details))
	assert.Equal(t, "RUNNING_ALGO", details["stage"])
	assert.Equal(t, 50.0, details["percentage"])
}

func TestStatusName(t *testing.T) {
	assert.Equal(t, "PENDING", StatusName(StatusPending))
	assert.Equal(t, "SUCCEEDED", StatusName(StatusSucceeded))
	assert.Equal(t, "UNKNOWN", StatusName(99))
}

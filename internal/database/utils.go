package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "anomaly-trainer/internal/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ModelMetadata struct {
	Plant          string
	NodeId         string
	NodeParameters string
}

// GetModelMetadata reads the identifiers a job was provisioned with.
func GetModelMetadata(ctx context.Context, db *gorm.DB, jobGuid string) (ModelMetadata, error) {
	var model PredictiveModel
	if err := db.WithContext(ctx).Where("guid = ?", jobGuid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ModelMetadata{}, apperrors.Newf(apperrors.ConfigInvalid, "no predictive model provisioned for job %s", jobGuid)
		}
		return ModelMetadata{}, fmt.Errorf("error querying model metadata: %w", err)
	}

	return ModelMetadata{Plant: model.Plant, NodeId: model.NodeId, NodeParameters: string(model.NodeParameters)}, nil
}

// ResolveAlgorithmGuid returns the guid of the row provisioned for one
// algorithm of a job.
func ResolveAlgorithmGuid(ctx context.Context, db *gorm.DB, jobGuid, algorithm string) (string, error) {
	var model AnomalyModel
	err := db.WithContext(ctx).
		Where("anomaly_guid = ? AND algorithm = ?", jobGuid, algorithm).
		Order("guid").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperrors.Newf(apperrors.UnknownAlgorithmRun, "no model row for job %s algorithm %s", jobGuid, algorithm)
		}
		return "", fmt.Errorf("error resolving model guid for job %s algorithm %s: %w", jobGuid, algorithm, err)
	}
	return model.Guid, nil
}

func GetAnomalyModel(ctx context.Context, db *gorm.DB, modelGuid string) (AnomalyModel, error) {
	var model AnomalyModel
	if err := db.WithContext(ctx).Where("guid = ?", modelGuid).First(&model).Error; err != nil {
		return AnomalyModel{}, fmt.Errorf("error getting model %s: %w", modelGuid, err)
	}
	return model, nil
}

func ListAnomalyModels(ctx context.Context, db *gorm.DB, jobGuid string) ([]AnomalyModel, error) {
	var models []AnomalyModel
	if err := db.WithContext(ctx).Where("anomaly_guid = ?", jobGuid).Order("algorithm").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("error listing models for job %s: %w", jobGuid, err)
	}
	return models, nil
}

func UpdateTrainingStatus(ctx context.Context, txn *gorm.DB, modelGuid string, status int) error {
	updates := map[string]any{"training_status": status}
	if status == StatusSucceeded || status == StatusFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	result := txn.WithContext(ctx).Model(&AnomalyModel{Guid: modelGuid}).Updates(updates)
	if result.Error != nil {
		slog.Error("error updating training status", "model_guid", modelGuid, "status", StatusName(status), "error", result.Error)
		return apperrors.Wrapf(apperrors.PersistenceFailed, result.Error, "error updating status of model %s", modelGuid)
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.UnknownAlgorithmRun, "model %s does not exist", modelGuid)
	}
	return nil
}

// CommitStatistics marks a model row SUCCEEDED together with its statistics
// and artifact reference in a single transaction.
func CommitStatistics(ctx context.Context, db *gorm.DB, modelGuid string, mean, std decimal.Decimal, artifactRef string) error {
	return db.WithContext(ctx).Transaction(func(txn *gorm.DB) error {
		result := txn.Model(&AnomalyModel{Guid: modelGuid}).Updates(map[string]any{
			"training_status":     StatusSucceeded,
			"anomaly_mean_normal": mean,
			"anomaly_std_normal":  std,
			"model_artifact_ref":  artifactRef,
			"completion_time":     time.Now().UTC(),
		})
		if result.Error != nil {
			return apperrors.Wrapf(apperrors.PersistenceFailed, result.Error, "error committing statistics of model %s", modelGuid)
		}
		if result.RowsAffected != 1 {
			return apperrors.Newf(apperrors.UnknownAlgorithmRun, "expected to update one row for model %s, updated %d", modelGuid, result.RowsAffected)
		}
		return nil
	})
}

func SaveTrainingError(ctx context.Context, db *gorm.DB, jobGuid, algorithm, kind, message string, details map[string]any) {
	detailsJson, err := json.Marshal(details)
	if err != nil {
		slog.Error("error encoding training error details", "job_guid", jobGuid, "error", err)
		detailsJson = []byte("{}")
	}

	trainingError := TrainingError{
		ErrorId:   uuid.New(),
		JobGuid:   jobGuid,
		Algorithm: algorithm,
		Kind:      kind,
		Error:     message,
		Details:   datatypes.JSON(detailsJson),
		Timestamp: time.Now().UTC(),
	}

	if err := db.WithContext(ctx).Create(&trainingError).Error; err != nil {
		slog.Error("error saving training error", "job_guid", jobGuid, "error", err)
	}
}

func GetTrainingErrors(ctx context.Context, db *gorm.DB, jobGuid string) ([]TrainingError, error) {
	var errs []TrainingError
	if err := db.WithContext(ctx).Where("job_guid = ?", jobGuid).Order("timestamp").Find(&errs).Error; err != nil {
		return nil, fmt.Errorf("error listing training errors for job %s: %w", jobGuid, err)
	}
	return errs, nil
}

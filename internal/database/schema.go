package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Training status codes stored in predictive_analytics_anomaly_models. The
// numeric values are shared with the provisioning service and the dashboards
// reading the table.
const (
	StatusPending   int = 1
	StatusRunning   int = 2
	StatusFailed    int = 3
	StatusSucceeded int = 4
)

func StatusName(status int) string {
	switch status {
	case StatusPending:
		return "PENDING"
	case StatusRunning:
		return "RUNNING"
	case StatusFailed:
		return "FAILED"
	case StatusSucceeded:
		return "SUCCEEDED"
	default:
		return "UNKNOWN"
	}
}

// PredictiveModel is the job-level row created by the provisioning step.
type PredictiveModel struct {
	Guid           string `gorm:"size:64;primaryKey"`
	Plant          string `gorm:"size:64"`
	NodeId         string `gorm:"size:64"`
	NodeParameters datatypes.JSON
	CreationTime   time.Time
}

func (PredictiveModel) TableName() string {
	return "predictive_analytics_models"
}

// AnomalyModel is the per-algorithm row of a job. Guid is the model guid, and
// (AnomalyGuid, Algorithm) identifies the algorithm run.
type AnomalyModel struct {
	Guid        string `gorm:"size:64;primaryKey"`
	AnomalyGuid string `gorm:"size:64;not null;index:idx_anomaly_algorithm"`
	Algorithm   string `gorm:"size:32;not null;index:idx_anomaly_algorithm"`

	TrainingStatus    int                 `gorm:"not null;default:1"`
	AnomalyMeanNormal decimal.NullDecimal `gorm:"type:numeric(18,3)"`
	AnomalyStdNormal  decimal.NullDecimal `gorm:"type:numeric(18,3)"`
	ModelArtifactRef  sql.NullString
	CompletionTime    sql.NullTime
}

func (AnomalyModel) TableName() string {
	return "predictive_analytics_anomaly_models"
}

type TrainingError struct {
	ErrorId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobGuid   string    `gorm:"size:64;index;not null"`
	Algorithm string    `gorm:"size:32"`
	Kind      string    `gorm:"size:40"`
	Error     string
	Details   datatypes.JSON
	Timestamp time.Time
}

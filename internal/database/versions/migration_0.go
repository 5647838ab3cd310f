package versions

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

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

type AnomalyModel struct {
	Guid              string  `gorm:"size:64;primaryKey"`
	AnomalyGuid       string  `gorm:"size:64;not null;index:idx_anomaly_algorithm"`
	Algorithm         string  `gorm:"size:32;not null;index:idx_anomaly_algorithm"`
	TrainingStatus    int     `gorm:"not null;default:1"`
	AnomalyMeanNormal float64 `gorm:"type:numeric(18,3)"`
	AnomalyStdNormal  float64 `gorm:"type:numeric(18,3)"`
}

func (AnomalyModel) TableName() string {
	return "predictive_analytics_anomaly_models"
}

func Migration(db *gorm.DB) error {
	if err := db.AutoMigrate(&PredictiveModel{}, &AnomalyModel{}); err != nil {
		return fmt.Errorf("error creating initial tables: %w", err)
	}
	return nil
}

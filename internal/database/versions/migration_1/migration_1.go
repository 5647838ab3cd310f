package migration_1

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

type AnomalyModel struct {
	ModelArtifactRef sql.NullString
	CompletionTime   sql.NullTime
}

func (AnomalyModel) TableName() string {
	return "predictive_analytics_anomaly_models"
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&AnomalyModel{}, "ModelArtifactRef"); err != nil {
		return fmt.Errorf("error adding ModelArtifactRef column: %w", err)
	}
	if err := db.Migrator().AddColumn(&AnomalyModel{}, "CompletionTime"); err != nil {
		return fmt.Errorf("error adding CompletionTime column: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&AnomalyModel{}, "ModelArtifactRef"); err != nil {
		return fmt.Errorf("error dropping ModelArtifactRef column: %w", err)
	}
	if err := db.Migrator().DropColumn(&AnomalyModel{}, "CompletionTime"); err != nil {
		return fmt.Errorf("error dropping CompletionTime column: %w", err)
	}
	return nil
}

package database

import (
	"log/slog"

	"anomaly-trainer/internal/database/versions"
	"anomaly-trainer/internal/database/versions/migration_1"
	"anomaly-trainer/internal/database/versions/migration_2"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:      "0",
			Migrate: versions.Migration,
		},
		{
			ID:       "1",
			Migrate:  migration_1.Migration,
			Rollback: migration_1.Rollback,
		},
		{
			ID:       "2",
			Migrate:  migration_2.Migration,
			Rollback: migration_2.Rollback,
		},
	})

	migrator.InitSchema(func(txn *gorm.DB) error {
		// Run by the migrator when no previous migration is recorded, creating the
		// latest schema directly instead of replaying every migration.
		slog.Info("clean database detected, running full schema initialization")

		return txn.AutoMigrate(&PredictiveModel{}, &AnomalyModel{}, &TrainingError{})
	})

	return migrator
}

package migration_2

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type TrainingError struct {
	ErrorId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobGuid   string    `gorm:"size:64;index;not null"`
	Algorithm string    `gorm:"size:32"`
	Kind      string    `gorm:"size:40"`
	Error     string
	Details   datatypes.JSON
	Timestamp time.Time
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().CreateTable(&TrainingError{}); err != nil {
		return fmt.Errorf("error creating training_errors table: %w", err)
	}
	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&TrainingError{}); err != nil {
		return fmt.Errorf("error dropping training_errors table: %w", err)
	}
	return nil
}

package database

import (
	"fmt"
	"strings"

	"github.com/kiroku/backend/internal/config"
	"github.com/kiroku/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	if err := addConstraints(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate is shared with the test harness, which runs it against an
// in-memory sqlite database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Activity{},
		&models.Group{},
		&models.GroupMember{},
		&models.GroupCategory{},
		&models.GroupSharedActivity{},
		&models.GroupMessage{},
	)
}

// IsUniqueViolation matches both postgres (deployment) and sqlite (tests)
// unique constraint errors. Writes that race past a pre-check lean on the
// unique index and translate this into a conflict.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "unique constraint")
}

func addConstraints(db *gorm.DB) error {
	constraint := `
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1
    FROM pg_constraint
    WHERE conname = 'activity_mood_check'
  ) THEN
    ALTER TABLE activities
    ADD CONSTRAINT activity_mood_check
    CHECK (mood >= 1 AND mood <= 5 AND duration_minutes > 0);
  END IF;
END $$;`

	return db.Exec(constraint).Error
}

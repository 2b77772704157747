package services

import (
	"context"

	"github.com/kiroku/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncStatus string

const (
	SyncStatusSynced SyncStatus = "synced"
	SyncStatusFailed SyncStatus = "failed"
)

// SyncOutcome makes the best-effort contract explicit: a failed sync is a
// value the caller chooses to ignore, never an error that blocks a join.
type SyncOutcome struct {
	Status       SyncStatus `json:"status"`
	CreatedCount int        `json:"createdCount"`
	Reason       string     `json:"reason,omitempty"`
}

type CategorySyncService struct {
	DB *gorm.DB
}

func NewCategorySyncService(db *gorm.DB) *CategorySyncService {
	return &CategorySyncService{DB: db}
}

// Sync copies the group's shared category definitions into the new
// member's personal list. The group declaration stores only names, so the
// owner's personal rows are the source of truth for emoji and color. New
// rows are appended after the member's current maximum sortOrder, in the
// group's declaration order, leaving the member's existing ordering alone.
func (s *CategorySyncService) Sync(ctx context.Context, groupID, ownerID, newMemberID uuid.UUID) SyncOutcome {
	var declared []models.GroupCategory
	if err := s.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("position ASC").
		Find(&declared).Error; err != nil {
		return SyncOutcome{Status: SyncStatusFailed, Reason: err.Error()}
	}
	if len(declared) == 0 {
		return SyncOutcome{Status: SyncStatusSynced}
	}

	names := make([]string, 0, len(declared))
	for _, row := range declared {
		names = append(names, row.CategoryName)
	}

	var ownerCategories []models.Category
	if err := s.DB.WithContext(ctx).
		Where("user_id = ? AND name IN ?", ownerID, names).
		Find(&ownerCategories).Error; err != nil {
		return SyncOutcome{Status: SyncStatusFailed, Reason: err.Error()}
	}
	ownerByName := make(map[string]models.Category, len(ownerCategories))
	for _, category := range ownerCategories {
		ownerByName[category.Name] = category
	}

	var existing []models.Category
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", newMemberID).
		Find(&existing).Error; err != nil {
		return SyncOutcome{Status: SyncStatusFailed, Reason: err.Error()}
	}
	memberHas := make(map[string]bool, len(existing))
	maxSort := 0
	for _, category := range existing {
		memberHas[category.Name] = true
		if category.SortOrder > maxSort {
			maxSort = category.SortOrder
		}
	}

	created := 0
	for _, name := range names {
		if memberHas[name] {
			continue
		}
		source, ok := ownerByName[name]
		if !ok {
			// The owner deleted their own copy; nothing to mirror.
			continue
		}

		maxSort++
		row := models.Category{
			UserID:    newMemberID,
			Name:      source.Name,
			Emoji:     source.Emoji,
			Color:     source.Color,
			IsDefault: false,
			SortOrder: maxSort,
		}
		if err := s.DB.WithContext(ctx).Create(&row).Error; err != nil {
			return SyncOutcome{Status: SyncStatusFailed, CreatedCount: created, Reason: err.Error()}
		}
		created++
	}

	return SyncOutcome{Status: SyncStatusSynced, CreatedCount: created}
}

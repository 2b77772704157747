package services

import (
	"context"
	"sync"
	"testing"

	"github.com/kiroku/backend/internal/database"
	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var serviceTestSetup sync.Once

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	serviceTestSetup.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email, username, uniqueID string) *models.User {
	t.Helper()

	user := &models.User{
		Email:        email,
		PasswordHash: "irrelevant",
		Username:     username,
		UniqueID:     uniqueID,
		AvatarEmoji:  "😀",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	return user
}

func seedCategory(t *testing.T, db *gorm.DB, user *models.User, name, emoji, color string, sortOrder int) *models.Category {
	t.Helper()

	category := &models.Category{
		UserID:    user.ID,
		Name:      name,
		Emoji:     emoji,
		Color:     color,
		SortOrder: sortOrder,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed creating category: %v", err)
	}
	return category
}

func seedActivity(t *testing.T, db *gorm.DB, user *models.User, category, date string, minutes, mood int) *models.Activity {
	t.Helper()

	activity := &models.Activity{
		UserID:          user.ID,
		Title:           category + " session",
		Category:        category,
		DurationMinutes: minutes,
		Mood:            mood,
		Date:            date,
	}
	if err := db.Create(activity).Error; err != nil {
		t.Fatalf("failed creating activity: %v", err)
	}
	return activity
}

func newGroupStack(db *gorm.DB) (*GroupService, *SharingService, *RankingService, *ChatService) {
	syncService := NewCategorySyncService(db)
	groups := NewGroupService(db, syncService)
	return groups, NewSharingService(db, groups), NewRankingService(db, groups), NewChatService(db, groups)
}

func mustCreateGroup(t *testing.T, groups *GroupService, owner *models.User, name string, categories []string) *models.Group {
	t.Helper()

	group, err := groups.Create(context.Background(), owner.ID, CreateGroupInput{
		Name:             name,
		SharedCategories: categories,
	})
	if err != nil {
		t.Fatalf("failed creating group: %v", err)
	}
	return group
}

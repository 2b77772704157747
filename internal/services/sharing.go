package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/apperr"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SharingService gatekeeps which activities may enter a group: the caller
// must own the activity, be a member of the group, and the activity's
// category must be in the group's current shared set.
type SharingService struct {
	DB     *gorm.DB
	Groups *GroupService
}

func NewSharingService(db *gorm.DB, groups *GroupService) *SharingService {
	return &SharingService{DB: db, Groups: groups}
}

type SharedActivityFilters struct {
	From     string
	To       string
	Category string
	MemberID *uuid.UUID
}

// SharedActivityView joins a share row with the activity snapshot and the
// sharing member's display identity.
type SharedActivityView struct {
	ShareID  uuid.UUID              `json:"shareID"`
	SharedAt string                 `json:"sharedAt"`
	Activity models.Activity        `json:"activity"`
	SharedBy models.DisplayIdentity `json:"sharedBy"`
}

func (s *SharingService) Share(ctx context.Context, userID, activityID, groupID uuid.UUID) (*models.GroupSharedActivity, error) {
	activity, err := s.ownedActivity(ctx, userID, activityID)
	if err != nil {
		return nil, err
	}

	if _, err := s.Groups.requireMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	allowed, err := s.Groups.sharedCategoryNames(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !containsName(allowed, activity.Category) {
		return nil, apperr.Validationf(
			"category %q is not shared in this group (allowed: %s)",
			activity.Category, strings.Join(allowed, ", "),
		)
	}

	var existing models.GroupSharedActivity
	err = s.DB.WithContext(ctx).
		First(&existing, "group_id = ? AND activity_id = ?", groupID, activityID).Error
	if err == nil {
		return nil, apperr.Conflict("activity is already shared to this group")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	share := models.GroupSharedActivity{
		GroupID:    groupID,
		ActivityID: activityID,
	}
	if err := s.DB.WithContext(ctx).Create(&share).Error; err != nil {
		// Concurrent share of the same pair: the unique index decides.
		if isUniqueViolation(err) {
			return nil, apperr.Conflict("activity is already shared to this group")
		}
		return nil, err
	}
	return &share, nil
}

func (s *SharingService) Unshare(ctx context.Context, userID, activityID, groupID uuid.UUID) error {
	if _, err := s.ownedActivity(ctx, userID, activityID); err != nil {
		return err
	}

	result := s.DB.WithContext(ctx).
		Where("group_id = ? AND activity_id = ?", groupID, activityID).
		Delete(&models.GroupSharedActivity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperr.Validation("activity is not shared to this group")
	}
	return nil
}

func (s *SharingService) ListShared(ctx context.Context, callerID, groupID uuid.UUID, filters SharedActivityFilters) ([]SharedActivityView, error) {
	if _, err := s.Groups.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	query := s.DB.WithContext(ctx).
		Model(&models.GroupSharedActivity{}).
		Select("group_shared_activities.*").
		Joins("JOIN activities ON activities.id = group_shared_activities.activity_id").
		Where("group_shared_activities.group_id = ?", groupID)

	if filters.From != "" {
		query = query.Where("activities.date >= ?", filters.From)
	}
	if filters.To != "" {
		query = query.Where("activities.date <= ?", filters.To)
	}
	if filters.Category != "" {
		query = query.Where("activities.category = ?", filters.Category)
	}
	if filters.MemberID != nil {
		query = query.Where("activities.user_id = ?", *filters.MemberID)
	}

	var shares []models.GroupSharedActivity
	if err := query.
		Preload("Activity").
		Order("activities.date DESC, activities.created_at DESC").
		Find(&shares).Error; err != nil {
		return nil, err
	}

	identities, err := s.displayIdentities(ctx, shares)
	if err != nil {
		return nil, err
	}

	views := make([]SharedActivityView, 0, len(shares))
	for _, share := range shares {
		views = append(views, SharedActivityView{
			ShareID:  share.ID,
			SharedAt: share.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Activity: share.Activity,
			SharedBy: identities[share.Activity.UserID],
		})
	}
	return views, nil
}

// GroupsForActivity lists the groups an owned activity is currently shared
// into, most recently shared first.
func (s *SharingService) GroupsForActivity(ctx context.Context, callerID, activityID uuid.UUID) ([]models.Group, error) {
	if _, err := s.ownedActivity(ctx, callerID, activityID); err != nil {
		return nil, err
	}

	var groups []models.Group
	err := s.DB.WithContext(ctx).
		Model(&models.Group{}).
		Select("groups.*").
		Joins("JOIN group_shared_activities ON group_shared_activities.group_id = groups.id").
		Where("group_shared_activities.activity_id = ?", activityID).
		Order("group_shared_activities.created_at DESC").
		Find(&groups).Error
	return groups, err
}

func (s *SharingService) ownedActivity(ctx context.Context, userID, activityID uuid.UUID) (*models.Activity, error) {
	var activity models.Activity
	if err := s.DB.WithContext(ctx).First(&activity, "id = ?", activityID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("activity not found")
		}
		return nil, err
	}
	if activity.UserID != userID {
		return nil, apperr.Forbidden("only the activity owner can do this")
	}
	return &activity, nil
}

func (s *SharingService) displayIdentities(ctx context.Context, shares []models.GroupSharedActivity) (map[uuid.UUID]models.DisplayIdentity, error) {
	ids := make([]uuid.UUID, 0, len(shares))
	seen := map[uuid.UUID]bool{}
	for _, share := range shares {
		if !seen[share.Activity.UserID] {
			seen[share.Activity.UserID] = true
			ids = append(ids, share.Activity.UserID)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]models.DisplayIdentity{}, nil
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}

	identities := make(map[uuid.UUID]models.DisplayIdentity, len(users))
	for _, user := range users {
		identities[user.ID] = user.Display()
	}
	return identities, nil
}

func containsName(names []string, target string) bool {
	for _, name := range names {
		if name == target {
			return true
		}
	}
	return false
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/kiroku/backend/internal/database"
	"github.com/kiroku/backend/internal/models"
	"github.com/kiroku/backend/pkg/apperr"
	"github.com/kiroku/backend/pkg/invite"
	"github.com/kiroku/backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const inviteCodeAttempts = 5

type GroupService struct {
	DB   *gorm.DB
	Sync *CategorySyncService
}

func NewGroupService(db *gorm.DB, sync *CategorySyncService) *GroupService {
	return &GroupService{DB: db, Sync: sync}
}

type CreateGroupInput struct {
	Name             string
	Description      *string
	SharedCategories []string
}

type UpdateGroupInput struct {
	Name        *string
	Description *string
}

// GroupDetail is the full member-facing view of a group.
type GroupDetail struct {
	Group               models.Group            `json:"group"`
	Members             []GroupMemberView       `json:"members"`
	SharedCategories    []string                `json:"sharedCategories"`
	MemberCount         int                     `json:"memberCount"`
	SharedActivityCount int64                   `json:"sharedActivityCount"`
}

type GroupMemberView struct {
	User     models.DisplayIdentity `json:"user"`
	Role     models.GroupMemberRole `json:"role"`
	JoinedAt string                 `json:"joinedAt"`
}

// GroupPreview is the pre-join view resolved from an invite code. It leaks
// nothing beyond what a join confirmation screen needs.
type GroupPreview struct {
	Name        string                 `json:"name"`
	Description *string                `json:"description,omitempty"`
	Owner       models.DisplayIdentity `json:"owner"`
	MemberCount int                    `json:"memberCount"`
}

func (s *GroupService) Create(ctx context.Context, ownerID uuid.UUID, in CreateGroupInput) (*models.Group, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || len([]rune(name)) > 100 {
		return nil, apperr.Validation("group name must be between 1 and 100 characters")
	}

	categories := normalizeCategoryNames(in.SharedCategories)
	if len(categories) == 0 {
		return nil, apperr.Validation("at least one shared category is required")
	}

	group := models.Group{
		Name:        name,
		Description: in.Description,
		OwnerID:     ownerID,
	}

	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		group.InviteCode, err = invite.NewCode()
		if err != nil {
			return nil, err
		}

		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&group).Error; err != nil {
				return err
			}

			member := models.GroupMember{
				GroupID: group.ID,
				UserID:  ownerID,
				Role:    models.GroupRoleOwner,
			}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}

			for position, categoryName := range categories {
				row := models.GroupCategory{
					GroupID:      group.ID,
					CategoryName: categoryName,
					Position:     position,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			return &group, nil
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		// Invite code collided with an existing group; reroll.
		group.ID = uuid.Nil
	}
	return nil, err
}

func (s *GroupService) Get(ctx context.Context, groupID, callerID uuid.UUID) (*GroupDetail, error) {
	// Look the group up before gating on membership: a deleted group has
	// no membership rows left, so gating first would misreport a missing
	// group as forbidden.
	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("group not found")
		}
		return nil, err
	}

	if _, err := s.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	var members []models.GroupMember
	if err := s.DB.WithContext(ctx).
		Preload("User").
		Where("group_id = ?", groupID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, err
	}

	categories, err := s.sharedCategoryNames(ctx, groupID)
	if err != nil {
		return nil, err
	}

	var shareCount int64
	if err := s.DB.WithContext(ctx).
		Model(&models.GroupSharedActivity{}).
		Where("group_id = ?", groupID).
		Count(&shareCount).Error; err != nil {
		return nil, err
	}

	detail := &GroupDetail{
		Group:               group,
		SharedCategories:    categories,
		MemberCount:         len(members),
		SharedActivityCount: shareCount,
	}
	for _, member := range members {
		detail.Members = append(detail.Members, GroupMemberView{
			User:     member.User.Display(),
			Role:     member.Role,
			JoinedAt: member.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return detail, nil
}

func (s *GroupService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Group, error) {
	var groups []models.Group
	err := s.DB.WithContext(ctx).
		Model(&models.Group{}).
		Select("groups.*").
		Joins("JOIN group_members ON group_members.group_id = groups.id").
		Where("group_members.user_id = ?", userID).
		Order("groups.created_at DESC").
		Find(&groups).Error
	return groups, err
}

func (s *GroupService) PreviewByCode(ctx context.Context, code string) (*GroupPreview, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, apperr.NotFound("invite code not found")
	}

	var group models.Group
	if err := s.DB.WithContext(ctx).Preload("Owner").First(&group, "invite_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invite code not found")
		}
		return nil, err
	}

	var memberCount int64
	if err := s.DB.WithContext(ctx).
		Model(&models.GroupMember{}).
		Where("group_id = ?", group.ID).
		Count(&memberCount).Error; err != nil {
		return nil, err
	}

	return &GroupPreview{
		Name:        group.Name,
		Description: group.Description,
		Owner:       group.Owner.Display(),
		MemberCount: int(memberCount),
	}, nil
}

func (s *GroupService) Update(ctx context.Context, groupID, callerID uuid.UUID, in UpdateGroupInput) (*models.Group, error) {
	if _, err := s.requireOwner(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" || len([]rune(name)) > 100 {
			return nil, apperr.Validation("group name must be between 1 and 100 characters")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		if trimmed == "" {
			updates["description"] = nil
		} else {
			updates["description"] = trimmed
		}
	}

	if len(updates) == 0 {
		return nil, apperr.Validation("no valid fields to update")
	}

	if err := s.DB.WithContext(ctx).
		Model(&models.Group{}).
		Where("id = ?", groupID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	var updated models.Group
	if err := s.DB.WithContext(ctx).First(&updated, "id = ?", groupID).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateSharedCategories replaces the declaration set wholesale inside one
// transaction. Existing shares are deliberately untouched: removing a name
// stops future shares, never unshares history.
func (s *GroupService) UpdateSharedCategories(ctx context.Context, groupID, callerID uuid.UUID, names []string) ([]string, error) {
	if _, err := s.requireOwner(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	categories := normalizeCategoryNames(names)
	if len(categories) == 0 {
		return nil, apperr.Validation("at least one shared category is required")
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupCategory{}).Error; err != nil {
			return err
		}
		for position, categoryName := range categories {
			row := models.GroupCategory{
				GroupID:      groupID,
				CategoryName: categoryName,
				Position:     position,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (s *GroupService) Delete(ctx context.Context, groupID, callerID uuid.UUID) error {
	if _, err := s.requireOwner(ctx, groupID, callerID); err != nil {
		return err
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupSharedActivity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Group{}, "id = ?", groupID).Error
	})
}

// JoinByCode inserts the membership, then runs best-effort category sync.
// A failed sync never fails the join; the outcome is surfaced so callers
// can log or display it.
func (s *GroupService) JoinByCode(ctx context.Context, code string, userID uuid.UUID) (*models.Group, SyncOutcome, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "invite_code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, SyncOutcome{}, apperr.NotFound("invite code not found")
		}
		return nil, SyncOutcome{}, err
	}

	outcome, err := s.addMember(ctx, &group, userID)
	if err != nil {
		return nil, SyncOutcome{}, err
	}
	return &group, outcome, nil
}

// InviteByIdentity resolves a uniqueId handle to a user and adds them,
// with the same membership+sync effect as a code join.
func (s *GroupService) InviteByIdentity(ctx context.Context, groupID, callerID uuid.UUID, targetUniqueID string) (*models.User, SyncOutcome, error) {
	if _, err := s.requireOwner(ctx, groupID, callerID); err != nil {
		return nil, SyncOutcome{}, err
	}

	var group models.Group
	if err := s.DB.WithContext(ctx).First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, SyncOutcome{}, apperr.NotFound("group not found")
		}
		return nil, SyncOutcome{}, err
	}

	var target models.User
	err := s.DB.WithContext(ctx).First(&target, "unique_id = ?", strings.TrimSpace(targetUniqueID)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, SyncOutcome{}, apperr.NotFound("user not found")
		}
		return nil, SyncOutcome{}, err
	}

	outcome, err := s.addMember(ctx, &group, target.ID)
	if err != nil {
		return nil, SyncOutcome{}, err
	}
	return &target, outcome, nil
}

func (s *GroupService) addMember(ctx context.Context, group *models.Group, userID uuid.UUID) (SyncOutcome, error) {
	if _, err := s.membership(ctx, group.ID, userID); err == nil {
		return SyncOutcome{}, apperr.Conflict("user is already a member of this group")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return SyncOutcome{}, err
	}

	member := models.GroupMember{
		GroupID: group.ID,
		UserID:  userID,
		Role:    models.GroupRoleMember,
	}
	if err := s.DB.WithContext(ctx).Create(&member).Error; err != nil {
		// The unique index is the authority under concurrent joins.
		if isUniqueViolation(err) {
			return SyncOutcome{}, apperr.Conflict("user is already a member of this group")
		}
		return SyncOutcome{}, err
	}

	outcome := s.Sync.Sync(ctx, group.ID, group.OwnerID, userID)
	if outcome.Status == SyncStatusFailed {
		logger.WarnWithUser(userID.String(), "category_sync_failed", map[string]interface{}{
			"group_id": group.ID.String(),
			"reason":   outcome.Reason,
		})
	}
	return outcome, nil
}

func (s *GroupService) Leave(ctx context.Context, groupID, callerID uuid.UUID) error {
	member, err := s.membership(ctx, groupID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("you are not a member of this group")
		}
		return err
	}
	if member.Role == models.GroupRoleOwner {
		return apperr.Validation("the owner cannot leave the group; delete it instead")
	}

	// Shares and messages the member created stay behind, orphaned but
	// intact.
	return s.DB.WithContext(ctx).Delete(&models.GroupMember{}, "id = ?", member.ID).Error
}

func (s *GroupService) RemoveMember(ctx context.Context, groupID, ownerID, targetUserID uuid.UUID) error {
	if _, err := s.requireOwner(ctx, groupID, ownerID); err != nil {
		return err
	}
	if targetUserID == ownerID {
		return apperr.Validation("the owner cannot be removed from the group")
	}

	target, err := s.membership(ctx, groupID, targetUserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("target user is not a member of this group")
		}
		return err
	}
	if target.Role == models.GroupRoleOwner {
		return apperr.Validation("the owner cannot be removed from the group")
	}

	return s.DB.WithContext(ctx).Delete(&models.GroupMember{}, "id = ?", target.ID).Error
}

// RegenerateInviteCode kills the old code immediately; there is no grace
// period for joins already holding it.
func (s *GroupService) RegenerateInviteCode(ctx context.Context, groupID, ownerID uuid.UUID) (string, error) {
	if _, err := s.requireOwner(ctx, groupID, ownerID); err != nil {
		return "", err
	}

	var err error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		var code string
		code, err = invite.NewCode()
		if err != nil {
			return "", err
		}

		err = s.DB.WithContext(ctx).
			Model(&models.Group{}).
			Where("id = ?", groupID).
			Update("invite_code", code).Error
		if err == nil {
			return code, nil
		}
		if !isUniqueViolation(err) {
			return "", err
		}
	}
	return "", err
}

func (s *GroupService) membership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	var member models.GroupMember
	err := s.DB.WithContext(ctx).First(&member, "group_id = ? AND user_id = ?", groupID, userID).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (s *GroupService) requireMember(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	member, err := s.membership(ctx, groupID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Forbidden("group access denied")
		}
		return nil, err
	}
	return member, nil
}

func (s *GroupService) requireOwner(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	member, err := s.requireMember(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != models.GroupRoleOwner {
		return nil, apperr.Forbidden("only the group owner can do this")
	}
	return member, nil
}

func (s *GroupService) sharedCategoryNames(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	var rows []models.GroupCategory
	if err := s.DB.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.CategoryName)
	}
	return names, nil
}

func normalizeCategoryNames(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, name := range names {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

func isUniqueViolation(err error) bool {
	return database.IsUniqueViolation(err)
}

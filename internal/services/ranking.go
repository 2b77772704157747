package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kiroku/backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RankingService aggregates a group's shared activities into per-member
// summaries and sorts them three ways.
type RankingService struct {
	DB     *gorm.DB
	Groups *GroupService
}

func NewRankingService(db *gorm.DB, groups *GroupService) *RankingService {
	return &RankingService{DB: db, Groups: groups}
}

type MemberSummary struct {
	UserID            uuid.UUID      `json:"userID"`
	TotalMinutes      int            `json:"totalMinutes"`
	ActivityCount     int            `json:"activityCount"`
	AverageMood       float64        `json:"averageMood"`
	CategoryBreakdown map[string]int `json:"categoryBreakdown"`
}

type RankedEntry struct {
	Rank  int                    `json:"rank"`
	User  models.DisplayIdentity `json:"user"`
	Value float64                `json:"value"`
	Label string                 `json:"label"`
}

type MemberRankings struct {
	ByDuration []RankedEntry `json:"byDuration"`
	ByCount    []RankedEntry `json:"byCount"`
	ByMood     []RankedEntry `json:"byMood"`
}

// SummarizeMembers folds the group's shared activities dated within
// [from, to] into one summary per activity owner. The mood average is
// accumulated incrementally (avg' = (avg*(n-1) + mood) / n) over a
// deterministic activity order; rounding happens only at presentation.
func (s *RankingService) SummarizeMembers(ctx context.Context, callerID, groupID uuid.UUID, from, to string) ([]MemberSummary, error) {
	if _, err := s.Groups.requireMember(ctx, groupID, callerID); err != nil {
		return nil, err
	}

	var shares []models.GroupSharedActivity
	if err := s.DB.WithContext(ctx).
		Model(&models.GroupSharedActivity{}).
		Select("group_shared_activities.*").
		Joins("JOIN activities ON activities.id = group_shared_activities.activity_id").
		Where("group_shared_activities.group_id = ?", groupID).
		Where("activities.date >= ? AND activities.date <= ?", from, to).
		Preload("Activity").
		Order("activities.date ASC, activities.created_at ASC").
		Find(&shares).Error; err != nil {
		return nil, err
	}

	byUser := map[uuid.UUID]*MemberSummary{}
	for _, share := range shares {
		activity := share.Activity
		summary, ok := byUser[activity.UserID]
		if !ok {
			summary = &MemberSummary{
				UserID:            activity.UserID,
				CategoryBreakdown: map[string]int{},
			}
			byUser[activity.UserID] = summary
		}

		summary.TotalMinutes += activity.DurationMinutes
		summary.ActivityCount++
		n := float64(summary.ActivityCount)
		summary.AverageMood = (summary.AverageMood*(n-1) + float64(activity.Mood)) / n
		summary.CategoryBreakdown[activity.Category] += activity.DurationMinutes
	}

	summaries := make([]MemberSummary, 0, len(byUser))
	for _, summary := range byUser {
		summaries = append(summaries, *summary)
	}
	// User id ascending gives the stable sorts below a deterministic
	// tie-break instead of map iteration order.
	sort.Slice(summaries, func(i, j int) bool {
		return strings.Compare(summaries[i].UserID.String(), summaries[j].UserID.String()) < 0
	})
	return summaries, nil
}

func (s *RankingService) MemberRankings(ctx context.Context, callerID, groupID uuid.UUID, from, to string) (*MemberRankings, error) {
	summaries, err := s.SummarizeMembers(ctx, callerID, groupID, from, to)
	if err != nil {
		return nil, err
	}

	identities, err := s.identitiesFor(ctx, summaries)
	if err != nil {
		return nil, err
	}

	rankings := &MemberRankings{
		ByDuration: rankBy(summaries, identities,
			func(m MemberSummary) float64 { return float64(m.TotalMinutes) },
			func(m MemberSummary) string { return fmt.Sprintf("%d分", m.TotalMinutes) },
		),
		ByCount: rankBy(summaries, identities,
			func(m MemberSummary) float64 { return float64(m.ActivityCount) },
			func(m MemberSummary) string { return fmt.Sprintf("%d回", m.ActivityCount) },
		),
		ByMood: rankBy(summaries, identities,
			func(m MemberSummary) float64 { return roundMood(m.AverageMood) },
			func(m MemberSummary) string { return fmt.Sprintf("%.1f/5", roundMood(m.AverageMood)) },
		),
	}
	return rankings, nil
}

func (s *RankingService) identitiesFor(ctx context.Context, summaries []MemberSummary) (map[uuid.UUID]models.DisplayIdentity, error) {
	if len(summaries) == 0 {
		return map[uuid.UUID]models.DisplayIdentity{}, nil
	}

	ids := make([]uuid.UUID, 0, len(summaries))
	for _, summary := range summaries {
		ids = append(ids, summary.UserID)
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

// rankBy stable-sorts descending by value and assigns 1-based ranks. Ties
// keep the input order, which SummarizeMembers fixed to user id ascending.
func rankBy(summaries []MemberSummary, identities map[uuid.UUID]models.DisplayIdentity, value func(MemberSummary) float64, label func(MemberSummary) string) []RankedEntry {
	ordered := make([]MemberSummary, len(summaries))
	copy(ordered, summaries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return value(ordered[i]) > value(ordered[j])
	})

	entries := make([]RankedEntry, 0, len(ordered))
	for i, summary := range ordered {
		entries = append(entries, RankedEntry{
			Rank:  i + 1,
			User:  identities[summary.UserID],
			Value: value(summary),
			Label: label(summary),
		})
	}
	return entries
}

func roundMood(avg float64) float64 {
	return math.Round(avg*10) / 10
}

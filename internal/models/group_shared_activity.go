package models

import "github.com/google/uuid"

// GroupSharedActivity links one user's activity into one group. An activity
// can be shared into several groups but at most once per group; the unique
// index is the authority under concurrent share calls.
type GroupSharedActivity struct {
	BaseModel
	GroupID    uuid.UUID `json:"groupID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_activity"`
	ActivityID uuid.UUID `json:"activityID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_activity"`

	Activity Activity `json:"activity,omitempty" gorm:"foreignKey:ActivityID"`
	Group    Group    `json:"-" gorm:"foreignKey:GroupID"`
}

func (GroupSharedActivity) TableName() string {
	return "group_shared_activities"
}

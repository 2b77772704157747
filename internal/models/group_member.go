package models

import "github.com/google/uuid"

type GroupMemberRole string

const (
	GroupRoleOwner  GroupMemberRole = "owner"
	GroupRoleMember GroupMemberRole = "member"
)

type GroupMember struct {
	BaseModel
	GroupID uuid.UUID       `json:"groupID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_member"`
	UserID  uuid.UUID       `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_member"`
	Role    GroupMemberRole `json:"role" gorm:"type:varchar(20);not null;default:'member'"`

	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Group Group `json:"-" gorm:"foreignKey:GroupID"`
}

func (GroupMember) TableName() string {
	return "group_members"
}

package models

import "github.com/google/uuid"

type Group struct {
	BaseModel
	Name        string  `json:"name" gorm:"type:varchar(100);not null"`
	Description *string `json:"description,omitempty" gorm:"type:text"`
	OwnerID     uuid.UUID `json:"ownerID" gorm:"type:uuid;not null;index"`
	InviteCode  string    `json:"inviteCode" gorm:"type:varchar(12);uniqueIndex;not null"`

	Owner      User            `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Members    []GroupMember   `json:"members,omitempty" gorm:"foreignKey:GroupID"`
	Categories []GroupCategory `json:"categories,omitempty" gorm:"foreignKey:GroupID"`
}

func (Group) TableName() string {
	return "groups"
}

package models

import "github.com/google/uuid"

type GroupMessage struct {
	BaseModel
	GroupID uuid.UUID `json:"groupID" gorm:"type:uuid;not null;index"`
	UserID  uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	Content string    `json:"content" gorm:"type:varchar(1000);not null"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (GroupMessage) TableName() string {
	return "group_messages"
}

package models

import "github.com/google/uuid"

type Category struct {
	BaseModel
	UserID    uuid.UUID `json:"userID" gorm:"type:uuid;not null;index;uniqueIndex:idx_user_category_name"`
	Name      string    `json:"name" gorm:"type:varchar(50);not null;uniqueIndex:idx_user_category_name"`
	Emoji     string    `json:"emoji" gorm:"type:varchar(10);not null"`
	Color     string    `json:"color" gorm:"type:varchar(20);not null"`
	IsDefault bool      `json:"isDefault" gorm:"not null;default:false"`
	SortOrder int       `json:"sortOrder" gorm:"not null;default:0"`
}

func (Category) TableName() string {
	return "categories"
}

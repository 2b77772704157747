package models

import "github.com/google/uuid"

// GroupCategory declares that activities of a named category may be shared
// into the group. Identity is the case-sensitive name string only: every
// member keeps their own personal category rows and they are matched by
// name, never by id.
type GroupCategory struct {
	BaseModel
	GroupID      uuid.UUID `json:"groupID" gorm:"type:uuid;not null;index;uniqueIndex:idx_group_category_name"`
	CategoryName string    `json:"categoryName" gorm:"type:varchar(50);not null;uniqueIndex:idx_group_category_name"`
	Position     int       `json:"position" gorm:"not null;default:0"`
}

func (GroupCategory) TableName() string {
	return "group_categories"
}

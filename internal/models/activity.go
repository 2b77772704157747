package models

import "github.com/google/uuid"

// Activity is one logged entry. Category is carried as a name string so it
// can be matched against group shared-category declarations across users.
// Date is a calendar day in "YYYY-MM-DD" form; lexicographic order equals
// chronological order, which the range filters rely on.
type Activity struct {
	BaseModel
	UserID          uuid.UUID `json:"userID" gorm:"type:uuid;not null;index"`
	Title           string    `json:"title" gorm:"type:varchar(100);not null"`
	Category        string    `json:"category" gorm:"type:varchar(50);not null;index"`
	DurationMinutes int       `json:"durationMinutes" gorm:"not null"`
	Mood            int       `json:"mood" gorm:"not null"`
	Date            string    `json:"date" gorm:"type:varchar(10);not null;index"`
	Note            *string   `json:"note,omitempty" gorm:"type:text"`
}

func (Activity) TableName() string {
	return "activities"
}

package models

type User struct {
	BaseModel
	Email        string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string  `json:"-" gorm:"type:text;not null"`
	Username     string  `json:"username" gorm:"type:varchar(30);not null"`
	UniqueID     string  `json:"uniqueId" gorm:"type:varchar(12);uniqueIndex;not null"`
	AvatarEmoji  string  `json:"avatarEmoji" gorm:"type:varchar(10);not null;default:'😀'"`
	Bio          *string `json:"bio,omitempty" gorm:"type:text"`

	Categories  []Category    `json:"-" gorm:"foreignKey:UserID"`
	Activities  []Activity    `json:"-" gorm:"foreignKey:UserID"`
	Memberships []GroupMember `json:"-" gorm:"foreignKey:UserID"`
}

// DisplayIdentity is the public slice of a user shown to other members.
type DisplayIdentity struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	UniqueID    string `json:"uniqueId"`
	AvatarEmoji string `json:"avatarEmoji"`
}

func (u *User) Display() DisplayIdentity {
	return DisplayIdentity{
		UserID:      u.ID.String(),
		Username:    u.Username,
		UniqueID:    u.UniqueID,
		AvatarEmoji: u.AvatarEmoji,
	}
}

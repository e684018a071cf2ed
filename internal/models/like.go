package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Like represents an identity's like on a caption.
// The combination of CaptionID and UserID must be unique.
type Like struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaptionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_caption_user,priority:1" json:"caption_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_likes_caption_user,priority:2;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Caption *Caption `gorm:"foreignKey:CaptionID;constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM.
func (Like) TableName() string {
	return "likes"
}

// BeforeCreate assigns a server-side ID.
func (l *Like) BeforeCreate(_ *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Caption is a short text entry submitted to the public feed.
type Caption struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CaptionText string     `gorm:"type:text;not null" json:"caption_text"`
	AuthorName  string     `gorm:"size:100;not null" json:"author_name"`
	Department  Department `gorm:"type:varchar(8);not null;index" json:"department"`
	// UserID is cleared when the authoring identity is deleted.
	UserID *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User   *User      `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	// LikeCount is not persisted; computed at query time from the likes table
	LikeCount int64 `gorm:"->;-:migration" json:"like_count"`
	// LikedByMe indicates whether the requesting identity liked this caption (computed)
	LikedByMe bool      `gorm:"->;-:migration" json:"liked_by_me"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Caption) TableName() string {
	return "captions"
}

// BeforeCreate assigns a server-side ID.
func (c *Caption) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsOwnedBy reports whether userID authored the caption.
func (c *Caption) IsOwnedBy(userID uuid.UUID) bool {
	return c.UserID != nil && *c.UserID == userID
}

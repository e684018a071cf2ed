package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors an identity issued by the external auth provider. The ID is
// the token subject, so rows are never generated locally.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"size:320" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

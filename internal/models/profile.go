package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds per-identity metadata used to prefill caption submissions.
type Profile struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	User       *User      `gorm:"foreignKey:ID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
	Email      string     `gorm:"size:320" json:"email"`
	FullName   string     `gorm:"size:100;not null" json:"full_name"`
	Department Department `gorm:"type:varchar(8)" json:"department"`
	Year       int        `json:"year"`
	StudentID  string     `gorm:"size:32" json:"student_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Profile) TableName() string {
	return "profiles"
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a shipping destination in a user's address book. At most
// one address per user is marked default.
type Address struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    string    `gorm:"not null;index" json:"user_id"`
	Line1     string    `gorm:"not null" json:"line1"`
	City      string    `gorm:"not null" json:"city"`
	Region    string    `gorm:"not null" json:"region"`
	IsDefault bool      `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

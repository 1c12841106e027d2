package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products for catalog browsing.
type Category struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name string    `gorm:"uniqueIndex;not null" json:"name"`
}

// Product is a catalog entry. Price and RxRequired here are the live
// values; orders freeze their own copies at creation time.
type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name        string    `gorm:"not null;index" json:"name"`
	Brand       string    `json:"brand"`
	GTIN        *string   `gorm:"uniqueIndex" json:"gtin,omitempty"`
	Description string    `json:"description"`
	Price       int64     `gorm:"not null" json:"price"` // minor units
	RxRequired  bool      `gorm:"not null;default:false" json:"rx_required"`
	Form        string    `json:"form"` // tablet, syrup, ...
	ImageURL    *string   `json:"image_url,omitempty"`

	CategoryID uuid.UUID `gorm:"type:uuid;not null;index" json:"category_id"`
	Category   *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

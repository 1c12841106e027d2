package models

import (
	"time"

	"github.com/google/uuid"
)

// Prescription is an uploaded regulatory document. It may be uploaded
// before an order exists and associated later; once linked to an order
// its verification outcome drives that order's status, never the
// reverse.
type Prescription struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     string     `gorm:"not null;index" json:"user_id"` // uploader
	OrderID    *uuid.UUID `gorm:"type:uuid;index" json:"order_id,omitempty"`
	FileURL    string     `gorm:"not null" json:"file_url"`
	UploadDate time.Time  `gorm:"not null" json:"upload_date"`

	Status           PrescriptionStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	VerifiedByUserID *string            `json:"verified_by,omitempty"`
	VerificationDate *time.Time         `json:"verification_date,omitempty"`
	Comments         *string            `json:"comments,omitempty"`

	Order *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// AssignedOrder returns the linked order id, if any.
func (p *Prescription) AssignedOrder() (uuid.UUID, bool) {
	if p.OrderID == nil {
		return uuid.Nil, false
	}
	return *p.OrderID, true
}

// Available reports whether the prescription is still usable for a new
// order: not yet linked and not refused by a pharmacist.
func (p *Prescription) Available() bool {
	if p.OrderID != nil {
		return false
	}
	return p.Status == PrescriptionPending || p.Status == PrescriptionApproved
}

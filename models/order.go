package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is an immutable snapshot of a purchase intent. After creation
// only Status, SessionID, PaymentIntentID and PrescriptionID may change,
// and Status only through the transition table in status.go.
type Order struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID string    `gorm:"not null;index" json:"user_id"`

	// Shipping address content is copied onto the order at creation so a
	// later edit to the address book cannot change what a placed order
	// says it shipped to.
	AddressID  uuid.UUID `gorm:"type:uuid;not null" json:"address_id"`
	ShipLine1  string    `gorm:"not null" json:"ship_line1"`
	ShipCity   string    `gorm:"not null" json:"ship_city"`
	ShipRegion string    `gorm:"not null" json:"ship_region"`

	OrderDate   time.Time   `gorm:"not null;index" json:"order_date"`
	Status      OrderStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	TotalAmount int64       `gorm:"not null" json:"total_amount"` // minor units

	SessionID       *string    `gorm:"uniqueIndex" json:"session_id,omitempty"`
	PaymentIntentID *string    `json:"payment_intent_id,omitempty"`
	PrescriptionID  *uuid.UUID `gorm:"type:uuid" json:"prescription_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is one frozen order line. Name, unit price and the Rx flag
// are captured from the catalog at order-creation time and never
// recomputed, so catalog edits cannot drift historical orders.
type OrderItem struct {
	ID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string    `gorm:"not null" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	UnitPrice   int64     `gorm:"not null" json:"unit_price"` // minor units
	RxRequired  bool      `gorm:"not null" json:"rx_required"`
}

// Extension is the line total in minor units.
func (i OrderItem) Extension() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// RequiresPrescription reports whether any frozen line carries the
// Rx-required flag.
func (o *Order) RequiresPrescription() bool {
	for _, item := range o.Items {
		if item.RxRequired {
			return true
		}
	}
	return false
}

package models

import "time"

// OrderEvent is the payload published to Kafka after an order-lifecycle
// transition commits. Publishing is best-effort; the order row is the
// source of truth.
type OrderEvent struct {
	Type           string      `json:"type"`
	OrderID        string      `json:"order_id"`
	UserID         string      `json:"user_id"`
	Status         OrderStatus `json:"status"`
	PrescriptionID string      `json:"prescription_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

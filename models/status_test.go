package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletedOnlyReachableFromApproved(t *testing.T) {
	for _, from := range OrderStatuses {
		got := CanTransition(from, StatusCompleted)
		want := from == StatusApproved
		assert.Equal(t, want, got, "from %s", from)
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, terminal := range []OrderStatus{StatusCompleted, StatusRejected} {
		assert.True(t, terminal.Terminal())
		for _, to := range OrderStatuses {
			assert.False(t, CanTransition(terminal, to), "%s -> %s", terminal, to)
		}
	}
}

func TestMoreInfoRequiredRecovers(t *testing.T) {
	assert.True(t, CanTransition(StatusMoreInfoRequired, StatusApproved))
	assert.True(t, CanTransition(StatusMoreInfoRequired, StatusRejected))
	assert.False(t, CanTransition(StatusMoreInfoRequired, StatusPaymentReceived))
	assert.False(t, CanTransition(StatusMoreInfoRequired, StatusCompleted))
}

func TestPaymentOnlyAppliesToPending(t *testing.T) {
	for _, from := range OrderStatuses {
		got := CanTransition(from, StatusPaymentReceived)
		want := from == StatusPending
		assert.Equal(t, want, got, "from %s", from)
	}
}

func TestUnknownStatusFailsClosed(t *testing.T) {
	bogus := OrderStatus("Shipped")
	assert.False(t, bogus.Valid())
	for _, to := range OrderStatuses {
		assert.False(t, CanTransition(bogus, to))
	}
	assert.False(t, CanTransition(StatusPending, bogus))
}

func TestRequiresPrescription(t *testing.T) {
	order := Order{Items: []OrderItem{
		{ProductName: "Vitamin D3", RxRequired: false},
		{ProductName: "Amoxicillin 500mg", RxRequired: true},
	}}
	assert.True(t, order.RequiresPrescription())

	order.Items = order.Items[:1]
	assert.False(t, order.RequiresPrescription())
}

func TestOrderItemExtension(t *testing.T) {
	item := OrderItem{Quantity: 3, UnitPrice: 1500}
	assert.Equal(t, int64(4500), item.Extension())
}

func TestPrescriptionAvailable(t *testing.T) {
	p := Prescription{Status: PrescriptionPending}
	assert.True(t, p.Available())

	p.Status = PrescriptionApproved
	assert.True(t, p.Available())

	p.Status = PrescriptionRejected
	assert.False(t, p.Available())

	orderID := p.ID
	p.Status = PrescriptionPending
	p.OrderID = &orderID
	assert.False(t, p.Available(), "linked prescription is spent")
}

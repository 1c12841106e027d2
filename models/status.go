package models

// OrderStatus is the closed set of order lifecycle states. Statuses are
// persisted as strings but must only ever be produced from these
// constants; Transition is the single authority for moving between them.
type OrderStatus string

const (
	StatusPending          OrderStatus = "Pending"
	StatusPaymentReceived  OrderStatus = "PaymentReceived"
	StatusApproved         OrderStatus = "Approved"
	StatusCompleted        OrderStatus = "Completed"
	StatusRejected         OrderStatus = "Rejected"
	StatusMoreInfoRequired OrderStatus = "MoreInfoRequired"
)

// OrderStatuses lists every valid status, for request validation and
// reporting filters.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusPaymentReceived,
	StatusApproved,
	StatusCompleted,
	StatusRejected,
	StatusMoreInfoRequired,
}

// orderTransitions is the exhaustive legal-transition table. Completed
// and Rejected are terminal; MoreInfoRequired can recover to Approved
// or Rejected once the pharmacist re-verifies.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:          {StatusPaymentReceived, StatusApproved, StatusRejected, StatusMoreInfoRequired},
	StatusPaymentReceived:  {StatusApproved, StatusRejected, StatusMoreInfoRequired},
	StatusApproved:         {StatusCompleted, StatusRejected, StatusMoreInfoRequired},
	StatusMoreInfoRequired: {StatusApproved, StatusRejected},
	StatusCompleted:        {},
	StatusRejected:         {},
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

// CanTransition reports whether moving from -> to is legal. Unknown
// statuses never transition anywhere: fail closed, keep the last known
// good state.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PrescriptionStatus is the verification state of an uploaded
// prescription document.
type PrescriptionStatus string

const (
	PrescriptionPending          PrescriptionStatus = "Pending"
	PrescriptionApproved         PrescriptionStatus = "Approved"
	PrescriptionRejected         PrescriptionStatus = "Rejected"
	PrescriptionMoreInfoRequired PrescriptionStatus = "MoreInfoRequired"
)

// Package notifier delivers customer-facing messages. Delivery is
// best-effort everywhere it is used: order and prescription state in
// the database is the source of truth, and the customer can always see
// status in their order history.
package notifier

import "context"

// Notifier sends one message to one recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

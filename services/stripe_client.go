package services

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/pharmadirect/pharmacy-backend/models"
)

// SessionHandle is the caller-facing result of opening a checkout
// session: the processor's session id plus the URL to redirect the
// customer to.
type SessionHandle struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// PaymentSession is the processor's view of one payment attempt.
type PaymentSession struct {
	Paid            bool
	PaymentIntentID string
}

// PaymentGateway abstracts the external payment processor so the
// coordinator can be tested without network calls.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, order *models.Order, successURL, cancelURL string) (*SessionHandle, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*PaymentSession, error)
}

// StripeGateway implements PaymentGateway on Stripe Checkout Sessions.
type StripeGateway struct {
	webhookKey string
	currency   string
}

func NewStripeGateway(secretKey, webhookKey, currency string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{webhookKey: webhookKey, currency: currency}
}

// CreateCheckoutSession opens a session with one payment line per order
// item, built from the frozen order-line prices, never the live
// catalog.
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, order *models.Order, successURL, cancelURL string) (*SessionHandle, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(order.Items))
	for _, item := range order.Items {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(g.currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.ProductName),
				},
				UnitAmount: stripe.Int64(item.UnitPrice),
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(successURL + "?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:          stripe.String(cancelURL),
		ClientReferenceID:  stripe.String(order.ID.String()),
	}
	params.Context = ctx

	sess, err := session.New(params)
	if err != nil {
		return nil, err
	}
	return &SessionHandle{SessionID: sess.ID, RedirectURL: sess.URL}, nil
}

// GetCheckoutSession reports whether the session has been paid and the
// payment-confirmation id Stripe assigned to it.
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*PaymentSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := session.Get(sessionID, params)
	if err != nil {
		return nil, err
	}

	out := &PaymentSession{
		Paid: sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}
	return out, nil
}

// ParseWebhook verifies the Stripe signature and decodes the event.
func (g *StripeGateway) ParseWebhook(r *http.Request) (stripe.Event, error) {
	var event stripe.Event
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return event, err
	}
	r.Body = io.NopCloser(bytes.NewBuffer(payload))
	sigHeader := r.Header.Get("Stripe-Signature")
	return webhook.ConstructEvent(payload, sigHeader, g.webhookKey)
}

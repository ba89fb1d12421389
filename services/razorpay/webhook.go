package razorpay

import (
	"encoding/json"
	"fmt"
)

// EventIDHeader carries the unique delivery id of a webhook event
const EventIDHeader = "X-Razorpay-Event-Id"

// Webhook event names handled by the payment service
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
	EventRefundProcessed   = "refund.processed"
)

// PaymentEntity is the payment object embedded in webhook payloads
type PaymentEntity struct {
	ID       string          `json:"id"`
	Amount   int             `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
	OrderID  string          `json:"order_id"`
	Method   string          `json:"method"`
	Email    string          `json:"email"`
	Contact  string          `json:"contact"`
	Notes    json.RawMessage `json:"notes,omitempty"`
}

// Event is a decoded webhook delivery
type Event struct {
	Entity    string   `json:"entity"`
	AccountID string   `json:"account_id"`
	Event     string   `json:"event"`
	Contains  []string `json:"contains"`
	Payload   struct {
		Payment *struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment,omitempty"`
		Order *struct {
			Entity Order `json:"entity"`
		} `json:"order,omitempty"`
		Refund *struct {
			Entity Refund `json:"entity"`
		} `json:"refund,omitempty"`
	} `json:"payload"`
	CreatedAt int64 `json:"created_at"`
}

// ParseEvent decodes a raw webhook body
func ParseEvent(rawBody []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		return nil, fmt.Errorf("failed to decode webhook event: %w", err)
	}
	if ev.Event == "" {
		return nil, fmt.Errorf("webhook event has no name")
	}
	return &ev, nil
}

// Payment returns the embedded payment entity, if any
func (e *Event) Payment() *PaymentEntity {
	if e.Payload.Payment == nil {
		return nil
	}
	return &e.Payload.Payment.Entity
}

// IdempotencyKey identifies the delivery; the event id header wins over payload fields
func (e *Event) IdempotencyKey(eventID string) string {
	if eventID != "" {
		return "razorpay:event:" + eventID
	}
	if p := e.Payment(); p != nil && p.ID != "" {
		return "razorpay:" + e.Event + ":" + p.ID
	}
	return ""
}

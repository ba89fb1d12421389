package razorpay

import (
	"context"
	"encoding/json"
	"fmt"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

const (
	// DefaultCurrency is used when an order does not name one
	DefaultCurrency = "INR"

	// OrderStatusPaid is the Orders API status once a payment on the order is captured
	OrderStatusPaid = "paid"
)

// orderAPI and paymentAPI are the SDK resources the client calls
type orderAPI interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
	Fetch(orderID string, queryParams map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type paymentAPI interface {
	Refund(paymentID string, amount int, data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// Client talks to the Razorpay Orders and Payments APIs through razorpay-go
type Client struct {
	orders   orderAPI
	payments paymentAPI
}

// Config holds configuration for the Razorpay client
type Config struct {
	KeyID     string
	KeySecret string
}

// NewClient creates a Razorpay client. It fails with a ConfigurationError when a key is missing.
func NewClient(config Config) (*Client, error) {
	if config.KeyID == "" {
		return nil, apperr.MissingConfig("RAZORPAY_KEY_ID")
	}
	if config.KeySecret == "" {
		return nil, apperr.MissingConfig("RAZORPAY_KEY_SECRET")
	}

	sdk := rzp.NewClient(config.KeyID, config.KeySecret)
	return &Client{orders: sdk.Order, payments: sdk.Payment}, nil
}

// CreateOrderRequest is the body of POST /v1/orders
type CreateOrderRequest struct {
	Amount   int               `json:"amount"` // paise
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is the Razorpay order entity
type Order struct {
	ID         string          `json:"id"`
	Entity     string          `json:"entity"`
	Amount     int             `json:"amount"`
	AmountPaid int             `json:"amount_paid"`
	AmountDue  int             `json:"amount_due"`
	Currency   string          `json:"currency"`
	Receipt    string          `json:"receipt"`
	Status     string          `json:"status"`
	Attempts   int             `json:"attempts"`
	Notes      json.RawMessage `json:"notes,omitempty"` // object, or [] when empty
	CreatedAt  int64           `json:"created_at"`
}

// RefundRequest is the body of POST /v1/payments/{id}/refund
type RefundRequest struct {
	Amount int               `json:"amount"` // paise
	Speed  string            `json:"speed,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// Refund is the Razorpay refund entity
type Refund struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int    `json:"amount"`
	Currency  string `json:"currency"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

// CreateOrder registers an order with Razorpay
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}

	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.orders.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	var order Order
	if err := decode(body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// FetchOrder retrieves an order by its Razorpay id
func (c *Client) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, err := c.orders.Fetch(orderID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: fetch order %s: %w", orderID, err)
	}
	var order Order
	if err := decode(body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// RefundPayment refunds req.Amount paise of a captured payment
func (c *Client) RefundPayment(ctx context.Context, paymentID string, req RefundRequest) (*Refund, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := map[string]interface{}{}
	if req.Speed != "" {
		data["speed"] = req.Speed
	}
	if len(req.Notes) > 0 {
		data["notes"] = req.Notes
	}

	body, err := c.payments.Refund(paymentID, req.Amount, data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay: refund payment %s: %w", paymentID, err)
	}
	var refund Refund
	if err := decode(body, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// decode moves an SDK response map into one of the typed entities
func decode(body map[string]interface{}, dst interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("razorpay: encode response: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("razorpay: decode response: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/services/phonepe"
	"github.com/sahilchouksey/byteboost-api/services/razorpay"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/cache"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookDedupTTL bounds how long a processed delivery is remembered
const webhookDedupTTL = 7 * 24 * time.Hour

// PaymentGateway is the part of the Razorpay API the payment flow calls
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
	RefundPayment(ctx context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error)
}

// PaymentConfig wires the provider credentials into the payment service
type PaymentConfig struct {
	Gateway   PaymentGateway // nil when Razorpay API keys are not configured
	KeyID     string
	KeySecret string
	Webhook   *razorpay.WebhookVerifier
	PhonePe   *phonepe.Verifier
	Dedup     cache.Store
}

// PaymentService handles orders, checkout verification, webhooks and refunds
type PaymentService struct {
	db        *gorm.DB
	gateway   PaymentGateway
	keyID     string
	keySecret []byte
	webhook   *razorpay.WebhookVerifier
	phonepe   *phonepe.Verifier
	dedup     cache.Store
	log       *logger.Logger
	now       func() time.Time
}

// NewPaymentService creates a new payment service
func NewPaymentService(db *gorm.DB, cfg PaymentConfig, log *logger.Logger) *PaymentService {
	if cfg.Dedup == nil {
		cfg.Dedup = cache.NewMemoryCache()
	}
	if cfg.Webhook == nil {
		cfg.Webhook = razorpay.NewWebhookVerifier("", true)
	}
	return &PaymentService{
		db:        db,
		gateway:   cfg.Gateway,
		keyID:     cfg.KeyID,
		keySecret: []byte(cfg.KeySecret),
		webhook:   cfg.Webhook,
		phonepe:   cfg.PhonePe,
		dedup:     cfg.Dedup,
		log:       log,
		now:       time.Now,
	}
}

// CreateOrderRequest represents a request to buy a course
type CreateOrderRequest struct {
	CourseID uint                   `json:"course_id" validate:"required"`
	Provider model.PaymentProvider  `json:"provider" validate:"omitempty,enum"`
	Notes    map[string]interface{} `json:"notes"`
}

// VerifyPaymentRequest is the payload the Razorpay checkout handler returns
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// RefundOrderRequest carries the reason given for a refund
type RefundOrderRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Checkout is what the client needs to open the provider checkout
type Checkout struct {
	Order *model.Order `json:"order"`
	KeyID string       `json:"key_id,omitempty"`
}

// WebhookResult describes how a webhook delivery was handled
type WebhookResult struct {
	Event     string `json:"event"`
	Verified  bool   `json:"verified"`
	Duplicate bool   `json:"duplicate"`
	Processed bool   `json:"processed"`
}

// NewReceiptNumber returns a unique receipt number within Razorpay's 40 character limit
func NewReceiptNumber() string {
	return "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateOrder creates an order for the course price and registers it with Razorpay when configured
func (s *PaymentService) CreateOrder(ctx context.Context, actor *model.User, req CreateOrderRequest) (*Checkout, error) {
	if err := validateRequest("order", req); err != nil {
		return nil, err
	}
	if req.Provider == "" {
		req.Provider = model.ProviderRazorpay
	}

	order := &model.Order{
		UserID:        actor.ID,
		CourseID:      req.CourseID,
		Provider:      req.Provider,
		Status:        model.OrderCreated,
		ReceiptNumber: NewReceiptNumber(),
		Notes:         datatypes.JSONMap(req.Notes),
	}

	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		course, err := loadCourse(tx, req.CourseID)
		if err != nil {
			return err
		}
		if !course.IsPublished {
			return apperr.NotFound("course")
		}
		owned, err := hasCourseAccess(tx, actor.ID, course.ID, s.now())
		if err != nil {
			return fmt.Errorf("failed to check enrollment: %w", err)
		}
		if owned {
			return apperr.Conflict("already enrolled in this course")
		}

		order.AmountINR = course.PriceINR
		return database.Translate("order", tx.Create(order).Error)
	})
	if err != nil {
		return nil, err
	}

	if order.Provider != model.ProviderRazorpay || s.gateway == nil {
		return &Checkout{Order: order, KeyID: s.keyID}, nil
	}

	remote, err := s.gateway.CreateOrder(ctx, razorpay.CreateOrderRequest{
		Amount:  order.AmountINR,
		Receipt: order.ReceiptNumber,
		Notes: map[string]string{
			"order_id":  fmt.Sprint(order.ID),
			"course_id": fmt.Sprint(order.CourseID),
		},
	})
	if err != nil {
		s.setOrderStatus(ctx, order, model.OrderFailed)
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	order.ProviderOrderID = &remote.ID
	order.Status = model.OrderPending
	if err := s.db.WithContext(ctx).Save(order).Error; err != nil {
		return nil, database.Translate("order", err)
	}
	return &Checkout{Order: order, KeyID: s.keyID}, nil
}

func (s *PaymentService) setOrderStatus(ctx context.Context, order *model.Order, status model.OrderStatus) {
	order.Status = status
	if err := s.db.WithContext(ctx).Save(order).Error; err != nil {
		s.log.Error("failed to update order status", "order_id", order.ID, "status", status, "error", err)
	}
}

// VerifyPayment checks the checkout signature and, when it matches, records the captured
// payment, completes the order and activates the enrollment in one transaction.
func (s *PaymentService) VerifyPayment(ctx context.Context, actor *model.User, req VerifyPaymentRequest) (*model.Order, error) {
	if err := validateRequest("payment", req); err != nil {
		return nil, err
	}
	if err := razorpay.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature, s.keySecret); err != nil {
		return nil, err
	}

	var order model.Order
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("provider_order_id = ?", req.OrderID).First(&order).Error; err != nil {
			return database.Translate("order", err)
		}
		if order.UserID != actor.ID {
			return apperr.NotFound("order")
		}
		return completeOrder(tx, &order, req.PaymentID, nil, nil)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// completeOrder records a captured payment for order, marks it completed and activates the enrollment.
// Repeating it for the same payment is a no-op.
func completeOrder(tx *gorm.DB, order *model.Order, providerPaymentID string, method *string, meta []byte) error {
	if order.Status == model.OrderRefunded {
		return apperr.Conflict("order has been refunded")
	}

	if err := upsertPayment(tx, order, providerPaymentID, model.PaymentCaptured, method, meta); err != nil {
		return err
	}

	if order.Status != model.OrderCompleted {
		order.Status = model.OrderCompleted
		if err := tx.Save(order).Error; err != nil {
			return database.Translate("order", err)
		}
	}

	_, err := activateEnrollment(tx, order.UserID, order.CourseID)
	return err
}

// upsertPayment creates the payment row for providerPaymentID or moves it to status
func upsertPayment(tx *gorm.DB, order *model.Order, providerPaymentID string, status model.PaymentStatus, method *string, meta []byte) error {
	var payment model.Payment
	err := tx.Where("provider_payment_id = ?", providerPaymentID).First(&payment).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment = model.Payment{
			OrderID:           order.ID,
			ProviderPaymentID: providerPaymentID,
			Status:            status,
			AmountINR:         order.AmountINR,
			Method:            method,
			MetaJSON:          datatypes.JSON(meta),
		}
		return database.Translate("payment", tx.Create(&payment).Error)
	case err != nil:
		return fmt.Errorf("failed to load payment: %w", err)
	}

	if payment.OrderID != order.ID {
		return apperr.Validation("payment", "provider_payment_id", "order", "payment belongs to another order")
	}
	// captured and refunded payments do not go back to earlier states
	if payment.Status == status || payment.Status == model.PaymentRefunded ||
		(payment.Status == model.PaymentCaptured && status != model.PaymentRefunded) {
		return nil
	}
	payment.Status = status
	if method != nil {
		payment.Method = method
	}
	if len(meta) > 0 {
		payment.MetaJSON = datatypes.JSON(meta)
	}
	return database.Translate("payment", tx.Save(&payment).Error)
}

// HandleRazorpayWebhook verifies and applies a webhook delivery. Deliveries are
// deduplicated by event id, or by event name and payment id when the header is absent.
func (s *PaymentService) HandleRazorpayWebhook(ctx context.Context, rawBody []byte, signature *string, eventID string) (*WebhookResult, error) {
	verified, err := s.webhook.Verify(rawBody, signature)
	if err != nil {
		return nil, err
	}

	event, err := razorpay.ParseEvent(rawBody)
	if err != nil {
		return nil, apperr.Validation("webhook", "body", "json", err.Error())
	}
	result := &WebhookResult{Event: event.Event, Verified: verified}
	if !verified {
		s.log.Warn("processing unsigned razorpay webhook", "event", event.Event)
	}

	key := event.IdempotencyKey(eventID)
	if key != "" {
		fresh, err := s.dedup.SetNX(ctx, key, s.now().Unix(), webhookDedupTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to record webhook delivery: %w", err)
		}
		if !fresh {
			result.Duplicate = true
			return result, nil
		}
	}

	processed, err := s.applyEvent(ctx, event)
	if err != nil {
		if key != "" {
			// let the provider retry the delivery
			if derr := s.dedup.Delete(ctx, key); derr != nil {
				s.log.Error("failed to release webhook key", "key", key, "error", derr)
			}
		}
		return nil, err
	}
	result.Processed = processed
	return result, nil
}

func (s *PaymentService) applyEvent(ctx context.Context, event *razorpay.Event) (bool, error) {
	switch event.Event {
	case razorpay.EventPaymentCaptured, razorpay.EventOrderPaid, razorpay.EventPaymentAuthorized, razorpay.EventPaymentFailed:
	case razorpay.EventRefundProcessed:
		if event.Payload.Refund == nil {
			return false, nil
		}
		return s.applyRefundEvent(ctx, event.Payload.Refund.Entity.PaymentID)
	default:
		s.log.Debug("ignoring razorpay webhook", "event", event.Event)
		return false, nil
	}

	p := event.Payment()
	if p == nil || p.ID == "" || p.OrderID == "" {
		s.log.Warn("razorpay webhook without payment entity", "event", event.Event)
		return false, nil
	}
	meta, _ := json.Marshal(p)
	var method *string
	if p.Method != "" {
		method = &p.Method
	}

	var applied bool
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var order model.Order
		err := tx.Where("provider_order_id = ?", p.OrderID).First(&order).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn("razorpay webhook for unknown order", "provider_order_id", p.OrderID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if p.Amount > 0 && p.Amount != order.AmountINR {
			return apperr.Validation("payment", "amount", "match", "paid amount does not match the order amount")
		}

		applied = true
		switch event.Event {
		case razorpay.EventPaymentCaptured, razorpay.EventOrderPaid:
			return completeOrder(tx, &order, p.ID, method, meta)
		case razorpay.EventPaymentAuthorized:
			if err := upsertPayment(tx, &order, p.ID, model.PaymentAuthorized, method, meta); err != nil {
				return err
			}
			if order.Status == model.OrderCreated || order.Status == model.OrderPending {
				order.Status = model.OrderProcessing
				return database.Translate("order", tx.Save(&order).Error)
			}
			return nil
		default: // payment.failed
			if err := upsertPayment(tx, &order, p.ID, model.PaymentFailed, method, meta); err != nil {
				return err
			}
			if !order.IsSettled() {
				order.Status = model.OrderFailed
				return database.Translate("order", tx.Save(&order).Error)
			}
			return nil
		}
	})
	return applied, err
}

func (s *PaymentService) applyRefundEvent(ctx context.Context, providerPaymentID string) (bool, error) {
	var applied bool
	err := withTx(ctx, s.db, func(tx *gorm.DB) error {
		var payment model.Payment
		err := tx.Preload("Order").Where("provider_payment_id = ?", providerPaymentID).First(&payment).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}
		applied = true
		return markRefunded(tx, payment.Order)
	})
	return applied, err
}

// markRefunded moves the order, its captured payments and its enrollment to refunded
func markRefunded(tx *gorm.DB, order *model.Order) error {
	err := tx.Session(&gorm.Session{SkipHooks: true}).
		Model(&model.Payment{}).
		Where("order_id = ? AND status = ?", order.ID, model.PaymentCaptured).
		Update("status", model.PaymentRefunded).Error
	if err != nil {
		return fmt.Errorf("failed to refund payments: %w", err)
	}

	if order.Status != model.OrderRefunded {
		order.Status = model.OrderRefunded
		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return database.Translate("order", err)
		}
	}
	return refundEnrollment(tx, order.UserID, order.CourseID)
}

// ListOrders returns the orders of userID, newest first
func (s *PaymentService) ListOrders(ctx context.Context, userID uint) ([]model.Order, error) {
	var orders []model.Order
	err := s.db.WithContext(ctx).
		Preload("Course").
		Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns an order with its payments. Only the buyer and admins can see it.
func (s *PaymentService) GetOrder(ctx context.Context, actor *model.User, id uint) (*model.Order, error) {
	var order model.Order
	if err := s.db.WithContext(ctx).Preload("Course").Preload("Payments").First(&order, id).Error; err != nil {
		return nil, database.Translate("order", err)
	}
	if order.UserID != actor.ID && !actor.IsAdmin() {
		return nil, apperr.NotFound("order")
	}
	return &order, nil
}

// RefundOrder refunds every captured payment of a completed order through Razorpay
// and revokes the enrollment.
func (s *PaymentService) RefundOrder(ctx context.Context, actor *model.User, id uint, req RefundOrderRequest) (*model.Order, error) {
	if err := validateRequest("refund", req); err != nil {
		return nil, err
	}

	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if order.Status != model.OrderCompleted {
		return nil, apperr.Conflict("only completed orders can be refunded")
	}
	if order.Provider != model.ProviderRazorpay {
		return nil, apperr.Conflict("refunds are only supported for razorpay orders")
	}
	if s.gateway == nil {
		return nil, apperr.MissingConfig("RAZORPAY_KEY_ID")
	}

	// each refund is stored before the next gateway call, so a retry skips it
	for _, p := range order.Payments {
		if p.Status != model.PaymentCaptured {
			continue
		}
		_, err := s.gateway.RefundPayment(ctx, p.ProviderPaymentID, razorpay.RefundRequest{
			Amount: p.AmountINR,
			Notes:  map[string]string{"reason": req.Reason, "order_id": fmt.Sprint(order.ID)},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to refund payment %s: %w", p.ProviderPaymentID, err)
		}
		err = s.db.WithContext(ctx).
			Session(&gorm.Session{SkipHooks: true}).
			Model(&model.Payment{}).
			Where("id = ? AND status = ?", p.ID, model.PaymentCaptured).
			Update("status", model.PaymentRefunded).Error
		if err != nil {
			return nil, fmt.Errorf("failed to record refund of payment %s: %w", p.ProviderPaymentID, err)
		}
	}

	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		return markRefunded(tx, order)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("order refunded", "order_id", order.ID, "actor_id", actor.ID)
	return s.GetOrder(ctx, actor, id)
}

// HandlePhonePeCallback verifies the X-VERIFY checksum and settles the order named by
// the merchant transaction id, which is the order's receipt number.
func (s *PaymentService) HandlePhonePeCallback(ctx context.Context, body phonepe.CallbackBody, checksum string) (*model.Order, error) {
	if s.phonepe == nil {
		return nil, apperr.MissingConfig("PHONEPE_SALT_KEY")
	}
	callback, err := s.phonepe.DecodeCallback(body, checksum)
	if err != nil {
		return nil, err
	}

	var order model.Order
	err = withTx(ctx, s.db, func(tx *gorm.DB) error {
		err := tx.Where("receipt_number = ? AND provider = ?", callback.Data.MerchantTransactionID, model.ProviderPhonePe).
			First(&order).Error
		if err != nil {
			return database.Translate("order", err)
		}

		meta, _ := json.Marshal(callback.Data)
		var method *string
		if t := callback.Data.PaymentInstrument.Type; t != "" {
			method = &t
		}

		switch callback.Code {
		case phonepe.CodePaymentSuccess:
			if callback.Data.Amount != order.AmountINR {
				return apperr.Validation("payment", "amount", "match", "paid amount does not match the order amount")
			}
			return completeOrder(tx, &order, callback.Data.TransactionID, method, meta)
		case phonepe.CodePaymentPending:
			if order.Status == model.OrderCreated {
				order.Status = model.OrderProcessing
				return database.Translate("order", tx.Save(&order).Error)
			}
			return nil
		default:
			if callback.Data.TransactionID != "" {
				if err := upsertPayment(tx, &order, callback.Data.TransactionID, model.PaymentFailed, method, meta); err != nil {
					return err
				}
			}
			if !order.IsSettled() {
				order.Status = model.OrderFailed
				return database.Translate("order", tx.Save(&order).Error)
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FailStaleOrders fails orders left unpaid for longer than maxAge. Orders registered with
// Razorpay are fetched first and kept when Razorpay already reports them paid.
func (s *PaymentService) FailStaleOrders(ctx context.Context, now time.Time, maxAge time.Duration) (int64, error) {
	cutoff := now.Add(-maxAge)
	result := s.db.WithContext(ctx).
		Session(&gorm.Session{SkipHooks: true}).
		Model(&model.Order{}).
		Where("status = ? AND created_at < ?", model.OrderCreated, cutoff).
		Update("status", model.OrderFailed)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to fail stale orders: %w", result.Error)
	}
	failed := result.RowsAffected
	if s.gateway == nil {
		return failed, nil
	}

	var pending []model.Order
	err := s.db.WithContext(ctx).
		Where("status = ? AND provider = ? AND provider_order_id IS NOT NULL AND created_at < ?",
			model.OrderPending, model.ProviderRazorpay, cutoff).
		Find(&pending).Error
	if err != nil {
		return failed, fmt.Errorf("failed to load pending orders: %w", err)
	}

	for _, order := range pending {
		remote, err := s.gateway.FetchOrder(ctx, *order.ProviderOrderID)
		if err != nil {
			s.log.Warn("failed to fetch stale order", "order_id", order.ID, "error", err)
			continue
		}
		if remote.Status == razorpay.OrderStatusPaid {
			s.log.Warn("stale order is paid at razorpay, waiting for settlement", "order_id", order.ID)
			continue
		}

		result := s.db.WithContext(ctx).
			Session(&gorm.Session{SkipHooks: true}).
			Model(&model.Order{}).
			Where("id = ? AND status = ?", order.ID, model.OrderPending).
			Update("status", model.OrderFailed)
		if result.Error != nil {
			return failed, fmt.Errorf("failed to fail order %d: %w", order.ID, result.Error)
		}
		failed += result.RowsAffected
	}
	return failed, nil
}

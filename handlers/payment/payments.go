package payment

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/services/phonepe"
	"github.com/sahilchouksey/byteboost-api/services/razorpay"
	"github.com/sahilchouksey/byteboost-api/utils"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/sahilchouksey/byteboost-api/utils/response"
)

// PaymentHandler handles checkout, provider callbacks and refunds
type PaymentHandler struct {
	payments *services.PaymentService
	log      *logger.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *services.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, log: log}
}

// CreateRazorpayOrder handles POST /payments/razorpay/orders
func (h *PaymentHandler) CreateRazorpayOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.CreateOrderRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	checkout, err := h.payments.CreateOrder(c.UserContext(), user, req)
	if err != nil {
		return h.fail(c, "create order", err)
	}
	return response.Created(c, checkout)
}

// VerifyRazorpayPayment handles POST /payments/razorpay/verify
func (h *PaymentHandler) VerifyRazorpayPayment(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	var req services.VerifyPaymentRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	order, err := h.payments.VerifyPayment(c.UserContext(), user, req)
	if err != nil {
		return h.fail(c, "verify payment", err)
	}
	return response.Success(c, fiber.Map{"verified": true, "order": order})
}

// RazorpayWebhook handles POST /payments/razorpay/webhook. The signature covers the exact raw body.
func (h *PaymentHandler) RazorpayWebhook(c *fiber.Ctx) error {
	var signature *string
	if values, ok := c.GetReqHeaders()[razorpay.SignatureHeader]; ok && len(values) > 0 {
		signature = &values[0]
	}

	result, err := h.payments.HandleRazorpayWebhook(c.UserContext(), c.Body(), signature, c.Get(razorpay.EventIDHeader))
	if err != nil {
		return h.fail(c, "razorpay webhook", err)
	}
	return response.Success(c, result)
}

// ListOrders handles GET /payments/orders
func (h *PaymentHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}

	orders, err := h.payments.ListOrders(c.UserContext(), userID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, orders)
}

// GetOrder handles GET /payments/orders/:id
func (h *PaymentHandler) GetOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	order, err := h.payments.GetOrder(c.UserContext(), user, id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, order)
}

// RefundOrder handles POST /payments/refund/:id
func (h *PaymentHandler) RefundOrder(c *fiber.Ctx) error {
	user, ok := middleware.GetUser(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	id, err := utils.ParamID(c, "id")
	if err != nil {
		return response.FromError(c, err)
	}

	var req services.RefundOrderRequest
	if err := utils.ParseBody(c, &req); err != nil {
		return response.FromError(c, err)
	}

	order, err := h.payments.RefundOrder(c.UserContext(), user, id, req)
	if err != nil {
		return h.fail(c, "refund order", err)
	}
	return response.Success(c, order)
}

// PhonePeCallback handles POST /payments/phonepe/callback
func (h *PaymentHandler) PhonePeCallback(c *fiber.Ctx) error {
	var body phonepe.CallbackBody
	if err := utils.ParseBody(c, &body); err != nil {
		return response.FromError(c, err)
	}

	order, err := h.payments.HandlePhonePeCallback(c.UserContext(), body, c.Get(phonepe.VerifyHeader))
	if err != nil {
		return h.fail(c, "phonepe callback", err)
	}
	return response.Success(c, fiber.Map{"order_id": order.ID, "status": order.Status})
}

// fail maps err onto a response and logs the provider-facing failures
func (h *PaymentHandler) fail(c *fiber.Ctx, op string, err error) error {
	rerr := response.FromError(c, err)
	if status := c.Response().StatusCode(); status >= fiber.StatusInternalServerError || status == fiber.StatusBadRequest {
		h.log.Warn("payment request failed", "op", op, "status", status, "error", err)
	}
	return rerr
}

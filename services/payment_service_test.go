package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/services/phonepe"
	"github.com/sahilchouksey/byteboost-api/services/razorpay"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
	"github.com/sahilchouksey/byteboost-api/utils/cache"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeySecret     = "rzp_test_secret"
	testWebhookSecret = "whsec_test"
)

type fakeGateway struct {
	orders     []razorpay.CreateOrderRequest
	refunded   []string
	fail       error
	failRefund map[string]error  // by payment id
	remote     map[string]string // order status by provider order id
	fetched    []string
}

func (g *fakeGateway) CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	g.orders = append(g.orders, req)
	return &razorpay.Order{ID: fmt.Sprintf("order_%d", len(g.orders)), Amount: req.Amount, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *fakeGateway) FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	g.fetched = append(g.fetched, orderID)
	status, ok := g.remote[orderID]
	if !ok {
		status = "attempted"
	}
	return &razorpay.Order{ID: orderID, Status: status}, nil
}

func (g *fakeGateway) RefundPayment(ctx context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error) {
	if g.fail != nil {
		return nil, g.fail
	}
	if err := g.failRefund[paymentID]; err != nil {
		return nil, err
	}
	g.refunded = append(g.refunded, paymentID)
	return &razorpay.Refund{ID: "rfnd_" + paymentID, PaymentID: paymentID, Amount: req.Amount, Status: "processed"}, nil
}

func newPaymentService(f *fixture, gw PaymentGateway) *PaymentService {
	return NewPaymentService(f.db, PaymentConfig{
		Gateway:   gw,
		KeyID:     "rzp_test_key",
		KeySecret: testKeySecret,
		Webhook:   razorpay.NewWebhookVerifier(testWebhookSecret, true),
		PhonePe:   phonepe.NewVerifier("MERCHANT", "salt", "1"),
		Dedup:     cache.NewMemoryCache(),
	}, logger.Nop())
}

func webhookBody(t *testing.T, event, paymentID, orderID string, amount int) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"entity": "event",
		"event":  event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id": paymentID, "order_id": orderID, "amount": amount, "status": "captured", "method": "upi",
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func signed(body []byte) *string {
	sig := razorpay.Sign([]byte(testWebhookSecret), body)
	return &sig
}

func loadEnrollment(t *testing.T, f *fixture, userID uint) model.Enrollment {
	t.Helper()
	var e model.Enrollment
	require.NoError(t, f.db.Where("user_id = ? AND course_id = ?", userID, f.course.ID).First(&e).Error)
	return e
}

func TestCreateOrderUsesCoursePrice(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{}
	svc := newPaymentService(f, gw)

	checkout, err := svc.CreateOrder(context.Background(), f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	assert.Equal(t, "rzp_test_key", checkout.KeyID)

	order := checkout.Order
	assert.Equal(t, f.course.PriceINR, order.AmountINR)
	assert.Equal(t, model.OrderPending, order.Status)
	require.NotNil(t, order.ProviderOrderID)
	assert.Equal(t, "order_1", *order.ProviderOrderID)
	assert.Regexp(t, `^rcpt_[0-9a-f]{32}$`, order.ReceiptNumber)

	require.Len(t, gw.orders, 1)
	assert.Equal(t, order.ReceiptNumber, gw.orders[0].Receipt)
	assert.Equal(t, f.course.PriceINR, gw.orders[0].Amount)
}

func TestCreateOrderWithoutGatewayStaysCreated(t *testing.T) {
	f := newFixture(t)
	checkout, err := newPaymentService(f, nil).CreateOrder(context.Background(), f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	assert.Equal(t, model.OrderCreated, checkout.Order.Status)
	assert.Nil(t, checkout.Order.ProviderOrderID)
}

func TestCreateOrderRejections(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, nil)
	ctx := context.Background()

	draft := f.addCourse(t, "unreleased", false)
	_, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: draft.ID})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	free := f.addCourse(t, "free-course", true)
	require.NoError(t, f.db.Model(free).Update("price_inr", 0).Error)
	_, err = svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: free.ID})
	_, ok := apperr.AsValidation(err)
	assert.True(t, ok, "orders need a positive amount")

	f.enroll(t, f.student, model.EnrollmentActive, nil)
	_, err = svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestCreateOrderGatewayFailureMarksFailed(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{fail: errors.New("upstream down")})

	_, err := svc.CreateOrder(context.Background(), f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.Error(t, err)

	var order model.Order
	require.NoError(t, f.db.Where("user_id = ?", f.student.ID).First(&order).Error)
	assert.Equal(t, model.OrderFailed, order.Status)
}

func TestVerifyPaymentActivatesEnrollment(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{})
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	providerOrderID := *checkout.Order.ProviderOrderID

	_, err = svc.VerifyPayment(ctx, f.student, VerifyPaymentRequest{OrderID: providerOrderID, PaymentID: "pay_1", Signature: "00"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidSignature))

	sig := razorpay.Sign([]byte(testKeySecret), []byte(razorpay.PaymentMessage(providerOrderID, "pay_1")))
	req := VerifyPaymentRequest{OrderID: providerOrderID, PaymentID: "pay_1", Signature: sig}
	order, err := svc.VerifyPayment(ctx, f.student, req)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, order.Status)

	_, err = svc.VerifyPayment(ctx, f.student, req)
	require.NoError(t, err, "verifying twice is idempotent")

	var payments []model.Payment
	require.NoError(t, f.db.Where("order_id = ?", order.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, model.PaymentCaptured, payments[0].Status)
	assert.Equal(t, model.EnrollmentActive, loadEnrollment(t, f, f.student.ID).Status)
}

func TestVerifyPaymentForeignOrder(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{})
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	id := *checkout.Order.ProviderOrderID
	sig := razorpay.Sign([]byte(testKeySecret), []byte(razorpay.PaymentMessage(id, "pay_x")))

	_, err = svc.VerifyPayment(ctx, f.instructor, VerifyPaymentRequest{OrderID: id, PaymentID: "pay_x", Signature: sig})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestWebhookCapturedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{})
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	body := webhookBody(t, razorpay.EventPaymentCaptured, "pay_9", *checkout.Order.ProviderOrderID, f.course.PriceINR)

	res, err := svc.HandleRazorpayWebhook(ctx, body, signed(body), "evt_1")
	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.True(t, res.Processed)
	assert.False(t, res.Duplicate)

	res, err = svc.HandleRazorpayWebhook(ctx, body, signed(body), "evt_1")
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	var count int64
	require.NoError(t, f.db.Model(&model.Payment{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	assert.Equal(t, model.EnrollmentActive, loadEnrollment(t, f, f.student.ID).Status)
}

func TestWebhookSignatureIsChecked(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, nil)
	body := webhookBody(t, razorpay.EventPaymentCaptured, "pay_1", "order_1", 100)

	_, err := svc.HandleRazorpayWebhook(context.Background(), body, nil, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidSignature))

	bad := "deadbeef"
	_, err = svc.HandleRazorpayWebhook(context.Background(), body, &bad, "")
	assert.True(t, errors.Is(err, apperr.ErrInvalidSignature))
}

func TestWebhookAmountMismatchReleasesKey(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{})
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	id := *checkout.Order.ProviderOrderID

	bad := webhookBody(t, razorpay.EventPaymentCaptured, "pay_2", id, 1)
	_, err = svc.HandleRazorpayWebhook(ctx, bad, signed(bad), "evt_2")
	_, ok := apperr.AsValidation(err)
	require.True(t, ok)

	good := webhookBody(t, razorpay.EventPaymentCaptured, "pay_2", id, f.course.PriceINR)
	res, err := svc.HandleRazorpayWebhook(ctx, good, signed(good), "evt_2")
	require.NoError(t, err)
	assert.True(t, res.Processed, "a failed delivery can be retried")
}

func TestWebhookFailedAndUnknownOrder(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{})
	ctx := context.Background()

	unknown := webhookBody(t, razorpay.EventPaymentCaptured, "pay_u", "order_missing", 100)
	res, err := svc.HandleRazorpayWebhook(ctx, unknown, signed(unknown), "")
	require.NoError(t, err)
	assert.False(t, res.Processed)

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	failed := webhookBody(t, razorpay.EventPaymentFailed, "pay_f", *checkout.Order.ProviderOrderID, f.course.PriceINR)
	res, err = svc.HandleRazorpayWebhook(ctx, failed, signed(failed), "")
	require.NoError(t, err)
	assert.True(t, res.Processed)

	var order model.Order
	require.NoError(t, f.db.First(&order, checkout.Order.ID).Error)
	assert.Equal(t, model.OrderFailed, order.Status)
}

func completedOrder(t *testing.T, f *fixture, svc *PaymentService) *model.Order {
	t.Helper()
	ctx := context.Background()
	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	id := *checkout.Order.ProviderOrderID
	sig := razorpay.Sign([]byte(testKeySecret), []byte(razorpay.PaymentMessage(id, "pay_done")))
	order, err := svc.VerifyPayment(ctx, f.student, VerifyPaymentRequest{OrderID: id, PaymentID: "pay_done", Signature: sig})
	require.NoError(t, err)
	return order
}

func TestRefundOrder(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{}
	svc := newPaymentService(f, gw)
	order := completedOrder(t, f, svc)
	ctx := context.Background()

	_, err := svc.RefundOrder(ctx, f.instructor, order.ID, RefundOrderRequest{Reason: "changed mind"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	refunded, err := svc.RefundOrder(ctx, f.student, order.ID, RefundOrderRequest{Reason: "changed mind"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderRefunded, refunded.Status)
	assert.Equal(t, []string{"pay_done"}, gw.refunded)
	require.Len(t, refunded.Payments, 1)
	assert.Equal(t, model.PaymentRefunded, refunded.Payments[0].Status)
	assert.Equal(t, model.EnrollmentRefunded, loadEnrollment(t, f, f.student.ID).Status)

	_, err = svc.RefundOrder(ctx, f.student, order.ID, RefundOrderRequest{Reason: "again"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestRefundOrderKeepsCompletedRefundsOnGatewayFailure(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{}
	svc := newPaymentService(f, gw)
	order := completedOrder(t, f, svc)
	ctx := context.Background()

	extra := model.Payment{OrderID: order.ID, ProviderPaymentID: "pay_extra", Status: model.PaymentCaptured, AmountINR: 100}
	require.NoError(t, f.db.Create(&extra).Error)
	gw.failRefund = map[string]error{"pay_extra": errors.New("gateway timeout")}

	_, err := svc.RefundOrder(ctx, f.student, order.ID, RefundOrderRequest{Reason: "changed mind"})
	require.Error(t, err)
	assert.Equal(t, []string{"pay_done"}, gw.refunded)

	var done, pending model.Payment
	require.NoError(t, f.db.Where("provider_payment_id = ?", "pay_done").First(&done).Error)
	require.NoError(t, f.db.First(&pending, extra.ID).Error)
	assert.Equal(t, model.PaymentRefunded, done.Status)
	assert.Equal(t, model.PaymentCaptured, pending.Status)

	var stored model.Order
	require.NoError(t, f.db.First(&stored, order.ID).Error)
	assert.Equal(t, model.OrderCompleted, stored.Status)

	// the retry only refunds what is still captured
	gw.failRefund = nil
	refunded, err := svc.RefundOrder(ctx, f.student, order.ID, RefundOrderRequest{Reason: "changed mind"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderRefunded, refunded.Status)
	assert.Equal(t, []string{"pay_done", "pay_extra"}, gw.refunded)
	assert.Equal(t, model.EnrollmentRefunded, loadEnrollment(t, f, f.student.ID).Status)
}

func TestRefundWebhook(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, &fakeGateway{})
	order := completedOrder(t, f, svc)

	body, err := json.Marshal(map[string]interface{}{
		"event": razorpay.EventRefundProcessed,
		"payload": map[string]interface{}{
			"refund": map[string]interface{}{"entity": map[string]interface{}{"id": "rfnd_1", "payment_id": "pay_done"}},
		},
	})
	require.NoError(t, err)

	res, err := svc.HandleRazorpayWebhook(context.Background(), body, signed(body), "evt_refund")
	require.NoError(t, err)
	assert.True(t, res.Processed)

	var got model.Order
	require.NoError(t, f.db.First(&got, order.ID).Error)
	assert.Equal(t, model.OrderRefunded, got.Status)
}

func TestRefundWithoutGateway(t *testing.T) {
	f := newFixture(t)
	order := completedOrder(t, f, newPaymentService(f, &fakeGateway{}))

	_, err := newPaymentService(f, nil).RefundOrder(context.Background(), f.admin, order.ID, RefundOrderRequest{Reason: "ops"})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestListAndGetOrders(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, nil)
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, f.student.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = svc.GetOrder(ctx, f.instructor, checkout.Order.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	got, err := svc.GetOrder(ctx, f.admin, checkout.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, checkout.Order.ReceiptNumber, got.ReceiptNumber)
}

func phonePeCallback(t *testing.T, code, receipt string, amount int) (phonepe.CallbackBody, string) {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"success": code == phonepe.CodePaymentSuccess,
		"code":    code,
		"data": map[string]interface{}{
			"merchantId": "MERCHANT", "merchantTransactionId": receipt, "transactionId": "T123",
			"amount": amount, "state": "COMPLETED", "paymentInstrument": map[string]string{"type": "UPI"},
		},
	})
	require.NoError(t, err)
	encoded := base64.StdEncoding.EncodeToString(raw)
	return phonepe.CallbackBody{Response: encoded}, phonepe.Checksum(encoded, "salt", "1")
}

func TestPhonePeCallbackCompletesOrder(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, nil)
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID, Provider: model.ProviderPhonePe})
	require.NoError(t, err)

	body, checksum := phonePeCallback(t, phonepe.CodePaymentSuccess, checkout.Order.ReceiptNumber, f.course.PriceINR)
	_, err = svc.HandlePhonePeCallback(ctx, body, checksum+"x")
	assert.True(t, errors.Is(err, apperr.ErrInvalidSignature))

	order, err := svc.HandlePhonePeCallback(ctx, body, checksum)
	require.NoError(t, err)
	assert.Equal(t, model.OrderCompleted, order.Status)
	assert.Equal(t, model.EnrollmentActive, loadEnrollment(t, f, f.student.ID).Status)
}

func TestFailStaleOrders(t *testing.T) {
	f := newFixture(t)
	svc := newPaymentService(f, nil)
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)

	n, err := svc.FailStaleOrders(ctx, time.Now(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = svc.FailStaleOrders(ctx, time.Now().Add(25*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var order model.Order
	require.NoError(t, f.db.First(&order, checkout.Order.ID).Error)
	assert.Equal(t, model.OrderFailed, order.Status)
}

func TestFailStaleOrdersChecksRazorpay(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{}
	svc := newPaymentService(f, gw)
	ctx := context.Background()

	unpaid, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	paid, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	gw.remote = map[string]string{*paid.Order.ProviderOrderID: razorpay.OrderStatusPaid}

	n, err := svc.FailStaleOrders(ctx, time.Now(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, gw.fetched)

	n, err = svc.FailStaleOrders(ctx, time.Now().Add(25*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.ElementsMatch(t, []string{*unpaid.Order.ProviderOrderID, *paid.Order.ProviderOrderID}, gw.fetched)

	var got model.Order
	require.NoError(t, f.db.First(&got, unpaid.Order.ID).Error)
	assert.Equal(t, model.OrderFailed, got.Status)
	require.NoError(t, f.db.First(&got, paid.Order.ID).Error)
	assert.Equal(t, model.OrderPending, got.Status)
}

func TestFailStaleOrdersSkipsUnreachableGateway(t *testing.T) {
	f := newFixture(t)
	gw := &fakeGateway{}
	svc := newPaymentService(f, gw)
	ctx := context.Background()

	checkout, err := svc.CreateOrder(ctx, f.student, CreateOrderRequest{CourseID: f.course.ID})
	require.NoError(t, err)
	gw.fail = errors.New("gateway down")

	n, err := svc.FailStaleOrders(ctx, time.Now().Add(25*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	var got model.Order
	require.NoError(t, f.db.First(&got, checkout.Order.ID).Error)
	assert.Equal(t, model.OrderPending, got.Status)
}

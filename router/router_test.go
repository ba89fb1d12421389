package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/database/dbtest"
	"github.com/sahilchouksey/byteboost-api/handlers"
	admin_handlers "github.com/sahilchouksey/byteboost-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/byteboost-api/handlers/auth"
	comment_handlers "github.com/sahilchouksey/byteboost-api/handlers/comment"
	course_handlers "github.com/sahilchouksey/byteboost-api/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/byteboost-api/handlers/enrollment"
	live_handlers "github.com/sahilchouksey/byteboost-api/handlers/live"
	payment_handlers "github.com/sahilchouksey/byteboost-api/handlers/payment"
	upload_handlers "github.com/sahilchouksey/byteboost-api/handlers/upload"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/services/livekit"
	"github.com/sahilchouksey/byteboost-api/services/razorpay"
	"github.com/sahilchouksey/byteboost-api/utils/auth"
	"github.com/sahilchouksey/byteboost-api/utils/cache"
	"github.com/sahilchouksey/byteboost-api/utils/crypto"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testKeySecret     = "rzp_test_secret"
	testWebhookSecret = "whsec_test"
)

type stubGateway struct{ n int }

func (g *stubGateway) CreateOrder(ctx context.Context, req razorpay.CreateOrderRequest) (*razorpay.Order, error) {
	g.n++
	return &razorpay.Order{ID: fmt.Sprintf("order_%d", g.n), Amount: req.Amount, Receipt: req.Receipt, Status: "created"}, nil
}

func (g *stubGateway) FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error) {
	return &razorpay.Order{ID: orderID, Status: "attempted"}, nil
}

func (g *stubGateway) RefundPayment(ctx context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error) {
	return &razorpay.Refund{ID: "rfnd_" + paymentID, PaymentID: paymentID, Status: "processed"}, nil
}

type testServer struct {
	app        *fiber.App
	db         *gorm.DB
	jwt        *auth.JWTManager
	instructor *model.User
	student    *model.User
	course     *model.Course
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := dbtest.New(t)
	log := logger.Nop()
	kv := cache.NewMemoryCache()
	store := database.NewGORMStore(db, log)

	jwtManager := auth.NewJWTManager(auth.JWTConfig{Secret: "test-jwt-secret", Expiry: time.Hour, Issuer: "byteboost-test"})
	revocations := auth.NewRevocationList(kv)
	sealer, err := crypto.NewSealer("test-secret-key")
	require.NoError(t, err)

	audit := services.NewAuditService(db)
	payments := services.NewPaymentService(db, services.PaymentConfig{
		Gateway:   &stubGateway{},
		KeyID:     "rzp_test_key",
		KeySecret: testKeySecret,
		Webhook:   razorpay.NewWebhookVerifier(testWebhookSecret, true),
		Dedup:     kv,
	}, log)
	live := services.NewLiveService(db, livekit.NewTokenIssuer("lk_key", "lk_secret"), "wss://live.test", log)
	users := services.NewUserService(db, sealer)

	app := fiber.New()
	middleware.SetupSecurity(app, middleware.SecurityConfig{AllowedOrigins: []string{"*"}})
	SetupRoutes(app, store, Handlers{
		Health:      handlers.NewHealthHandler(store, kv, "ByteBoost", "test"),
		Auth:        auth_handlers.NewAuthHandler(users, jwtManager, revocations, log),
		Course:      course_handlers.NewCourseHandler(services.NewCourseService(db)),
		Comment:     comment_handlers.NewCommentHandler(services.NewCommentService(db)),
		Enrollment:  enrollment_handlers.NewEnrollmentHandler(services.NewEnrollmentService(db)),
		Payment:     payment_handlers.NewPaymentHandler(payments, log),
		Live:        live_handlers.NewRoomHandler(live),
		Upload:      upload_handlers.NewUploadHandler(services.NewUploadService(nil, log)),
		Audit:       admin_handlers.NewAuditHandler(audit),
		AuthGuard:   middleware.NewAuthMiddleware(jwtManager, revocations, db),
		AuditRecord: audit,
	}, log)

	s := &testServer{app: app, db: db, jwt: jwtManager}
	s.instructor = s.user(t, "mentor@byteboost.in", model.RoleInstructor)
	s.student = s.user(t, "student@byteboost.in", model.RoleStudent)
	s.course = &model.Course{Title: "Go", Slug: "go", Summary: "Go services", PriceINR: 49900, IsPublished: true, OwnerID: s.instructor.ID}
	require.NoError(t, db.Create(s.course).Error)
	return s
}

func (s *testServer) user(t *testing.T, email string, role model.UserRole) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: "Test", Role: role, IsActive: true}
	require.NoError(t, s.db.Create(u).Error)
	return u
}

func (s *testServer) token(t *testing.T, u *model.User) string {
	t.Helper()
	issued, err := s.jwt.GenerateAccessToken(u)
	require.NoError(t, err)
	return issued.Token
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body []byte, headers map[string]string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHealthAndPing(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var check handlers.HealthCheck
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&check))
	assert.Equal(t, handlers.StatusHealthy, check.Status)
	assert.True(t, check.Database)

	resp, err = s.app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, s.student)

	status, _ := s.do(t, http.MethodGet, "/auth/me", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodPost, "/auth/logout", token, nil, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.do(t, http.MethodGet, "/auth/me", token, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodGet, "/auth/me", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateCourseIsAudited(t *testing.T) {
	s := newTestServer(t)
	body := mustJSON(t, map[string]interface{}{"title": "Rust", "slug": "rust", "summary": "Systems", "price_inr": 9900})

	status, _ := s.do(t, http.MethodPost, "/courses", s.token(t, s.student), body, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := s.do(t, http.MethodPost, "/courses", s.token(t, s.instructor), body, nil)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, env.Success)

	status, env = s.do(t, http.MethodPost, "/courses", s.token(t, s.instructor), body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status, "duplicate slug")
	require.NotNil(t, env.Error)

	var logs []model.AuditLog
	require.NoError(t, s.db.Find(&logs).Error)
	require.Len(t, logs, 1, "only the successful mutation is recorded")
	assert.Equal(t, s.instructor.ID, logs[0].ActorID)
	assert.Equal(t, "POST /courses", logs[0].Action)
	assert.Equal(t, "courses", logs[0].Target)
}

func TestListCoursesPaginates(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/courses?page=1&page_size=500", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Data       []model.Course `json:"data"`
		Pagination struct {
			PerPage int   `json:"per_page"`
			Total   int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Data, 1)
	assert.EqualValues(t, 1, page.Pagination.Total)
	assert.Equal(t, 100, page.Pagination.PerPage)
}

func TestCheckoutAndVerify(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, s.student)

	status, env := s.do(t, http.MethodPost, "/payments/razorpay/orders", token, mustJSON(t, map[string]interface{}{"course_id": s.course.ID}), nil)
	require.Equal(t, http.StatusCreated, status)
	var checkout services.Checkout
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	require.NotNil(t, checkout.Order.ProviderOrderID)
	assert.Equal(t, "rzp_test_key", checkout.KeyID)

	providerOrderID := *checkout.Order.ProviderOrderID
	verify := map[string]string{
		"razorpay_order_id":   providerOrderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "deadbeef",
	}
	status, env = s.do(t, http.MethodPost, "/payments/razorpay/verify", token, mustJSON(t, verify), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_SIGNATURE", env.Error.Code)

	verify["razorpay_signature"] = razorpay.Sign([]byte(testKeySecret), []byte(razorpay.PaymentMessage(providerOrderID, "pay_1")))
	status, env = s.do(t, http.MethodPost, "/payments/razorpay/verify", token, mustJSON(t, verify), nil)
	require.Equal(t, http.StatusOK, status)
	var result struct {
		Verified bool `json:"verified"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Verified)

	var enrollment model.Enrollment
	require.NoError(t, s.db.Where("user_id = ? AND course_id = ?", s.student.ID, s.course.ID).First(&enrollment).Error)
	assert.Equal(t, model.EnrollmentActive, enrollment.Status)
}

func TestRazorpayWebhook(t *testing.T) {
	s := newTestServer(t)
	body := mustJSON(t, map[string]interface{}{
		"entity": "event",
		"event":  razorpay.EventPaymentCaptured,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{"id": "pay_9", "order_id": "order_unknown", "amount": 100, "status": "captured"},
			},
		},
	})

	status, env := s.do(t, http.MethodPost, "/payments/razorpay/webhook", "", body, nil)
	assert.Equal(t, http.StatusBadRequest, status, "missing signature")
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_SIGNATURE", env.Error.Code)

	headers := map[string]string{
		razorpay.SignatureHeader: razorpay.Sign([]byte(testWebhookSecret), body),
		razorpay.EventIDHeader:   "evt_1",
	}
	status, env = s.do(t, http.MethodPost, "/payments/razorpay/webhook", "", body, headers)
	require.Equal(t, http.StatusOK, status)
	var first services.WebhookResult
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.True(t, first.Verified)
	assert.False(t, first.Duplicate)

	status, env = s.do(t, http.MethodPost, "/payments/razorpay/webhook", "", body, headers)
	require.Equal(t, http.StatusOK, status)
	var second services.WebhookResult
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.True(t, second.Duplicate)
}

func TestUploadsWithoutStorageAreUnavailable(t *testing.T) {
	s := newTestServer(t)
	body := mustJSON(t, map[string]string{"filename": "a.png", "content_type": "image/png"})

	status, env := s.do(t, http.MethodPost, "/uploads/presign", s.token(t, s.instructor), body, nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_CONFIGURED", env.Error.Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newTestServer(t)
	admin := s.user(t, "admin@byteboost.in", model.RoleAdmin)

	status, _ := s.do(t, http.MethodGet, "/admin/audit-logs", s.token(t, s.instructor), nil, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := s.do(t, http.MethodGet, "/admin/audit-logs?target=courses", s.token(t, admin), nil, nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

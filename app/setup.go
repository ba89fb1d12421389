package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/byteboost-api/api"
	"github.com/sahilchouksey/byteboost-api/config"
	"github.com/sahilchouksey/byteboost-api/database"
	"github.com/sahilchouksey/byteboost-api/handlers"
	admin_handlers "github.com/sahilchouksey/byteboost-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/byteboost-api/handlers/auth"
	comment_handlers "github.com/sahilchouksey/byteboost-api/handlers/comment"
	course_handlers "github.com/sahilchouksey/byteboost-api/handlers/course"
	enrollment_handlers "github.com/sahilchouksey/byteboost-api/handlers/enrollment"
	live_handlers "github.com/sahilchouksey/byteboost-api/handlers/live"
	payment_handlers "github.com/sahilchouksey/byteboost-api/handlers/payment"
	upload_handlers "github.com/sahilchouksey/byteboost-api/handlers/upload"
	"github.com/sahilchouksey/byteboost-api/router"
	"github.com/sahilchouksey/byteboost-api/services"
	"github.com/sahilchouksey/byteboost-api/services/cron"
	"github.com/sahilchouksey/byteboost-api/services/livekit"
	"github.com/sahilchouksey/byteboost-api/services/phonepe"
	"github.com/sahilchouksey/byteboost-api/services/razorpay"
	"github.com/sahilchouksey/byteboost-api/services/storage"
	"github.com/sahilchouksey/byteboost-api/utils/auth"
	"github.com/sahilchouksey/byteboost-api/utils/cache"
	"github.com/sahilchouksey/byteboost-api/utils/crypto"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"github.com/sahilchouksey/byteboost-api/utils/middleware"
)

const shutdownTimeout = 15 * time.Second

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}
	if err := env.Require("JWT_SECRET", "SECRET_KEY", "DB_NAME"); err != nil {
		return err
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		return err
	}
	defer log.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Error("failed to connect to database, check whether Postgres is running", "host", env.DB_HOST, "port", env.DB_PORT, "error", err)
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to initialize database tables: %w", err)
	}

	kv, redisCache := openCache(env, log)

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), env.APP_NAME, log)
	app := server.GetEngine()

	// Attach Middleware
	middleware.SetupSecurity(app, middleware.SecurityConfigFrom(env))

	deps, err := buildServices(env, store, kv, log)
	if err != nil {
		return err
	}

	router.SetupRoutes(app, store, deps.handlers(env, store, redisCache, log), log)

	// Cron jobs (enabled unless CRON_ENABLED=false)
	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(cron.Jobs{
			Rooms:       deps.live,
			Enrollments: deps.enrollments,
			Orders:      deps.payments,
		}, log)
		if err := cronManager.Start(); err != nil {
			// Don't fail the app, just log the warning
			log.Warn("failed to start cron jobs", "error", err)
		} else {
			defer cronManager.Stop()
		}
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}

// openCache connects to Redis, falling back to an in-process store so a single instance keeps working.
// The second result is nil while the fallback is in use, which /health reports as degraded.
func openCache(env *config.EnvironmentVariable, log *logger.Logger) (cache.Store, cache.Store) {
	redisCache, err := cache.NewRedisCache(env.REDIS_URL)
	if err != nil {
		log.Warn("failed to connect to Redis, using in-memory cache", "error", err)
		return cache.NewMemoryCache(), nil
	}
	return redisCache, redisCache
}

type dependencies struct {
	jwt         *auth.JWTManager
	revocations *auth.RevocationList
	users       *services.UserService
	courses     *services.CourseService
	comments    *services.CommentService
	enrollments *services.EnrollmentService
	payments    *services.PaymentService
	live        *services.LiveService
	uploads     *services.UploadService
	audit       *services.AuditService
}

func buildServices(env *config.EnvironmentVariable, store database.Storage, kv cache.Store, log *logger.Logger) (*dependencies, error) {
	db := store.GetDB()

	sealer, err := crypto.NewSealer(env.SECRET_KEY)
	if err != nil {
		return nil, err
	}

	// Object storage is optional; upload routes answer 503 without it
	var objects services.ObjectStore
	if env.R2_ACCOUNT_ID != "" && env.R2_ACCESS_KEY_ID != "" {
		r2, err := storage.NewR2Client(storage.R2Config{
			AccountID:       env.R2_ACCOUNT_ID,
			AccessKeyID:     env.R2_ACCESS_KEY_ID,
			SecretAccessKey: env.R2_SECRET_ACCESS_KEY,
			Bucket:          env.R2_BUCKET,
			Endpoint:        env.R2_ENDPOINT,
			PublicURL:       env.R2_PUBLIC_URL,
			UploadExpiry:    env.UPLOAD_URL_EXPIRY,
		})
		if err != nil {
			return nil, err
		}
		objects = r2
	} else {
		log.Warn("R2 storage not configured, uploads disabled")
	}

	paymentCfg := services.PaymentConfig{
		KeyID:     env.RAZORPAY_KEY_ID,
		KeySecret: env.RAZORPAY_KEY_SECRET,
		Webhook:   razorpay.NewWebhookVerifier(env.RAZORPAY_WEBHOOK_SECRET, env.RAZORPAY_REQUIRE_WEBHOOK_SIGNATURE),
		Dedup:     kv,
	}
	if env.RAZORPAY_KEY_ID != "" && env.RAZORPAY_KEY_SECRET != "" {
		client, err := razorpay.NewClient(razorpay.Config{KeyID: env.RAZORPAY_KEY_ID, KeySecret: env.RAZORPAY_KEY_SECRET})
		if err != nil {
			return nil, err
		}
		paymentCfg.Gateway = client
	} else {
		log.Warn("Razorpay keys not configured, orders are recorded without a provider order")
	}
	if env.PHONEPE_SALT_KEY != "" {
		paymentCfg.PhonePe = phonepe.NewVerifier(env.PHONEPE_MERCHANT_ID, env.PHONEPE_SALT_KEY, env.PHONEPE_SALT_INDEX)
	}

	tokens := livekit.NewTokenIssuer(env.LIVEKIT_API_KEY, env.LIVEKIT_API_SECRET)
	if !tokens.Configured() {
		log.Warn("LiveKit credentials not configured, room joins disabled")
	}

	return &dependencies{
		jwt: auth.NewJWTManager(auth.JWTConfig{
			Secret: env.JWT_SECRET,
			Expiry: env.JWT_EXPIRY,
			Issuer: env.JWT_ISSUER,
		}),
		revocations: auth.NewRevocationList(kv),
		users:       services.NewUserService(db, sealer),
		courses:     services.NewCourseService(db),
		comments:    services.NewCommentService(db),
		enrollments: services.NewEnrollmentService(db),
		payments:    services.NewPaymentService(db, paymentCfg, log.With("component", "payments")),
		live:        services.NewLiveService(db, tokens, env.LIVEKIT_URL, log.With("component", "live")),
		uploads:     services.NewUploadService(objects, log.With("component", "uploads")),
		audit:       services.NewAuditService(db),
	}, nil
}

func (d *dependencies) handlers(env *config.EnvironmentVariable, store database.Storage, redisCache cache.Store, log *logger.Logger) router.Handlers {
	return router.Handlers{
		Health:      handlers.NewHealthHandler(store, redisCache, env.APP_NAME, env.APP_VERSION),
		Auth:        auth_handlers.NewAuthHandler(d.users, d.jwt, d.revocations, log),
		Course:      course_handlers.NewCourseHandler(d.courses),
		Comment:     comment_handlers.NewCommentHandler(d.comments),
		Enrollment:  enrollment_handlers.NewEnrollmentHandler(d.enrollments),
		Payment:     payment_handlers.NewPaymentHandler(d.payments, log.With("component", "payments")),
		Live:        live_handlers.NewRoomHandler(d.live),
		Upload:      upload_handlers.NewUploadHandler(d.uploads),
		Audit:       admin_handlers.NewAuditHandler(d.audit),
		AuthGuard:   middleware.NewAuthMiddleware(d.jwt, d.revocations, store.GetDB()),
		AuditRecord: d.audit,
	}
}

package config

import (
	"errors"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sahilchouksey/byteboost-api/utils/apperr"
)

// LoadENV loads the ENVIRONMENT VARIABLES from .env when GO_ENV is unset or development.
// A missing .env file is not an error.
func LoadENV() error {
	goEnv := os.Getenv("GO_ENV")

	if goEnv == "" || goEnv == "development" {
		err := godotenv.Load()
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}

	return nil
}

type EnvironmentVariable struct {
	// All variables
	GO_ENV       string
	APP_NAME     string
	APP_VERSION  string
	DB_USER_NAME string
	DB_PASSWORD  string
	DB_NAME      string
	DB_HOST      string
	DB_PORT      string
	DB_SSL_MODE  string
	PORT         int
	// HTTP
	ALLOWED_ORIGINS       string
	RATE_LIMIT_PER_MINUTE int
	// JWT Configuration
	JWT_SECRET string
	JWT_ISSUER string
	JWT_EXPIRY time.Duration
	// Token sealing
	SECRET_KEY string
	// Redis Configuration
	REDIS_URL string
	// Cloudflare R2
	R2_ACCOUNT_ID        string
	R2_ACCESS_KEY_ID     string
	R2_SECRET_ACCESS_KEY string
	R2_BUCKET            string
	R2_ENDPOINT          string
	R2_PUBLIC_URL        string
	UPLOAD_URL_EXPIRY    time.Duration
	// Razorpay
	RAZORPAY_KEY_ID                    string
	RAZORPAY_KEY_SECRET                string
	RAZORPAY_WEBHOOK_SECRET            string
	RAZORPAY_REQUIRE_WEBHOOK_SIGNATURE bool
	// PhonePe
	PHONEPE_MERCHANT_ID string
	PHONEPE_SALT_KEY    string
	PHONEPE_SALT_INDEX  string
	// LiveKit
	LIVEKIT_API_KEY    string
	LIVEKIT_API_SECRET string
	LIVEKIT_URL        string
	// Jobs
	CRON_ENABLED bool
}

func Get() (*EnvironmentVariable, error) {

	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil {
		port = 8080
	}

	uploadExpiry := time.Duration(intOr("UPLOAD_URL_EXPIRY", 900)) * time.Second

	jwtExpiry, err := time.ParseDuration(os.Getenv("JWT_EXPIRY"))
	if err != nil || jwtExpiry <= 0 {
		jwtExpiry = 24 * time.Hour
	}

	envVariables := &EnvironmentVariable{
		GO_ENV:       os.Getenv("GO_ENV"),
		APP_NAME:     stringOr("APP_NAME", "ByteBoost E-Learning Platform"),
		APP_VERSION:  stringOr("APP_VERSION", "0.1.0"),
		DB_USER_NAME: os.Getenv("DB_USER_NAME"),
		DB_PASSWORD:  os.Getenv("DB_PASSWORD"),
		DB_NAME:      os.Getenv("DB_NAME"),
		DB_HOST:      stringOr("DB_HOST", "localhost"),
		DB_PORT:      stringOr("DB_PORT", "5432"),
		DB_SSL_MODE:  stringOr("DB_SSL_MODE", "disable"),
		PORT:         port,
		// HTTP
		ALLOWED_ORIGINS:       stringOr("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8000"),
		RATE_LIMIT_PER_MINUTE: intOr("RATE_LIMIT_PER_MINUTE", 60),
		// JWT
		JWT_SECRET: os.Getenv("JWT_SECRET"),
		JWT_ISSUER: stringOr("JWT_ISSUER", "byteboost-api"),
		JWT_EXPIRY: jwtExpiry,
		SECRET_KEY: os.Getenv("SECRET_KEY"),
		// Redis
		REDIS_URL: stringOr("REDIS_URL", "redis://localhost:6379/0"),
		// R2
		R2_ACCOUNT_ID:        os.Getenv("R2_ACCOUNT_ID"),
		R2_ACCESS_KEY_ID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2_SECRET_ACCESS_KEY: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2_BUCKET:            stringOr("R2_BUCKET", "byteboost-courses"),
		R2_ENDPOINT:          os.Getenv("R2_ENDPOINT"),
		R2_PUBLIC_URL:        os.Getenv("R2_PUBLIC_URL"),
		UPLOAD_URL_EXPIRY:    uploadExpiry,
		// Razorpay
		RAZORPAY_KEY_ID:                    os.Getenv("RAZORPAY_KEY_ID"),
		RAZORPAY_KEY_SECRET:                os.Getenv("RAZORPAY_KEY_SECRET"),
		RAZORPAY_WEBHOOK_SECRET:            os.Getenv("RAZORPAY_WEBHOOK_SECRET"),
		RAZORPAY_REQUIRE_WEBHOOK_SIGNATURE: boolOr("RAZORPAY_REQUIRE_WEBHOOK_SIGNATURE", true),
		// PhonePe
		PHONEPE_MERCHANT_ID: os.Getenv("PHONEPE_MERCHANT_ID"),
		PHONEPE_SALT_KEY:    os.Getenv("PHONEPE_SALT_KEY"),
		PHONEPE_SALT_INDEX:  stringOr("PHONEPE_SALT_INDEX", "1"),
		// LiveKit
		LIVEKIT_API_KEY:    os.Getenv("LIVEKIT_API_KEY"),
		LIVEKIT_API_SECRET: os.Getenv("LIVEKIT_API_SECRET"),
		LIVEKIT_URL:        os.Getenv("LIVEKIT_URL"),
		// Jobs
		CRON_ENABLED: boolOr("CRON_ENABLED", true),
	}

	return envVariables, nil
}

// Require returns a ConfigurationError naming the first of names that holds its zero value.
// Names are the struct field names, e.g. "LIVEKIT_API_KEY".
func (e *EnvironmentVariable) Require(names ...string) error {
	v := reflect.ValueOf(e).Elem()
	for _, name := range names {
		f := v.FieldByName(name)
		if !f.IsValid() || f.IsZero() {
			return apperr.MissingConfig(name)
		}
	}
	return nil
}

// IsProduction reports whether GO_ENV selects the production profile
func (e *EnvironmentVariable) IsProduction() bool {
	return e.GO_ENV == "production"
}

// Origins splits ALLOWED_ORIGINS into its entries
func (e *EnvironmentVariable) Origins() []string {
	var out []string
	for _, o := range strings.Split(e.ALLOWED_ORIGINS, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func stringOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func boolOr(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

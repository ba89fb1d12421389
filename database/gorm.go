package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/byteboost-api/config"
	"github.com/sahilchouksey/byteboost-api/model"
	"github.com/sahilchouksey/byteboost-api/utils/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Storage is the persistence handle passed to the rest of the application
type Storage interface {
	// Lifecycle methods
	Init() error
	Close() error
	HealthCheck(ctx context.Context) error

	// GetDB returns the GORM handle used by services
	GetDB() *gorm.DB
}

type GORMStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// Models lists every table in migration order
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.OAuthAccount{},

		// Catalog
		&model.Course{},
		&model.Module{},
		&model.Lesson{},
		&model.Comment{},

		// Commerce
		&model.Enrollment{},
		&model.Order{},
		&model.Payment{},

		// Live classes
		&model.LiveRoom{},
		&model.Attendance{},

		&model.AuditLog{},
	}
}

// StartGORM initializes a GORM connection to PostgreSQL
func StartGORM(cfg *config.EnvironmentVariable, log *logger.Logger) (*GORMStore, error) {
	// Build DSN (Data Source Name)
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DB_HOST,
		cfg.DB_USER_NAME,
		cfg.DB_PASSWORD,
		cfg.DB_NAME,
		cfg.DB_PORT,
		cfg.DB_SSL_MODE,
	)

	// Configure GORM logger
	gormLogger := gormlogger.Default.LogMode(gormlogger.Info)
	if cfg.IsProduction() {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Error)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		PrepareStmt:    true,
		TranslateError: true,
	})
	if err != nil {
		log.Error("unable to connect to PostgreSQL", "host", cfg.DB_HOST, "error", err)
		return nil, err
	}

	// Get underlying *sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to PostgreSQL", "host", cfg.DB_HOST, "database", cfg.DB_NAME)

	return NewGORMStore(db, log), nil
}

// NewGORMStore wraps an already opened connection
func NewGORMStore(db *gorm.DB, log *logger.Logger) *GORMStore {
	return &GORMStore{db: db, log: log}
}

// Migrate creates or updates every table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Init runs the AutoMigrate to create/update tables
func (s *GORMStore) Init() error {
	s.log.Info("running AutoMigrate", "models", len(Models()))

	if err := Migrate(s.db); err != nil {
		s.log.Error("AutoMigrate failed", "error", err)
		return err
	}

	s.log.Info("AutoMigrate completed")
	return nil
}

// Close closes the database connection
func (s *GORMStore) Close() error {
	s.log.Info("closing database connection")
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetDB returns the GORM DB instance for use in services and handlers
func (s *GORMStore) GetDB() *gorm.DB {
	return s.db
}

// HealthCheck runs SELECT 1 against the database
func (s *GORMStore) HealthCheck(ctx context.Context) error {
	var one int
	return s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error
}

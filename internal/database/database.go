package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"libhub/internal/config"
	"libhub/internal/models"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// RentedLoanIndex is the partial unique index allowing at most one RENTED
// loan per (user, book).
const RentedLoanIndex = "uniq_rented_loan"

// Open connects to PostgreSQL and tunes the pool from cfg.
func Open(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get generic DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates the schema. The partial index is plain SQL that
// both PostgreSQL and SQLite accept.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Language{},
		&models.Publisher{},
		&models.Genre{},
		&models.Author{},
		&models.Book{},
		&models.User{},
		&models.Loan{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON loans (user_id, book_id) WHERE status = '%s'",
		RentedLoanIndex, models.LoanStatusRented,
	)
	if err := db.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create %s: %w", RentedLoanIndex, err)
	}
	return nil
}

// IsUniqueViolation reports whether err came from a unique constraint,
// whichever driver produced it.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), uniqueViolation)
}

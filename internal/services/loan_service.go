package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"libhub/internal/database"
	"libhub/internal/models"
	"libhub/internal/repositories"
)

// LoanPeriodDays is how long a rented book may be kept.
const LoanPeriodDays = 14

type (
	LoanFilter      = repositories.LoanFilter
	BookRentalCount = repositories.BookRentalCount
)

// LoanService owns the loan ledger. Loans are created by Rent, closed by
// Return or ExpireOverdue, and never deleted.
type LoanService interface {
	Rent(ctx context.Context, user *models.User, bookID uuid.UUID) (*models.Loan, error)
	Return(ctx context.Context, user *models.User, loanID uuid.UUID) (*models.Loan, error)
	ListRented(ctx context.Context, user *models.User) ([]models.Loan, error)
	ListLoans(ctx context.Context, f LoanFilter) ([]models.Loan, error)
	RentalStats(ctx context.Context) ([]BookRentalCount, error)
	ExpireOverdue(ctx context.Context, today time.Time) (int64, error)
}

type loanService struct {
	db     *gorm.DB
	books  repositories.BookRepository
	loans  repositories.LoanRepository
	tracer trace.Tracer
	now    func() time.Time
}

func NewLoanService(db *gorm.DB, books repositories.BookRepository, loans repositories.LoanRepository) LoanService {
	return &loanService{
		db:     db,
		books:  books,
		loans:  loans,
		tracer: otel.Tracer("libhub/loans"),
		now:    time.Now,
	}
}

// dayOf truncates t to its UTC calendar day.
func dayOf(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ─── Rent ─────────────────────────────────────────────────────────────────────

// Rent opens a RENTED loan for user on an active book, due LoanPeriodDays
// from today. The book row is locked for the check-then-insert, and the
// uniq_rented_loan index rejects any duplicate that still slips through.
func (s *loanService) Rent(ctx context.Context, user *models.User, bookID uuid.UUID) (*models.Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loans.rent",
		trace.WithAttributes(attribute.String("book.id", bookID.String())),
	)
	defer span.End()

	if user == nil {
		span.RecordError(ErrAuthenticationRequired)
		return nil, ErrAuthenticationRequired
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	var loan *models.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := s.books.GetActiveForUpdate(tx, bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookNotFound
			}
			return err
		}

		existing, err := s.loans.FindRented(tx, user.ID, bookID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			span.SetAttributes(attribute.String("existing.loan.id", existing.ID.String()))
			return ErrAlreadyRented
		}

		today := time.Time(dayOf(s.now()))
		loan = &models.Loan{
			UserID:     user.ID,
			BookID:     book.ID,
			BorrowDate: datatypes.Date(today),
			ReturnDate: datatypes.Date(today.AddDate(0, 0, LoanPeriodDays)),
			Status:     models.LoanStatusRented,
		}
		if err := s.loans.Create(tx, loan); err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyRented
			}
			return err
		}
		loan.Book = book
		return nil
	})
	if err != nil {
		span.RecordError(err)
		logFailure("Rent (user="+user.ID.String()+" book="+bookID.String()+")", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	log.Printf("[INFO] Rent: loan %s created for user %s / book %s, due %s",
		loan.ID, user.ID, bookID, time.Time(loan.ReturnDate).Format("2006-01-02"))
	return loan, nil
}

// ─── Return ───────────────────────────────────────────────────────────────────

// Return closes one of the caller's RENTED loans. Loans of other users and
// loans no longer RENTED are reported as ErrLoanNotFound. Dates are kept.
func (s *loanService) Return(ctx context.Context, user *models.User, loanID uuid.UUID) (*models.Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loans.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	if user == nil {
		span.RecordError(ErrAuthenticationRequired)
		return nil, ErrAuthenticationRequired
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	var loan *models.Loan
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.loans.GetRentedForUpdate(tx, loanID, user.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLoanNotFound
			}
			return err
		}
		if found.UserID != user.ID {
			return ErrForbidden
		}

		if err := s.loans.UpdateStatus(tx, found.ID, models.LoanStatusReturned); err != nil {
			return err
		}
		found.Status = models.LoanStatusReturned
		loan = found
		return nil
	})
	if err != nil {
		span.RecordError(err)
		logFailure("Return (user="+user.ID.String()+" loan="+loanID.String()+")", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("book.id", loan.BookID.String()))
	log.Printf("[INFO] Return: loan %s returned by user %s", loan.ID, user.ID)
	return loan, nil
}

// ─── Queries ──────────────────────────────────────────────────────────────────

// ListRented returns the caller's open loans with their books.
func (s *loanService) ListRented(ctx context.Context, user *models.User) ([]models.Loan, error) {
	if user == nil {
		return nil, ErrAuthenticationRequired
	}
	return s.loans.ListByUser(s.db.WithContext(ctx), user.ID, models.LoanStatusRented)
}

func (s *loanService) ListLoans(ctx context.Context, f LoanFilter) ([]models.Loan, error) {
	return s.loans.List(s.db.WithContext(ctx), f)
}

// RentalStats counts every loan ever made per book, most rented first.
func (s *loanService) RentalStats(ctx context.Context) ([]BookRentalCount, error) {
	return s.loans.CountByBook(s.db.WithContext(ctx))
}

// ─── Expiry ───────────────────────────────────────────────────────────────────

// ExpireOverdue moves RENTED loans whose return date is before today to
// EXPIRED. Expired loans no longer block renting the same book again.
func (s *loanService) ExpireOverdue(ctx context.Context, today time.Time) (int64, error) {
	n, err := s.loans.ExpireBefore(s.db.WithContext(ctx), dayOf(today))
	if err != nil {
		log.Printf("[ERROR] ExpireOverdue: %v", err)
		return 0, err
	}
	if n > 0 {
		log.Printf("[INFO] ExpireOverdue: %d loan(s) expired", n)
	}
	return n, nil
}

package repositories

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"libhub/internal/models"
)

// LoanFilter narrows List. Zero fields do not filter.
type LoanFilter struct {
	Status models.LoanStatus
	UserID uuid.UUID
	BookID uuid.UUID
}

// BookRentalCount is one row of the per-book rental statistics.
type BookRentalCount struct {
	BookID   uuid.UUID `json:"book_id"`
	BookName string    `json:"book_name"`
	Total    int64     `json:"total"`
}

type LoanRepository interface {
	Create(db *gorm.DB, loan *models.Loan) error
	FindRented(db *gorm.DB, userID, bookID uuid.UUID) (*models.Loan, error)
	GetRentedForUpdate(db *gorm.DB, id, userID uuid.UUID) (*models.Loan, error)
	UpdateStatus(db *gorm.DB, id uuid.UUID, status models.LoanStatus) error
	ListByUser(db *gorm.DB, userID uuid.UUID, status models.LoanStatus) ([]models.Loan, error)
	List(db *gorm.DB, f LoanFilter) ([]models.Loan, error)
	CountByBook(db *gorm.DB) ([]BookRentalCount, error)
	ExpireBefore(db *gorm.DB, day datatypes.Date) (int64, error)
}

type loanRepository struct {
	db *gorm.DB
}

func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(db *gorm.DB, loan *models.Loan) error {
	if db == nil {
		db = r.db
	}
	return db.Omit(clause.Associations).Create(loan).Error
}

func (r *loanRepository) FindRented(db *gorm.DB, userID, bookID uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	err := db.
		Where("user_id = ? AND book_id = ? AND status = ?", userID, bookID, models.LoanStatusRented).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// GetRentedForUpdate locks the loan only if it belongs to userID and is
// still RENTED.
func (r *loanRepository) GetRentedForUpdate(db *gorm.DB, id, userID uuid.UUID) (*models.Loan, error) {
	if db == nil {
		db = r.db
	}
	var loan models.Loan
	err := db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ? AND status = ?", id, userID, models.LoanStatusRented).
		First(&loan).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (r *loanRepository) UpdateStatus(db *gorm.DB, id uuid.UUID, status models.LoanStatus) error {
	if db == nil {
		db = r.db
	}
	return db.Model(&models.Loan{}).
		Where("id = ?", id).
		Update("status", status).
		Error
}

func (r *loanRepository) ListByUser(db *gorm.DB, userID uuid.UUID, status models.LoanStatus) ([]models.Loan, error) {
	return r.List(db, LoanFilter{UserID: userID, Status: status})
}

func (r *loanRepository) List(db *gorm.DB, f LoanFilter) ([]models.Loan, error) {
	if db == nil {
		db = r.db
	}
	q := db.Preload("Book")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.UserID != uuid.Nil {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.BookID != uuid.Nil {
		q = q.Where("book_id = ?", f.BookID)
	}

	var loans []models.Loan
	if err := q.Order("borrow_date DESC, created_at DESC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// CountByBook counts every loan ever made per book, most rented first.
func (r *loanRepository) CountByBook(db *gorm.DB) ([]BookRentalCount, error) {
	if db == nil {
		db = r.db
	}
	var rows []BookRentalCount
	err := db.Model(&models.Loan{}).
		Select("loans.book_id AS book_id, books.name AS book_name, COUNT(loans.id) AS total").
		Joins("JOIN books ON books.id = loans.book_id").
		Group("loans.book_id, books.name").
		Order("total DESC, books.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ExpireBefore moves RENTED loans whose return date is earlier than day to
// EXPIRED.
func (r *loanRepository) ExpireBefore(db *gorm.DB, day datatypes.Date) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.Loan{}).
		Where("status = ? AND return_date < ?", models.LoanStatusRented, day).
		Update("status", models.LoanStatusExpired)
	return res.RowsAffected, res.Error
}

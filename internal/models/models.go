package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LoanStatus string

const (
	LoanStatusRented   LoanStatus = "RENTED"
	LoanStatusExpired  LoanStatus = "EXPIRED"
	LoanStatusReturned LoanStatus = "RETURNED"
)

// Valid reports whether s is one of the declared loan statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusRented, LoanStatusExpired, LoanStatusReturned:
		return true
	}
	return false
}

// ErrReturnBeforeBorrow is returned by the Loan hook when return_date precedes borrow_date.
var ErrReturnBeforeBorrow = errors.New("return date cannot be earlier than borrow date")

type Language struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:30;not null;uniqueIndex" json:"name"`
	CharsCode string    `gorm:"size:5;not null;uniqueIndex" json:"chars_code"`
	IsDeleted bool      `gorm:"not null;index" json:"is_deleted"`
}

type Publisher struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:30;not null;uniqueIndex" json:"name"`
	Address   string    `gorm:"size:100;not null" json:"address"`
	IsDeleted bool      `gorm:"not null;index" json:"is_deleted"`
}

type Genre struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:30;not null;uniqueIndex" json:"name"`
	IsDeleted bool      `gorm:"not null;index" json:"is_deleted"`
}

type Author struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName  string    `gorm:"size:30;not null" json:"first_name"`
	LastName   string    `gorm:"size:30;not null" json:"last_name"`
	MiddleName *string   `gorm:"size:30" json:"middle_name,omitempty"`
	IsDeleted  bool      `gorm:"not null;index" json:"is_deleted"`
}

// FullName renders "First Last", the form used in listings and exports.
func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

type Book struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string      `gorm:"size:255;not null;index" json:"name"`
	PublicationYear int         `gorm:"not null" json:"publication_year"`
	LanguageID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"language_id"`
	Language        *Language   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"language,omitempty"`
	CoverURL        string      `gorm:"size:500;not null" json:"cover_url"`
	IsDeleted       bool        `gorm:"not null;index" json:"is_deleted"`
	Publishers      []Publisher `gorm:"many2many:book_publishers;" json:"publishers"`
	Genres          []Genre     `gorm:"many2many:book_genres;" json:"genres"`
	Authors         []Author    `gorm:"many2many:book_authors;" json:"authors"`
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"size:254;not null;uniqueIndex" json:"email"`
	FirstName    string    `gorm:"size:150" json:"first_name,omitempty"`
	LastName     string    `gorm:"size:150" json:"last_name,omitempty"`
	PasswordHash string    `gorm:"size:128;not null" json:"-"`
	IsActive     bool      `gorm:"not null" json:"is_active"`
	IsStaff      bool      `gorm:"not null" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// Loan is one row of the loan ledger. Rows are never deleted.
type Loan struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"`
	BookID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"book_id"`
	Book       *Book          `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"book,omitempty"`
	BorrowDate datatypes.Date `gorm:"not null" json:"borrow_date"`
	ReturnDate datatypes.Date `gorm:"not null" json:"return_date"`
	Status     LoanStatus     `gorm:"size:8;not null;index" json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (l *Language) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	return nil
}

func (p *Publisher) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

func (g *Genre) BeforeCreate(tx *gorm.DB) error {
	assignID(&g.ID)
	return nil
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	assignID(&l.ID)
	if !l.Status.Valid() {
		return fmt.Errorf("invalid loan status %q", l.Status)
	}
	if time.Time(l.ReturnDate).Before(time.Time(l.BorrowDate)) {
		return ErrReturnBeforeBorrow
	}
	return nil
}

func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

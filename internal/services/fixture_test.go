package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"libhub/internal/auth"
	"libhub/internal/database/dbtest"
	"libhub/internal/models"
	"libhub/internal/registry"
	"libhub/internal/repositories"
	"libhub/internal/validation"
)

type fixture struct {
	db       *gorm.DB
	catalog  CatalogService
	accounts AccountService
	loans    *loanService
	export   ExportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.New(t)
	v := validation.New()
	reg := registry.Default()
	books := repositories.NewBookRepository(db)

	return &fixture{
		db: db,
		catalog: NewCatalogService(db, reg, v,
			repositories.NewCatalogRepository[models.Language](db),
			repositories.NewCatalogRepository[models.Publisher](db),
			repositories.NewCatalogRepository[models.Genre](db),
			repositories.NewCatalogRepository[models.Author](db),
			books,
		),
		accounts: NewAccountService(db, v, repositories.NewUserRepository(db), auth.NewTokenIssuer("test-secret", time.Hour)),
		loans:    NewLoanService(db, books, repositories.NewLoanRepository(db)).(*loanService),
		export:   NewExportService(db, reg, repositories.NewExportRepository(db), books),
	}
}

func (f *fixture) language(t *testing.T, name, code string) *models.Language {
	t.Helper()
	lang, err := f.catalog.CreateLanguage(context.Background(), LanguageInput{Name: name, CharsCode: code})
	require.NoError(t, err)
	return lang
}

func (f *fixture) genre(t *testing.T, name string) *models.Genre {
	t.Helper()
	g, err := f.catalog.CreateGenre(context.Background(), GenreInput{Name: name})
	require.NoError(t, err)
	return g
}

func (f *fixture) author(t *testing.T, first, last string) *models.Author {
	t.Helper()
	a, err := f.catalog.CreateAuthor(context.Background(), AuthorInput{FirstName: first, LastName: last})
	require.NoError(t, err)
	return a
}

func (f *fixture) book(t *testing.T, name string, lang *models.Language, genres []uuid.UUID, authors []uuid.UUID) *models.Book {
	t.Helper()
	b, err := f.catalog.CreateBook(context.Background(), BookInput{
		Name:            name,
		PublicationYear: 1965,
		LanguageID:      lang.ID,
		CoverURL:        "https://covers.example.com/" + uuid.NewString() + ".jpg",
		GenreIDs:        genres,
		AuthorIDs:       authors,
	})
	require.NoError(t, err)
	return b
}

// user inserts an active user directly; bcrypt is exercised by the account tests.
func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "unused", IsActive: true}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) loanStatus(t *testing.T, id uuid.UUID) models.LoanStatus {
	t.Helper()
	var loan models.Loan
	require.NoError(t, f.db.First(&loan, "id = ?", id).Error)
	return loan.Status
}

func (f *fixture) loanCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Loan{}).Count(&n).Error)
	return n
}

package repositories

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libhub/internal/models"
)

// BookFilter narrows ListActive. Zero fields do not filter.
type BookFilter struct {
	GenreID    uuid.UUID
	AuthorID   uuid.UUID
	LanguageID uuid.UUID
	// Title matches case-insensitively anywhere in the book name.
	Title string
}

type BookRepository interface {
	CatalogRepository[models.Book]
	CreateWithLinks(db *gorm.DB, book *models.Book) error
	GetWithRelations(db *gorm.DB, id uuid.UUID, activeOnly bool) (*models.Book, error)
	ListActiveFiltered(db *gorm.DB, f BookFilter) ([]models.Book, error)
	ListAllWithRelations(db *gorm.DB) ([]models.Book, error)
	ReplaceLinks(db *gorm.DB, book *models.Book, publishers []models.Publisher, genres []models.Genre, authors []models.Author) error
}

type bookRepository struct {
	CatalogRepository[models.Book]
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{
		CatalogRepository: NewCatalogRepository[models.Book](db),
		db:                db,
	}
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Language").
		Preload("Publishers").
		Preload("Genres").
		Preload("Authors")
}

// CreateWithLinks inserts the book and its join rows without touching the
// linked catalog rows themselves.
func (r *bookRepository) CreateWithLinks(db *gorm.DB, book *models.Book) error {
	if db == nil {
		db = r.db
	}
	return db.Omit("Language", "Publishers.*", "Genres.*", "Authors.*").Create(book).Error
}

func (r *bookRepository) GetWithRelations(db *gorm.DB, id uuid.UUID, activeOnly bool) (*models.Book, error) {
	if db == nil {
		db = r.db
	}
	q := withRelations(db).Where("id = ?", id)
	if activeOnly {
		q = q.Where("is_deleted = ?", false)
	}
	var book models.Book
	if err := q.First(&book).Error; err != nil {
		return nil, err
	}
	return &book, nil
}

func (r *bookRepository) ListActiveFiltered(db *gorm.DB, f BookFilter) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	q := withRelations(db).Where("books.is_deleted = ?", false)

	if f.GenreID != uuid.Nil {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("book_genres").Select("book_id").Where("genre_id = ?", f.GenreID)
		q = q.Where("books.id IN (?)", sub)
	}
	if f.AuthorID != uuid.Nil {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Table("book_authors").Select("book_id").Where("author_id = ?", f.AuthorID)
		q = q.Where("books.id IN (?)", sub)
	}
	if f.LanguageID != uuid.Nil {
		q = q.Where("books.language_id = ?", f.LanguageID)
	}
	if title := strings.TrimSpace(f.Title); title != "" {
		q = q.Where("LOWER(books.name) LIKE ?", "%"+strings.ToLower(title)+"%")
	}

	var books []models.Book
	if err := q.Order("books.name").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// ListAllWithRelations includes deleted books.
func (r *bookRepository) ListAllWithRelations(db *gorm.DB) ([]models.Book, error) {
	if db == nil {
		db = r.db
	}
	var books []models.Book
	if err := withRelations(db).Order("name").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// ReplaceLinks swaps every many-to-many link of book for the given rows.
func (r *bookRepository) ReplaceLinks(db *gorm.DB, book *models.Book, publishers []models.Publisher, genres []models.Genre, authors []models.Author) error {
	if db == nil {
		db = r.db
	}
	links := []struct {
		name   string
		values any
		empty  bool
	}{
		{"Publishers", publishers, len(publishers) == 0},
		{"Genres", genres, len(genres) == 0},
		{"Authors", authors, len(authors) == 0},
	}
	for _, l := range links {
		assoc := db.Model(book).Omit(l.name + ".*").Association(l.name)
		var err error
		if l.empty {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(l.values)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

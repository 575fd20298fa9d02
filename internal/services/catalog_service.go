package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libhub/internal/database"
	"libhub/internal/models"
	"libhub/internal/registry"
	"libhub/internal/repositories"
	"libhub/internal/validation"
)

// ─── Inputs ───────────────────────────────────────────────────────────────────

type LanguageInput struct {
	Name      string `json:"name" validate:"required,min=3,max=20,letters"`
	CharsCode string `json:"chars_code" validate:"required,min=2,max=5,upper"`
}

type PublisherInput struct {
	Name    string `json:"name" validate:"required,min=2,max=20,letters"`
	Address string `json:"address" validate:"required,min=5,max=100,address"`
}

type GenreInput struct {
	Name string `json:"name" validate:"required,min=2,max=30,letters"`
}

type AuthorInput struct {
	FirstName  string  `json:"first_name" validate:"required,min=2,max=20,letters"`
	LastName   string  `json:"last_name" validate:"required,min=2,max=20,letters"`
	MiddleName *string `json:"middle_name" validate:"omitempty,min=1,max=20,letters"`
}

type BookInput struct {
	Name            string      `json:"name" validate:"required,min=3,max=255,bookname"`
	PublicationYear int         `json:"publication_year" validate:"gt=0"`
	LanguageID      uuid.UUID   `json:"language_id" validate:"required"`
	CoverURL        string      `json:"cover_url" validate:"required,max=500,url"`
	PublisherIDs    []uuid.UUID `json:"publisher_ids"`
	GenreIDs        []uuid.UUID `json:"genre_ids"`
	AuthorIDs       []uuid.UUID `json:"author_ids"`
}

type BookFilter = repositories.BookFilter

func (in *LanguageInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.CharsCode = strings.TrimSpace(in.CharsCode)
}

func (in *PublisherInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
}

func (in *GenreInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
}

func (in *AuthorInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.MiddleName != nil {
		middle := strings.TrimSpace(*in.MiddleName)
		if middle == "" {
			in.MiddleName = nil
		} else {
			in.MiddleName = &middle
		}
	}
}

func (in *BookInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.CoverURL = strings.TrimSpace(in.CoverURL)
}

// ─── Service Interface ────────────────────────────────────────────────────────

// CatalogService manages the soft-deletable catalog: languages, publishers,
// genres, authors and books.
type CatalogService interface {
	CreateLanguage(ctx context.Context, in LanguageInput) (*models.Language, error)
	UpdateLanguage(ctx context.Context, id uuid.UUID, in LanguageInput) (*models.Language, error)
	GetLanguage(ctx context.Context, id uuid.UUID) (*models.Language, error)
	ListLanguages(ctx context.Context) ([]models.Language, error)

	CreatePublisher(ctx context.Context, in PublisherInput) (*models.Publisher, error)
	UpdatePublisher(ctx context.Context, id uuid.UUID, in PublisherInput) (*models.Publisher, error)
	GetPublisher(ctx context.Context, id uuid.UUID) (*models.Publisher, error)
	ListPublishers(ctx context.Context) ([]models.Publisher, error)

	CreateGenre(ctx context.Context, in GenreInput) (*models.Genre, error)
	UpdateGenre(ctx context.Context, id uuid.UUID, in GenreInput) (*models.Genre, error)
	GetGenre(ctx context.Context, id uuid.UUID) (*models.Genre, error)
	ListGenres(ctx context.Context) ([]models.Genre, error)

	CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error)
	UpdateAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) (*models.Author, error)
	GetAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error)
	ListAuthors(ctx context.Context) ([]models.Author, error)

	CreateBook(ctx context.Context, in BookInput) (*models.Book, error)
	UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*models.Book, error)
	GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error)
	ListBooks(ctx context.Context, f BookFilter) ([]models.Book, error)

	SoftDelete(ctx context.Context, kind registry.Kind, ids []uuid.UUID) (int64, error)
	Restore(ctx context.Context, kind registry.Kind, ids []uuid.UUID) (int64, error)
}

// ─── Implementation ───────────────────────────────────────────────────────────

type softDeleter interface {
	CountByIDs(db *gorm.DB, ids []uuid.UUID) (int64, error)
	SetDeleted(db *gorm.DB, ids []uuid.UUID, deleted bool) error
}

type catalogService struct {
	db         *gorm.DB
	registry   *registry.Registry
	validate   *validation.Validator
	languages  repositories.CatalogRepository[models.Language]
	publishers repositories.CatalogRepository[models.Publisher]
	genres     repositories.CatalogRepository[models.Genre]
	authors    repositories.CatalogRepository[models.Author]
	books      repositories.BookRepository
	bulk       map[registry.Kind]softDeleter
}

// NewCatalogService wires up all dependencies and returns a CatalogService.
func NewCatalogService(
	db *gorm.DB,
	reg *registry.Registry,
	validate *validation.Validator,
	languages repositories.CatalogRepository[models.Language],
	publishers repositories.CatalogRepository[models.Publisher],
	genres repositories.CatalogRepository[models.Genre],
	authors repositories.CatalogRepository[models.Author],
	books repositories.BookRepository,
) CatalogService {
	return &catalogService{
		db:         db,
		registry:   reg,
		validate:   validate,
		languages:  languages,
		publishers: publishers,
		genres:     genres,
		authors:    authors,
		books:      books,
		bulk: map[registry.Kind]softDeleter{
			registry.KindLanguages:  languages,
			registry.KindPublishers: publishers,
			registry.KindGenres:     genres,
			registry.KindAuthors:    authors,
			registry.KindBooks:      books,
		},
	}
}

func (s *catalogService) check(in any) error {
	if fields := s.validate.Struct(in); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ─── Languages ────────────────────────────────────────────────────────────────

func (s *catalogService) CreateLanguage(ctx context.Context, in LanguageInput) (*models.Language, error) {
	return s.saveLanguage(ctx, uuid.Nil, in)
}

func (s *catalogService) UpdateLanguage(ctx context.Context, id uuid.UUID, in LanguageInput) (*models.Language, error) {
	return s.saveLanguage(ctx, id, in)
}

func (s *catalogService) saveLanguage(ctx context.Context, id uuid.UUID, in LanguageInput) (*models.Language, error) {
	op := saveOp("SaveLanguage", id)
	in.normalize()
	if err := s.check(&in); err != nil {
		logFailure(op, err)
		return nil, err
	}

	lang, err := saveEntity(ctx, s.db, s.languages, id, func(l *models.Language) {
		l.Name = in.Name
		l.CharsCode = in.CharsCode
	}, []uniqueField{{"name", in.Name}, {"chars_code", in.CharsCode}})
	if err != nil {
		logFailure(op, err)
		return nil, err
	}
	log.Printf("[INFO] %s: saved language %q (id=%s)", op, lang.Name, lang.ID)
	return lang, nil
}

func (s *catalogService) GetLanguage(ctx context.Context, id uuid.UUID) (*models.Language, error) {
	return getActive(ctx, s.db, s.languages, id)
}

func (s *catalogService) ListLanguages(ctx context.Context) ([]models.Language, error) {
	return s.languages.ListActive(s.db.WithContext(ctx), "name")
}

// ─── Publishers ───────────────────────────────────────────────────────────────

func (s *catalogService) CreatePublisher(ctx context.Context, in PublisherInput) (*models.Publisher, error) {
	return s.savePublisher(ctx, uuid.Nil, in)
}

func (s *catalogService) UpdatePublisher(ctx context.Context, id uuid.UUID, in PublisherInput) (*models.Publisher, error) {
	return s.savePublisher(ctx, id, in)
}

func (s *catalogService) savePublisher(ctx context.Context, id uuid.UUID, in PublisherInput) (*models.Publisher, error) {
	op := saveOp("SavePublisher", id)
	in.normalize()
	if err := s.check(&in); err != nil {
		logFailure(op, err)
		return nil, err
	}

	pub, err := saveEntity(ctx, s.db, s.publishers, id, func(p *models.Publisher) {
		p.Name = in.Name
		p.Address = in.Address
	}, []uniqueField{{"name", in.Name}})
	if err != nil {
		logFailure(op, err)
		return nil, err
	}
	log.Printf("[INFO] %s: saved publisher %q (id=%s)", op, pub.Name, pub.ID)
	return pub, nil
}

func (s *catalogService) GetPublisher(ctx context.Context, id uuid.UUID) (*models.Publisher, error) {
	return getActive(ctx, s.db, s.publishers, id)
}

func (s *catalogService) ListPublishers(ctx context.Context) ([]models.Publisher, error) {
	return s.publishers.ListActive(s.db.WithContext(ctx), "name")
}

// ─── Genres ───────────────────────────────────────────────────────────────────

func (s *catalogService) CreateGenre(ctx context.Context, in GenreInput) (*models.Genre, error) {
	return s.saveGenre(ctx, uuid.Nil, in)
}

func (s *catalogService) UpdateGenre(ctx context.Context, id uuid.UUID, in GenreInput) (*models.Genre, error) {
	return s.saveGenre(ctx, id, in)
}

func (s *catalogService) saveGenre(ctx context.Context, id uuid.UUID, in GenreInput) (*models.Genre, error) {
	op := saveOp("SaveGenre", id)
	in.normalize()
	if err := s.check(&in); err != nil {
		logFailure(op, err)
		return nil, err
	}

	genre, err := saveEntity(ctx, s.db, s.genres, id, func(g *models.Genre) {
		g.Name = in.Name
	}, []uniqueField{{"name", in.Name}})
	if err != nil {
		logFailure(op, err)
		return nil, err
	}
	log.Printf("[INFO] %s: saved genre %q (id=%s)", op, genre.Name, genre.ID)
	return genre, nil
}

func (s *catalogService) GetGenre(ctx context.Context, id uuid.UUID) (*models.Genre, error) {
	return getActive(ctx, s.db, s.genres, id)
}

func (s *catalogService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.genres.ListActive(s.db.WithContext(ctx), "name")
}

// ─── Authors ──────────────────────────────────────────────────────────────────

func (s *catalogService) CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error) {
	return s.saveAuthor(ctx, uuid.Nil, in)
}

func (s *catalogService) UpdateAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) (*models.Author, error) {
	return s.saveAuthor(ctx, id, in)
}

func (s *catalogService) saveAuthor(ctx context.Context, id uuid.UUID, in AuthorInput) (*models.Author, error) {
	op := saveOp("SaveAuthor", id)
	in.normalize()
	if err := s.check(&in); err != nil {
		logFailure(op, err)
		return nil, err
	}

	author, err := saveEntity(ctx, s.db, s.authors, id, func(a *models.Author) {
		a.FirstName = in.FirstName
		a.LastName = in.LastName
		a.MiddleName = in.MiddleName
	}, nil)
	if err != nil {
		logFailure(op, err)
		return nil, err
	}
	log.Printf("[INFO] %s: saved author %q (id=%s)", op, author.FullName(), author.ID)
	return author, nil
}

func (s *catalogService) GetAuthor(ctx context.Context, id uuid.UUID) (*models.Author, error) {
	return getActive(ctx, s.db, s.authors, id)
}

func (s *catalogService) ListAuthors(ctx context.Context) ([]models.Author, error) {
	return s.authors.ListActive(s.db.WithContext(ctx), "last_name, first_name")
}

// ─── Books ────────────────────────────────────────────────────────────────────

func (s *catalogService) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	return s.saveBook(ctx, uuid.Nil, in)
}

func (s *catalogService) UpdateBook(ctx context.Context, id uuid.UUID, in BookInput) (*models.Book, error) {
	return s.saveBook(ctx, id, in)
}

// saveBook writes the book row and replaces its publisher, genre and author
// links in one transaction. Every referenced row must be active.
func (s *catalogService) saveBook(ctx context.Context, id uuid.UUID, in BookInput) (*models.Book, error) {
	op := saveOp("SaveBook", id)
	in.normalize()
	if err := s.check(&in); err != nil {
		logFailure(op, err)
		return nil, err
	}

	var saved *models.Book
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book := &models.Book{}
		if id != uuid.Nil {
			found, err := s.books.GetByID(tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrBookNotFound
				}
				return err
			}
			book = found
		}

		refs, err := s.resolveBookRefs(tx, in)
		if err != nil {
			return err
		}

		book.Name = in.Name
		book.PublicationYear = in.PublicationYear
		book.LanguageID = in.LanguageID
		book.CoverURL = in.CoverURL

		if id == uuid.Nil {
			book.Publishers = refs.publishers
			book.Genres = refs.genres
			book.Authors = refs.authors
			if err := s.books.CreateWithLinks(tx, book); err != nil {
				return err
			}
		} else {
			if err := s.books.Save(tx, book); err != nil {
				return err
			}
			if err := s.books.ReplaceLinks(tx, book, refs.publishers, refs.genres, refs.authors); err != nil {
				return err
			}
		}

		saved, err = s.books.GetWithRelations(tx, book.ID, false)
		return err
	})
	if err != nil {
		logFailure(op, err)
		return nil, err
	}
	log.Printf("[INFO] %s: saved book %q (id=%s)", op, saved.Name, saved.ID)
	return saved, nil
}

type bookRefs struct {
	publishers []models.Publisher
	genres     []models.Genre
	authors    []models.Author
}

func (s *catalogService) resolveBookRefs(tx *gorm.DB, in BookInput) (*bookRefs, error) {
	fields := map[string]string{}

	if _, err := s.languages.GetActiveByID(tx, in.LanguageID); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		fields["language_id"] = "select an existing language"
	}

	refs := &bookRefs{}
	var err error
	if refs.publishers, err = resolveActive(tx, s.publishers, in.PublisherIDs, "publisher_ids", fields); err != nil {
		return nil, err
	}
	if refs.genres, err = resolveActive(tx, s.genres, in.GenreIDs, "genre_ids", fields); err != nil {
		return nil, err
	}
	if refs.authors, err = resolveActive(tx, s.authors, in.AuthorIDs, "author_ids", fields); err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return refs, nil
}

func (s *catalogService) GetBook(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	book, err := s.books.GetWithRelations(s.db.WithContext(ctx), id, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return book, nil
}

func (s *catalogService) ListBooks(ctx context.Context, f BookFilter) ([]models.Book, error) {
	return s.books.ListActiveFiltered(s.db.WithContext(ctx), f)
}

// ─── Soft Delete ──────────────────────────────────────────────────────────────

// SoftDelete flags every existing row among ids as deleted and returns how
// many matched. Unknown ids are ignored unless none match.
func (s *catalogService) SoftDelete(ctx context.Context, kind registry.Kind, ids []uuid.UUID) (int64, error) {
	return s.setDeleted(ctx, "SoftDelete", kind, ids, true)
}

// Restore is the inverse of SoftDelete.
func (s *catalogService) Restore(ctx context.Context, kind registry.Kind, ids []uuid.UUID) (int64, error) {
	return s.setDeleted(ctx, "Restore", kind, ids, false)
}

func (s *catalogService) setDeleted(ctx context.Context, op string, kind registry.Kind, ids []uuid.UUID, deleted bool) (int64, error) {
	spec, ok := s.registry.Lookup(kind)
	if !ok {
		return 0, ErrUnknownKind
	}
	repo, ok := s.bulk[kind]
	if !spec.Deletable() || !ok {
		log.Printf("[WARN] %s: kind %s is %s", op, kind, spec.Capability)
		return 0, ErrNotDeletable
	}

	ids = uniqueIDs(ids)
	var matched int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := repo.CountByIDs(tx, ids)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrEntityNotFound
		}
		if err := repo.SetDeleted(tx, ids, deleted); err != nil {
			return err
		}
		matched = n
		return nil
	})
	if err != nil {
		logFailure(fmt.Sprintf("%s %s", op, kind), err)
		return 0, err
	}
	log.Printf("[INFO] %s: %d %s of %d requested (is_deleted=%t)", op, matched, kind, len(ids), deleted)
	return matched, nil
}

// ─── Internal Helpers ─────────────────────────────────────────────────────────

type uniqueField struct {
	column string
	value  any
}

// saveEntity creates a row when id is uuid.Nil, otherwise updates the
// existing row (deleted or not). Unique columns are checked against every
// other row before writing; the database index backs the check up.
func saveEntity[T any](
	ctx context.Context,
	db *gorm.DB,
	repo repositories.CatalogRepository[T],
	id uuid.UUID,
	apply func(*T),
	uniques []uniqueField,
) (*T, error) {
	var entity *T
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entity = new(T)
		if id != uuid.Nil {
			found, err := repo.GetByID(tx, id)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrEntityNotFound
				}
				return err
			}
			entity = found
		}

		fields := map[string]string{}
		for _, u := range uniques {
			taken, err := repo.ExistsWith(tx, u.column, u.value, id)
			if err != nil {
				return err
			}
			if taken {
				fields[u.column] = "a record with this value already exists"
			}
		}
		if len(fields) > 0 {
			return &ValidationError{Fields: fields}
		}

		apply(entity)
		if id == uuid.Nil {
			return repo.Create(tx, entity)
		}
		return repo.Save(tx, entity)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, newValidationError(validation.NonFieldKey, "a record with these values already exists")
		}
		return nil, err
	}
	return entity, nil
}

func getActive[T any](ctx context.Context, db *gorm.DB, repo repositories.CatalogRepository[T], id uuid.UUID) (*T, error) {
	entity, err := repo.GetActiveByID(db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	return entity, nil
}

// resolveActive loads the active rows for ids and records a field error when
// any id is missing or deleted.
func resolveActive[T any](tx *gorm.DB, repo repositories.CatalogRepository[T], ids []uuid.UUID, field string, fields map[string]string) ([]T, error) {
	ids = uniqueIDs(ids)
	rows, err := repo.ListActiveByIDs(tx, ids)
	if err != nil {
		return nil, err
	}
	if len(rows) != len(ids) {
		fields[field] = "one or more ids do not reference an existing record"
	}
	return rows, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func saveOp(name string, id uuid.UUID) string {
	if id == uuid.Nil {
		return name + " (create)"
	}
	return fmt.Sprintf("%s (id=%s)", name, id)
}

// logFailure logs a failed operation once: caller mistakes at WARN, the rest
// at ERROR.
func logFailure(op string, err error) {
	if _, ok := IsValidation(err); ok || errors.Is(err, ErrNotFound) {
		log.Printf("[WARN] %s: %v", op, err)
		return
	}
	log.Printf("[ERROR] %s: %v", op, err)
}

package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"libhub/internal/models"
	"libhub/internal/registry"
	"libhub/internal/repositories"
)

// ExportService writes staff CSV exports of any registered kind.
type ExportService interface {
	ExportCSV(ctx context.Context, kind registry.Kind, w io.Writer) error
}

type exportService struct {
	db       *gorm.DB
	registry *registry.Registry
	rows     repositories.ExportRepository
	books    repositories.BookRepository
}

func NewExportService(db *gorm.DB, reg *registry.Registry, rows repositories.ExportRepository, books repositories.BookRepository) ExportService {
	return &exportService{db: db, registry: reg, rows: rows, books: books}
}

// ExportCSV writes a header of the kind's display fields and one line per
// row, deleted rows included. Book lines also list author and genre names.
func (s *exportService) ExportCSV(ctx context.Context, kind registry.Kind, w io.Writer) error {
	spec, ok := s.registry.Lookup(kind)
	if !ok {
		return ErrUnknownKind
	}
	db := s.db.WithContext(ctx)

	header := append([]string(nil), spec.DisplayFields...)
	var extra func(id string) []string
	if kind == registry.KindBooks {
		books, err := s.books.ListAllWithRelations(db)
		if err != nil {
			log.Printf("[ERROR] ExportCSV: load books: %v", err)
			return err
		}
		byID := make(map[string]*models.Book, len(books))
		for i := range books {
			byID[books[i].ID.String()] = &books[i]
		}
		header = append(header, "authors", "genres")
		extra = func(id string) []string {
			b, ok := byID[id]
			if !ok {
				return []string{"", ""}
			}
			return []string{authorNames(b.Authors), genreNames(b.Genres)}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}

	count := 0
	err := s.rows.EachRow(db, spec.NewModel(), spec.DisplayFields, func(values []any) error {
		record := make([]string, 0, len(header))
		for _, v := range values {
			record = append(record, formatCell(v))
		}
		if extra != nil {
			record = append(record, extra(record[0])...)
		}
		count++
		return cw.Write(record)
	})
	if err != nil {
		log.Printf("[ERROR] ExportCSV: %s: %v", kind, err)
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	log.Printf("[INFO] ExportCSV: exported %d %s", count, kind)
	return nil
}

func authorNames(authors []models.Author) string {
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.FullName())
	}
	return strings.Join(names, ", ")
}

func genreNames(genres []models.Genre) string {
	names := make([]string, 0, len(genres))
	for _, g := range genres {
		names = append(names, g.Name)
	}
	return strings.Join(names, ", ")
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case bool:
		return strconv.FormatBool(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

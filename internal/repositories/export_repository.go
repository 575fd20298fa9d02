package repositories

import (
	"gorm.io/gorm"
)

type ExportRepository interface {
	// EachRow streams the given columns of every row of model's table, in
	// primary key order, deleted rows included.
	EachRow(db *gorm.DB, model any, columns []string, fn func(values []any) error) error
}

type exportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) ExportRepository {
	return &exportRepository{db: db}
}

func (r *exportRepository) EachRow(db *gorm.DB, model any, columns []string, fn func(values []any) error) error {
	if db == nil {
		db = r.db
	}
	rows, err := db.Model(model).Select(columns).Order("id").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}

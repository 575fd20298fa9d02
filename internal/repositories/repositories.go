package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CatalogRepository covers the soft-deletable catalog tables. Every method
// takes an optional db so callers can run it inside their transaction; nil
// means the repository's own handle.
type CatalogRepository[T any] interface {
	Create(db *gorm.DB, entity *T) error
	Save(db *gorm.DB, entity *T) error
	GetByID(db *gorm.DB, id uuid.UUID) (*T, error)
	GetActiveByID(db *gorm.DB, id uuid.UUID) (*T, error)
	GetActiveForUpdate(db *gorm.DB, id uuid.UUID) (*T, error)
	ListActive(db *gorm.DB, order string) ([]T, error)
	ListActiveByIDs(db *gorm.DB, ids []uuid.UUID) ([]T, error)
	ExistsWith(db *gorm.DB, column string, value any, excludeID uuid.UUID) (bool, error)
	CountByIDs(db *gorm.DB, ids []uuid.UUID) (int64, error)
	SetDeleted(db *gorm.DB, ids []uuid.UUID, deleted bool) error
}

type catalogRepository[T any] struct {
	db *gorm.DB
}

func NewCatalogRepository[T any](db *gorm.DB) CatalogRepository[T] {
	return &catalogRepository[T]{db: db}
}

func (r *catalogRepository[T]) conn(db *gorm.DB) *gorm.DB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *catalogRepository[T]) Create(db *gorm.DB, entity *T) error {
	return r.conn(db).Create(entity).Error
}

func (r *catalogRepository[T]) Save(db *gorm.DB, entity *T) error {
	return r.conn(db).Omit(clause.Associations).Save(entity).Error
}

func (r *catalogRepository[T]) GetByID(db *gorm.DB, id uuid.UUID) (*T, error) {
	var entity T
	if err := r.conn(db).First(&entity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *catalogRepository[T]) GetActiveByID(db *gorm.DB, id uuid.UUID) (*T, error) {
	var entity T
	err := r.conn(db).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&entity).Error
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *catalogRepository[T]) GetActiveForUpdate(db *gorm.DB, id uuid.UUID) (*T, error) {
	var entity T
	err := r.conn(db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&entity).Error
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

func (r *catalogRepository[T]) ListActive(db *gorm.DB, order string) ([]T, error) {
	var entities []T
	q := r.conn(db).Where("is_deleted = ?", false)
	if order != "" {
		q = q.Order(order)
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

func (r *catalogRepository[T]) ListActiveByIDs(db *gorm.DB, ids []uuid.UUID) ([]T, error) {
	entities := []T{}
	if len(ids) == 0 {
		return entities, nil
	}
	err := r.conn(db).
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// ExistsWith reports whether any row, deleted or not, other than excludeID
// has column = value.
func (r *catalogRepository[T]) ExistsWith(db *gorm.DB, column string, value any, excludeID uuid.UUID) (bool, error) {
	var count int64
	err := r.conn(db).Model(new(T)).
		Where(map[string]any{column: value}).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

// CountByIDs counts existing rows among ids regardless of their deleted flag.
func (r *catalogRepository[T]) CountByIDs(db *gorm.DB, ids []uuid.UUID) (int64, error) {
	var count int64
	if len(ids) == 0 {
		return 0, nil
	}
	err := r.conn(db).Model(new(T)).Where("id IN ?", ids).Count(&count).Error
	return count, err
}

func (r *catalogRepository[T]) SetDeleted(db *gorm.DB, ids []uuid.UUID, deleted bool) error {
	return r.conn(db).Model(new(T)).
		Where("id IN ?", ids).
		Update("is_deleted", deleted).
		Error
}

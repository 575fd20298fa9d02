package repositories

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"libhub/internal/models"
)

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error)
	GetByEmail(db *gorm.DB, email string) (*models.User, error)
	ExistsByEmail(db *gorm.DB, email string) (bool, error)
	List(db *gorm.DB) ([]models.User, error)
	UpdateFlag(db *gorm.DB, id uuid.UUID, column string, value bool) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	if db == nil {
		db = r.db
	}
	return db.Create(user).Error
}

func (r *userRepository) GetByID(db *gorm.DB, id uuid.UUID) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(db *gorm.DB, email string) (*models.User, error) {
	if db == nil {
		db = r.db
	}
	var user models.User
	if err := db.First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByEmail(db *gorm.DB, email string) (bool, error) {
	if db == nil {
		db = r.db
	}
	var count int64
	err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

func (r *userRepository) List(db *gorm.DB) ([]models.User, error) {
	if db == nil {
		db = r.db
	}
	var users []models.User
	if err := db.Order("email").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateFlag sets a boolean column (is_active, is_staff) and returns the
// number of matched rows.
func (r *userRepository) UpdateFlag(db *gorm.DB, id uuid.UUID, column string, value bool) (int64, error) {
	if db == nil {
		db = r.db
	}
	res := db.Model(&models.User{}).Where("id = ?", id).Update(column, value)
	return res.RowsAffected, res.Error
}

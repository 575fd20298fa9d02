package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"libhub/internal/auth"
	"libhub/internal/database"
	"libhub/internal/models"
	"libhub/internal/repositories"
	"libhub/internal/validation"
)

type RegisterInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"omitempty,min=2,max=20,letters"`
	LastName  string `json:"last_name" validate:"omitempty,min=2,max=20,letters"`
}

func (in *RegisterInput) normalize() {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Token is an issued access token.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AccountService manages user identities. Users are deactivated, never
// deleted.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	SetStaff(ctx context.Context, id uuid.UUID, staff bool) (*models.User, error)
	EnsureStaff(ctx context.Context, email, password string) (*models.User, error)
	IssueToken(user *models.User) (*Token, error)
}

type accountService struct {
	db       *gorm.DB
	validate *validation.Validator
	users    repositories.UserRepository
	tokens   *auth.TokenIssuer
}

func NewAccountService(db *gorm.DB, validate *validation.Validator, users repositories.UserRepository, tokens *auth.TokenIssuer) AccountService {
	return &accountService{db: db, validate: validate, users: users, tokens: tokens}
}

// Register creates an active, non-staff user.
func (s *accountService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if fields := s.validate.Struct(&in); fields != nil {
		err := &ValidationError{Fields: fields}
		logFailure("Register", err)
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		log.Printf("[ERROR] Register: %v", err)
		return nil, err
	}

	user := &models.User{
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hash,
		IsActive:     true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := s.users.ExistsByEmail(tx, user.Email)
		if err != nil {
			return err
		}
		if taken {
			return newValidationError("email", "a user with this email already exists")
		}
		return s.users.Create(tx, user)
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			err = newValidationError("email", "a user with this email already exists")
		}
		logFailure("Register", err)
		return nil, err
	}
	log.Printf("[INFO] Register: created user %s (id=%s)", user.Email, user.ID)
	return user, nil
}

// Authenticate returns ErrAccountInactive only after the password matched.
func (s *accountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(s.db.WithContext(ctx), normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		log.Printf("[WARN] Authenticate: inactive user %s attempted login", user.ID)
		return nil, ErrAccountInactive
	}
	return user, nil
}

func (s *accountService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(s.db.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *accountService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(s.db.WithContext(ctx))
}

func (s *accountService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error) {
	return s.setFlag(ctx, id, "is_active", active)
}

func (s *accountService) SetStaff(ctx context.Context, id uuid.UUID, staff bool) (*models.User, error) {
	return s.setFlag(ctx, id, "is_staff", staff)
}

func (s *accountService) setFlag(ctx context.Context, id uuid.UUID, column string, value bool) (*models.User, error) {
	var user *models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := s.users.UpdateFlag(tx, id, column, value)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrUserNotFound
		}
		user, err = s.users.GetByID(tx, id)
		return err
	})
	if err != nil {
		logFailure("SetUserFlag "+column, err)
		return nil, err
	}
	log.Printf("[INFO] SetUserFlag: user %s %s=%t", id, column, value)
	return user, nil
}

// EnsureStaff registers email as a staff user, or promotes and reactivates
// it when it already exists. The password is only used for new accounts.
func (s *accountService) EnsureStaff(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(s.db.WithContext(ctx), normalizeEmail(email))
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.Register(ctx, RegisterInput{Email: email, Password: password})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	}

	if _, err := s.SetActive(ctx, user.ID, true); err != nil {
		return nil, err
	}
	return s.SetStaff(ctx, user.ID, true)
}

func (s *accountService) IssueToken(user *models.User) (*Token, error) {
	raw, exp, err := s.tokens.Issue(user.ID, user.IsStaff)
	if err != nil {
		log.Printf("[ERROR] IssueToken: user %s: %v", user.ID, err)
		return nil, err
	}
	return &Token{AccessToken: raw, TokenType: "Bearer", ExpiresAt: exp}, nil
}

package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/clinprot/regdocs/pkg/common/apperrors"
	"github.com/clinprot/regdocs/pkg/common/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrEmailAlreadyExists = errors.New("email already registered")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type userModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;column:id"`
	Email        string    `gorm:"column:email;uniqueIndex"`
	Name         string    `gorm:"column:name"`
	Role         string    `gorm:"column:role;index"`
	PasswordHash string    `gorm:"column:password_hash"`
	CreatedAt    time.Time `gorm:"column:created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&userModel{})
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userModel{}).Count(&count).Error
	return count, err
}

func (r *Repository) CreateUser(ctx context.Context, user models.User, passwordHash string) (models.User, error) {
	now := time.Now().UTC()
	row := &userModel{
		ID:           uuid.New(),
		Email:        strings.ToLower(user.Email),
		Name:         user.Name,
		Role:         user.Role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			return models.User{}, ErrEmailAlreadyExists
		}
		return models.User{}, err
	}
	return buildUser(row), nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (models.User, string, error) {
	var row userModel
	err := r.db.WithContext(ctx).First(&row, "email = ?", strings.ToLower(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, "", apperrors.NotFound("user", email)
	}
	if err != nil {
		return models.User{}, "", err
	}
	return buildUser(&row), row.PasswordHash, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (models.User, error) {
	var row userModel
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, apperrors.NotFound("user", id)
	}
	if err != nil {
		return models.User{}, err
	}
	return buildUser(&row), nil
}

func buildUser(row *userModel) models.User {
	return models.User{
		ID:        row.ID,
		Email:     row.Email,
		Name:      row.Name,
		Role:      row.Role,
		CreatedAt: row.CreatedAt,
	}
}

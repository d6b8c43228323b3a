package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"tripplan_app_echo/internal/models"
)

type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// EnsureUser returns the user for a verified Firebase identity, creating it on first sight
func (s *UserService) EnsureUser(ctx context.Context, firebaseUID, email, name string) (*models.User, error) {
	if firebaseUID == "" {
		return nil, fmt.Errorf("%w: empty firebase uid", ErrInvalidArgument)
	}
	if name == "" {
		name = email
	}
	user := models.User{FirebaseUID: firebaseUID}
	err := s.db.WithContext(ctx).
		Where(models.User{FirebaseUID: firebaseUID}).
		Attrs(models.User{Email: email, Nickname: name}).
		FirstOrCreate(&user).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return &user, nil
}

// GetUser loads a user by id
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translateTxError(err)
	}
	return &user, nil
}

// FindByEmail looks a user up by email, case-insensitively
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: empty email", ErrInvalidArgument)
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error; err != nil {
		return nil, translateTxError(err)
	}
	return &user, nil
}

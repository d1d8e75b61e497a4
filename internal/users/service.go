package users

import (
	"context"
	"strings"

	"terrafund-backend/internal/constants"
	"terrafund-backend/internal/domain"
	"terrafund-backend/internal/pkg/apperr"
	"terrafund-backend/internal/pkg/validation"
	"terrafund-backend/internal/wallets"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service manages platform identities. Role grants are privileged operations
// gated at the route layer; the service re-validates role values.
type Service struct {
	DB *gorm.DB
}

// CreateInput for user creation.
type CreateInput struct {
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Create validates the input, hashes the password and provisions the user
// together with their stable-asset wallet.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.User, error) {
	if !validation.IsValidFullname(input.Fullname) {
		return nil, apperr.New(apperr.Validation, "Invalid fullname")
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !validation.IsValidEmail(email) {
		return nil, apperr.New(apperr.Validation, "Invalid email")
	}
	if !validation.IsValidPassword(input.Password) {
		return nil, apperr.New(apperr.Validation, "Password must be at least 8 characters with a letter, number and special character")
	}
	role := input.Role
	if role == "" {
		role = constants.Investor
	}
	if !constants.IsValidRole(role) {
		return nil, apperr.New(apperr.Validation, "Invalid role").With("role", role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := domain.User{
		Fullname:     input.Fullname,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&domain.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.New(apperr.StateConflict, "Email already registered")
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		_, err := wallets.EnsureTx(tx, user.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateRole changes a user's role. The route is admin-gated; the service
// validates the target role value.
func (s *Service) UpdateRole(ctx context.Context, userID uuid.UUID, role string) (*domain.User, error) {
	if !constants.IsValidRole(role) {
		return nil, apperr.New(apperr.Validation, "Invalid role").With("role", role)
	}
	var user domain.User
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).First(&user).Error
		if err == gorm.ErrRecordNotFound {
			return apperr.New(apperr.NotFound, "User not found")
		}
		if err != nil {
			return err
		}
		user.Role = role
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Get returns one user by id.
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	var user domain.User
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

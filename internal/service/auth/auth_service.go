// Package authsvc implements registration, login, and existence
// checks against the store, with bcrypt-hashed passwords. Grounded on
// the original AuthService's three operations and validation rules.
package authsvc

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"duplexchat/internal/models"
)

var (
	ErrInvalidInput  = errors.New("authsvc: user_id, nickname, and password are required")
	ErrUserExists    = errors.New("authsvc: user already exists")
	ErrUserNotFound  = errors.New("authsvc: user not found")
	ErrBadPassword   = errors.New("authsvc: password mismatch")
)

// Service is the auth collaborator named in spec.md §4.5.
type Service struct {
	db *gorm.DB
}

// NewService wraps an open store handle.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Register inserts a new user with a bcrypt-hashed password. Fails
// with ErrUserExists if user_id is taken.
func (s *Service) Register(userID, nickname, password string) error {
	if userID == "" || nickname == "" || password == "" {
		return ErrInvalidInput
	}

	exists, err := s.UserExists(userID)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := models.User{
		UserID:       userID,
		Nickname:     nickname,
		PasswordHash: string(hash),
	}
	return s.db.Create(&user).Error
}

// Login verifies the password against the stored hash and returns the
// user's record on success.
func (s *Service) Login(userID, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("user_id = ?", userID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrBadPassword
	}
	return &user, nil
}

// UserExists reports whether user_id already has a row, used for
// private-message recipient validation.
func (s *Service) UserExists(userID string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// internal/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"talos-store/internal/domain"
	"talos-store/internal/repository"
	"talos-store/internal/util"
)

// UserService defines the interface for user-related business logic.
type UserService interface {
	Register(ctx context.Context, req domain.Registration) (*domain.User, error)
	Login(ctx context.Context, userName, password string) (*domain.User, error)
	UserExists(ctx context.Context, userName string) (bool, error)
	ResetPassword(ctx context.Context, userName, newPassword string) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	UpdateProfile(ctx context.Context, id string, profile domain.Profile) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// BcryptHasher is the default PasswordHasher.
type BcryptHasher struct {
	Cost int // bcrypt.DefaultCost when zero
}

// Hash returns the bcrypt hash of password.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Compare returns nil when password matches hash.
func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// userService implements the UserService interface.
type userService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
}

// NewUserService creates a new instance of UserService.
func NewUserService(userRepo repository.UserRepository, hasher PasswordHasher) UserService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	return &userService{
		userRepo: userRepo,
		hasher:   hasher,
	}
}

// Register validates req and stores a new user with a hashed password.
func (s *userService) Register(ctx context.Context, req domain.Registration) (*domain.User, error) {
	user, err := domain.NewUserFromRegistration(req)
	if err != nil {
		return nil, err
	}

	exists, err := s.userRepo.UserNameExists(ctx, user.UserName)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("register: user %q: %w", user.UserName, util.ErrDuplicateEntry)
	}

	if user.Password, err = s.hasher.Hash(req.Password); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return user, nil
}

// Login checks the credentials and returns the matching user.
// An unknown user name and a wrong password are reported the same way.
func (s *userService) Login(ctx context.Context, userName, password string) (*domain.User, error) {
	if strings.TrimSpace(userName) == "" || password == "" {
		return nil, fmt.Errorf("login: %w: user name and password are required", util.ErrInvalidInput)
	}

	user, err := s.userRepo.GetUserByUserName(ctx, userName)
	if err != nil {
		if util.IsError(err, util.ErrUserNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := s.hasher.Compare(user.Password, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	return user, nil
}

// UserExists reports whether userName is taken.
func (s *userService) UserExists(ctx context.Context, userName string) (bool, error) {
	if strings.TrimSpace(userName) == "" {
		return false, fmt.Errorf("user exists: %w: user name is required", util.ErrInvalidInput)
	}
	return s.userRepo.UserNameExists(ctx, userName)
}

// ResetPassword replaces the password of userName.
func (s *userService) ResetPassword(ctx context.Context, userName, newPassword string) error {
	if strings.TrimSpace(userName) == "" || newPassword == "" {
		return fmt.Errorf("reset password: %w: user name and password are required", util.ErrInvalidInput)
	}

	user, err := s.userRepo.GetUserByUserName(ctx, userName)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if user.Password, err = s.hasher.Hash(newPassword); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	user.Touch()
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

// GetUser returns the user with the given ID.
func (s *userService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.userRepo.GetUserByID(ctx, id)
}

// ListUsers returns every user.
func (s *userService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.userRepo.ListUsers(ctx)
}

// UpdateProfile overwrites the editable fields of the user with the given ID.
func (s *userService) UpdateProfile(ctx context.Context, id string, profile domain.Profile) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	user.ApplyProfile(profile)
	if err := s.userRepo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// DeleteUser removes the user with the given ID.
func (s *userService) DeleteUser(ctx context.Context, id string) error {
	return s.userRepo.DeleteUser(ctx, id)
}

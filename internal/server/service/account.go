package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coldfire85/neurolog/internal/server/auth"
	"github.com/coldfire85/neurolog/internal/server/database"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrInvalidEmail       = errors.New("invalid email address")
)

// UserRepo is the persistence surface the account service needs.
type UserRepo interface {
	CreateUser(ctx context.Context, u *database.User) error
	GetUserByEmail(ctx context.Context, email string) (*database.User, error)
	GetUserByID(ctx context.Context, id string) (*database.User, error)
}

// AccountService handles registration and login.
type AccountService struct {
	repo        UserRepo
	jwtSecret   string
	tokenExpiry time.Duration
}

// NewAccountService creates a new account service.
func NewAccountService(repo UserRepo, jwtSecret string, tokenExpiry time.Duration) *AccountService {
	return &AccountService{repo: repo, jwtSecret: jwtSecret, tokenExpiry: tokenExpiry}
}

// Register creates a new user with a bcrypt-hashed password.
func (s *AccountService) Register(ctx context.Context, email, name, password string) (*database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &database.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	slog.Info("user registered", "id", user.ID, "email", user.Email)
	return user, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password both fail with ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, *database.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, user.Email, user.Name, s.tokenExpiry, s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", "id", user.ID)
	return token, user, nil
}

// GetUser loads a user by ID.
func (s *AccountService) GetUser(ctx context.Context, id string) (*database.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

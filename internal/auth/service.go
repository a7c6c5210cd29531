package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	"github.com/staffdesk/employee-api/internal/logging"
	"github.com/staffdesk/employee-api/internal/user"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike, so
	// a caller cannot probe which addresses are registered.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// LoginResult is what a successful authentication returns
type LoginResult struct {
	UserID uuid.UUID
	Email  string
	Token  string
}

// Service implements the registration and authentication flows
type Service struct {
	store         UserStore
	hasher        *PasswordHasher
	tokenService  TokenService
	logger        *logging.Logger
	tokenDuration time.Duration
}

func NewService(store UserStore, hasher *PasswordHasher, tokenService TokenService, logger *logging.Logger, tokenDuration time.Duration) *Service {
	return &Service{
		store:         store,
		hasher:        hasher,
		tokenService:  tokenService,
		logger:        logger,
		tokenDuration: tokenDuration,
	}
}

// Register creates a new user account. Only the email is format-validated.
// The returned user carries identity fields only; the caller never sees the
// hash.
func (s *Service) Register(ctx context.Context, firstName, lastName, employeeID, email, password string) (*user.User, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}

	// Hash before touching the store so no pooled connection is held across
	// the expensive part.
	passwordHash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Fast-path duplicate check. The unique index on email is what actually
	// decides races; a second registration that slips past this check fails
	// on insert and is reported identically.
	if _, err := s.store.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}

	newUser, err := s.store.Create(ctx, &user.User{
		ID:           uuid.New(),
		FirstName:    firstName,
		LastName:     lastName,
		EmployeeID:   employeeID,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Login verifies the credentials and issues a signed token
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	existingUser, err := s.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	// Mismatch and malformed-record failures collapse into the same outcome;
	// the distinction lives only in server logs.
	if !s.hasher.Verify(ctx, existingUser.PasswordHash, password) {
		s.logger.Warn("password verification failed", "user_id", existingUser.ID)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokenService.CreateToken(existingUser.ID, existingUser.Email, s.tokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &LoginResult{
		UserID: existingUser.ID,
		Email:  existingUser.Email,
		Token:  token,
	}, nil
}

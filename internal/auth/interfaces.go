package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/staffdesk/employee-api/internal/user"
)

// TokenService issues and verifies bearer tokens.
// The production implementation is JWTService (HS256).
type TokenService interface {
	CreateToken(userID uuid.UUID, email string, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// UserStore is the slice of the user repository the flows depend on.
// Implementations must enforce email uniqueness on Create themselves; the
// service's pre-check alone cannot, two concurrent registrations can both
// pass it.
type UserStore interface {
	Create(ctx context.Context, u *user.User) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

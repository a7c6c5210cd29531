package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/staffdesk/employee-api/internal/database"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")
	ErrUnavailable    = errors.New("credential store unavailable")
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint conflict
const uniqueViolation = "23505"

// Repository handles user persistence. Every query runs under its own
// deadline so a slow or unreachable store fails the request instead of
// hanging it.
type Repository struct {
	db           *bun.DB
	queryTimeout time.Duration
}

func NewRepository(db *bun.DB, queryTimeout time.Duration) *Repository {
	return &Repository{db: db, queryTimeout: queryTimeout}
}

// Create inserts a new user row. A unique-constraint conflict on email is
// reported as ErrDuplicateEmail regardless of which concurrent registration
// got there first.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	dbUser := &database.User{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		EmployeeID:   u.EmployeeID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, translateQueryErr("create user", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves a user by exact email match
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, translateQueryErr("get user by email", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// List returns all users ordered by creation time
func (r *Repository) List(ctx context.Context) ([]User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	var dbUsers []database.User
	err := r.db.NewSelect().
		Model(&dbUsers).
		Order("created_at ASC").
		Scan(ctx)

	if err != nil {
		return nil, translateQueryErr("list users", err)
	}

	users := make([]User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, *mapDBUserToModel(&dbUsers[i]))
	}

	return users, nil
}

// Ping verifies connectivity to the store
func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.queryTimeout)
	defer cancel()

	if err := r.db.PingContext(ctx); err != nil {
		return translateQueryErr("ping", err)
	}
	return nil
}

func translateQueryErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// mapDBUserToModel converts the database model to the domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:           dbu.ID,
		FirstName:    dbu.FirstName,
		LastName:     dbu.LastName,
		EmployeeID:   dbu.EmployeeID,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		CreatedAt:    dbu.CreatedAt,
	}
}

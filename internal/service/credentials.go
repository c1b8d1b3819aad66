package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/utils"
)

// UserStore is the persistence the credential store needs.
type UserStore interface {
	EmailTaken(ctx context.Context, email string) (bool, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// Credentials registers users and verifies passwords.  Only bcrypt hashes
// are ever stored.
type Credentials struct {
	users     UserStore
	cost      int
	dummyHash string
}

// NewCredentials builds a credential store hashing with the given bcrypt
// cost.
func NewCredentials(users UserStore, bcryptCost int) (*Credentials, error) {
	dummy, err := utils.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Credentials{users: users, cost: bcryptCost, dummyHash: dummy}, nil
}

// Register creates a CUSTOMER account.
func (c *Credentials) Register(ctx context.Context, username, email, password string) (uint64, error) {
	return c.RegisterWithRole(ctx, username, email, password, model.RoleCustomer)
}

// RegisterWithRole creates an account with an explicit role.  The email is
// checked before the username, so a request colliding on both reports
// ErrDuplicateEmail.
func (c *Credentials) RegisterWithRole(ctx context.Context, username, email, password, role string) (uint64, error) {
	username = strings.TrimSpace(username)
	email = repository.NormalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return 0, ErrInvalidInput
	}
	if role != model.RoleCustomer && role != model.RoleAdmin {
		return 0, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	taken, err := c.users.EmailTaken(ctx, email)
	if err != nil {
		return 0, storageFailure("check email", err)
	}
	if taken {
		return 0, ErrDuplicateEmail
	}
	taken, err = c.users.UsernameTaken(ctx, username)
	if err != nil {
		return 0, storageFailure("check username", err)
	}
	if taken {
		return 0, ErrDuplicateUsername
	}

	// The unique indexes still decide when two registrations race past the
	// checks above.
	id, err := c.users.Create(ctx, username, email, password, role, c.cost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return 0, ErrDuplicateEmail
	case errors.Is(err, repository.ErrUsernameExists):
		return 0, ErrDuplicateUsername
	case err != nil:
		return 0, storageFailure("create user", err)
	}
	return id, nil
}

// Verify returns the user id for a matching email and password.  Unknown
// email and wrong password both yield ErrAuthFailure, and both pay for one
// bcrypt comparison.
func (c *Credentials) Verify(ctx context.Context, email, password string) (uint64, error) {
	u, err := c.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.VerifyPassword(c.dummyHash, password)
			return 0, ErrAuthFailure
		}
		return 0, storageFailure("load user", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return 0, ErrAuthFailure
	}
	return u.ID, nil
}

// Lookup loads a user by id.
func (c *Credentials) Lookup(ctx context.Context, id uint64) (*model.User, error) {
	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, storageFailure("load user", err)
	}
	return u, nil
}

func storageFailure(op string, err error) error {
	slog.Error("storage failure", "op", op, "err", err)
	return fmt.Errorf("%w: %s", ErrTransientFailure, op)
}

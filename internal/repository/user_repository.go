package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/utils"
)

type UserRepo struct{ db *database.DB }

func NewUserRepo(db *database.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id,username,email,password_hash,role,created_at,updated_at"

// NormalizeEmail is the canonical form emails are stored and looked up in.
func NormalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes the password, inserts the user and returns its ID.  A
// unique violation is reported as ErrEmailExists or ErrUsernameExists
// depending on which index was hit.
func (r *UserRepo) Create(ctx context.Context, username, email, password, role string, cost int) (uint64, error) {
	email = NormalizeEmail(email)
	username = strings.TrimSpace(username)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	id, err := r.db.InsertID(ctx, executor(ctx, r.db),
		"INSERT INTO users (username, email, password_hash, role, created_at, updated_at) VALUES (?,?,?,?,?,?)",
		username, email, hash, role, now, now)
	if err != nil {
		if database.IsUniqueViolation(err) {
			c := database.ViolatedConstraint(err)
			if strings.Contains(c, "uq_users_username") || strings.Contains(c, "users.username") {
				return 0, ErrUsernameExists
			}
			return 0, ErrEmailExists
		}
		return 0, classify("insert user", err)
	}
	return id, nil
}

// EmailTaken reports whether a user with the normalized email exists.
func (r *UserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// UsernameTaken reports whether a user with the trimmed username exists.
func (r *UserRepo) UsernameTaken(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username))
}

func (r *UserRepo) exists(ctx context.Context, q string, arg any) (bool, error) {
	var one int
	err := executor(ctx, r.db).QueryRowContext(ctx, r.db.Rebind(q), arg).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, classify("lookup user", err)
	}
	return true, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", NormalizeEmail(email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) getOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	err := executor(ctx, r.db).QueryRowContext(ctx, r.db.Rebind(q), arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, errNoRows("get user", err)
	}
	return &u, nil
}

package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fibre52/survey-api/internal/model"
)

const userColumns = "id,email,first_name,last_name,password_hash,role,status,is_deleted,created_at,updated_at"

// UserRepo reads and mutates rows in the 'users' table. Soft-deleted rows
// are invisible to every query here; callers never see is_deleted=1 records.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash,
		&u.Role, &u.Status, &u.IsDeleted, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// Create inserts a user and returns its ID. Password is optional: accounts
// created without one must finish onboarding through the OTP set-password
// flow. The hash, when present, is produced by the caller.
func (r *UserRepo) Create(ctx context.Context, u model.User) (uint64, error) {
	email := strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, first_name, last_name, password_hash, role, status) VALUES (?,?,?,?,?,?)",
		email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.Status)
	if err != nil {
		// MySQL error 1062: duplicate entry for the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? AND is_deleted=0 LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? AND is_deleted=0 LIMIT 1", id))
}

// UpdatePassword stores a new bcrypt hash for the user.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=? AND is_deleted=0",
		passwordHash, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus flips the active flag for the user. Callers verify the user
// exists first; RowsAffected is not checked because MySQL reports zero when
// the flag already holds the requested value.
func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, active bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=?, updated_at=NOW() WHERE id=? AND is_deleted=0",
		active, id)
	return err
}

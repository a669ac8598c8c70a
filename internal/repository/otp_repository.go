package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fibre52/survey-api/internal/model"
)

// OTPRepo persists one-time passcodes in the 'otps' table. Rows are keyed
// by email; FindByEmail returns the first row found, so callers delete
// existing rows before inserting a new code to keep lookup unambiguous.
type OTPRepo struct{ DB *sql.DB }

func NewOTPRepo(db *sql.DB) *OTPRepo { return &OTPRepo{DB: db} }

// Create inserts a new OTP row with the given expiry.
func (r *OTPRepo) Create(ctx context.Context, email, code string, expiresAt time.Time) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO otps (email, otp, expires_at) VALUES (?,?,?)",
		email, code, expiresAt)
	return err
}

// FindByEmail returns the first OTP row for the email, oldest first, or
// ErrNotFound when none exists.
func (r *OTPRepo) FindByEmail(ctx context.Context, email string) (model.OTP, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var o model.OTP
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,email,otp,created_at,expires_at FROM otps WHERE email=? ORDER BY id LIMIT 1",
		email).Scan(&o.ID, &o.Email, &o.Code, &o.CreatedAt, &o.ExpiresAt)
	if err == sql.ErrNoRows {
		return o, ErrNotFound
	}
	return o, err
}

// DeleteByEmail removes every OTP row for the email. Deleting nothing is
// not an error; the call is used both for consumption and for clearing
// stale codes before a reissue.
func (r *OTPRepo) DeleteByEmail(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx, "DELETE FROM otps WHERE email=?", email)
	return err
}

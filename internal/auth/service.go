// Package auth orchestrates the credential lifecycle: login, stateless
// token issuance and refresh, OTP-driven password recovery with
// purpose-scoped tokens, and the password-set flows that move an account
// from password-less onboarding to an authenticated session.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/fibre52/survey-api/internal/apperr"
	"github.com/fibre52/survey-api/internal/config"
	"github.com/fibre52/survey-api/internal/model"
	"github.com/fibre52/survey-api/internal/otp"
	"github.com/fibre52/survey-api/internal/repository"
	"github.com/fibre52/survey-api/internal/token"
	"github.com/fibre52/survey-api/internal/utils"
)

// Recovery tokens are deliberately short-lived; minutes, not hours.
const purposeTokenTTL = 15 * time.Minute

// UserStore is the credential-record capability the gateway needs.
// Implemented by *repository.UserRepo; tests supply an in-memory fake.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
}

// OTPService is the slice of the OTP lifecycle the gateway drives.
type OTPService interface {
	Issue(ctx context.Context, email string) (string, error)
	Validate(ctx context.Context, email, code string) error
	Resend(ctx context.Context, email string) (string, error)
}

// Service is the credential gateway. It composes the token service, the OTP
// lifecycle and the user store; it holds no state of its own.
type Service struct {
	users UserStore
	otps  OTPService
	cfg   config.Config
}

func NewService(users UserStore, otps OTPService, cfg config.Config) *Service {
	return &Service{users: users, otps: otps, cfg: cfg}
}

// LoginResult carries everything a successful authentication produces. The
// handler turns the tokens into cookies; the user summary goes in the body.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	User         model.User
}

// CheckEmail looks up the account for the email and reports whether it has
// a password yet. When it has none — or when isForget is set — any existing
// OTP for the email is cleared and a fresh one issued, coupling discovery
// and recovery initiation into a single call.
func (s *Service) CheckEmail(ctx context.Context, email string, isForget bool) (bool, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperr.NotFound("User not found")
		}
		return false, err
	}
	if !u.HasPassword() || isForget {
		if _, err := s.otps.Resend(ctx, email); err != nil {
			return false, err
		}
	}
	return u.HasPassword(), nil
}

// Login authenticates by email and password and mints a fresh token pair.
// Accounts without a stored password cannot log in this way; they must
// finish the OTP set-password flow first.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return LoginResult{}, apperr.NotFound("User not found")
		}
		return LoginResult{}, err
	}
	if !u.Status {
		return LoginResult{}, apperr.Unauthorized("Your account has been disabled")
	}
	if !u.HasPassword() || !utils.VerifyPassword(u.PasswordHash.String, password) {
		return LoginResult{}, apperr.Unauthorized("Password is incorrect")
	}
	return s.issueTokens(u)
}

// RefreshAccess verifies a refresh token against its own secret,
// re-resolves the identity and mints a new access token. The refresh token
// itself is never rotated.
func (s *Service) RefreshAccess(ctx context.Context, refreshToken string) (string, error) {
	claims, err := token.Verify(refreshToken, s.cfg.JWTRefreshSecret)
	if err != nil {
		return "", apperr.Forbidden("Invalid Refresh Token")
	}
	u, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("User not found")
		}
		return "", err
	}
	access, err := token.Create(token.Claims{UserID: u.ID, Role: u.Role},
		s.cfg.JWTSecret, time.Duration(s.cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return "", apperr.Internal("could not issue access token")
	}
	return access, nil
}

// ForgotPassword issues a recovery OTP for a known email. Unknown emails
// fail NotFound and leave no OTP behind.
func (s *Service) ForgotPassword(ctx context.Context, email string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.NotFound("User not found")
		}
		return model.User{}, err
	}
	if _, err := s.otps.Issue(ctx, email); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// ValidateOTP checks the supplied code and, on success, mints a purpose
// token scoped to the requested recovery intent. The OTP is consumed in the
// process and can never validate again.
func (s *Service) ValidateOTP(ctx context.Context, email, code, purpose string) (string, error) {
	if purpose != token.PurposeSetPassword && purpose != token.PurposeResetPassword {
		return "", apperr.BadRequest("Invalid token purpose")
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("User not found")
		}
		return "", err
	}
	if err := s.otps.Validate(ctx, email, code); err != nil {
		switch {
		case errors.Is(err, otp.ErrNotFound):
			return "", apperr.NotFound("OTP not found")
		case errors.Is(err, otp.ErrExpired):
			return "", apperr.Unprocessable("OTP is expired or already been used.")
		case errors.Is(err, otp.ErrMismatch):
			return "", apperr.Unprocessable("Invalid OTP")
		default:
			return "", err
		}
	}
	purposeToken, err := token.Create(token.Claims{
		UserID:  u.ID,
		Role:    u.Role,
		Email:   u.Email,
		Purpose: purpose,
	}, s.cfg.JWTSecret, purposeTokenTTL)
	if err != nil {
		return "", apperr.Internal("could not issue token")
	}
	return purposeToken, nil
}

// SetPassword consumes a set-password purpose token, stores the first
// password for the account and logs the user in with it, so the caller goes
// from password-less to authenticated in one step.
func (s *Service) SetPassword(ctx context.Context, password, purposeToken string) (LoginResult, error) {
	u, err := s.establishPassword(ctx, password, purposeToken, token.PurposeSetPassword)
	if err != nil {
		return LoginResult{}, err
	}
	return s.Login(ctx, u.Email, password)
}

// ResetPassword consumes a reset-password purpose token and replaces the
// account's password. No auto-login: the caller authenticates afterwards.
func (s *Service) ResetPassword(ctx context.Context, password, confirmPassword, purposeToken string) (model.User, error) {
	if password != confirmPassword {
		return model.User{}, apperr.BadRequest("Passwords do not match")
	}
	u, err := s.establishPassword(ctx, password, purposeToken, token.PurposeResetPassword)
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// establishPassword is the shared core of SetPassword and ResetPassword:
// verify the purpose token, enforce its purpose tag, resolve the identity by
// the token's email and store the new hash. Token verification failures are
// normalized to Unauthorized here so they never surface as raw library
// errors.
func (s *Service) establishPassword(ctx context.Context, password, purposeToken, wantPurpose string) (model.User, error) {
	claims, err := token.Verify(purposeToken, s.cfg.JWTSecret)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return model.User{}, apperr.Unauthorized("Token expired")
		}
		return model.User{}, apperr.Unauthorized("Invalid token")
	}
	if claims.Purpose != wantPurpose {
		return model.User{}, apperr.Unauthorized("Invalid token purpose")
	}
	u, err := s.users.GetByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.NotFound("User not found")
		}
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return model.User{}, err
	}
	u.PasswordHash.String = hash
	u.PasswordHash.Valid = true
	return u, nil
}

// ResendOTP clears any pending code for a known email and issues a new one.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	if _, err := s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return err
	}
	_, err := s.otps.Resend(ctx, email)
	return err
}

// CurrentUser resolves the live record behind an authenticated request.
func (s *Service) CurrentUser(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, apperr.NotFound("User not found")
		}
		return model.User{}, err
	}
	return u, nil
}

// Logout verifies the identity still exists. The session itself is
// stateless: the handler clears the bearer cookies and nothing changes
// server-side.
func (s *Service) Logout(ctx context.Context, userID uint64) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return err
	}
	return nil
}

// issueTokens mints the access/refresh pair for an authenticated user.
func (s *Service) issueTokens(u model.User) (LoginResult, error) {
	access, err := token.Create(token.Claims{UserID: u.ID, Role: u.Role},
		s.cfg.JWTSecret, time.Duration(s.cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		return LoginResult{}, apperr.Internal("could not issue access token")
	}
	refresh, err := token.Create(token.Claims{UserID: u.ID},
		s.cfg.JWTRefreshSecret, time.Duration(s.cfg.RefreshTTLDays)*24*time.Hour)
	if err != nil {
		return LoginResult{}, apperr.Internal("could not issue refresh token")
	}
	return LoginResult{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

// Package otp implements the one-time-passcode lifecycle used for password
// recovery: issue a 6-digit code with a bounded validity window, validate it
// exactly once, and reissue on demand. Expiry is checked lazily at
// validation time; no background sweeper runs.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/fibre52/survey-api/internal/model"
	"github.com/fibre52/survey-api/internal/repository"
)

// Validation failure modes.
var (
	// ErrNotFound means no code has been issued for the email (or it was
	// already consumed).
	ErrNotFound = errors.New("otp not found")
	// ErrExpired means a code exists but its validity window has passed.
	ErrExpired = errors.New("otp expired")
	// ErrMismatch means the supplied code differs from the stored one.
	ErrMismatch = errors.New("otp mismatch")
)

// Store is the persistence capability the lifecycle needs. Implemented by
// *repository.OTPRepo; tests supply an in-memory fake.
type Store interface {
	Create(ctx context.Context, email, code string, expiresAt time.Time) error
	FindByEmail(ctx context.Context, email string) (model.OTP, error)
	DeleteByEmail(ctx context.Context, email string) error
}

// Notifier hands an issued code to the out-of-band delivery channel
// (the message queue feeding the mailer). Delivery failures are logged and
// swallowed: the code is already stored and retrievable, and the caller can
// always request a resend.
type Notifier interface {
	OTPIssued(ctx context.Context, email, code string, expiresAt time.Time) error
}

// Service drives the per-email code state machine:
// NONE -> ISSUED -> {VALIDATED | EXPIRED | SUPERSEDED}.
type Service struct {
	store    Store
	notifier Notifier
	window   time.Duration
	now      func() time.Time
}

// New builds a Service issuing codes valid for the given window. notifier
// may be nil when no delivery channel is configured (local development).
func New(store Store, notifier Notifier, window time.Duration) *Service {
	return &Service{store: store, notifier: notifier, window: window, now: time.Now}
}

// Issue generates a fresh 6-digit code for the email and stores it with
// expiry = now + window. Any previously issued code must be cleared by the
// caller (see Resend) so that lookup by email stays unambiguous.
func (s *Service) Issue(ctx context.Context, email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	expiresAt := s.now().UTC().Add(s.window)
	if err := s.store.Create(ctx, email, code, expiresAt); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	if s.notifier != nil {
		if err := s.notifier.OTPIssued(ctx, email, code, expiresAt); err != nil {
			log.Printf("otp: delivery notify failed for %s: %v", email, err)
		}
	}
	return code, nil
}

// Validate checks the supplied code against the stored one. On success the
// row is deleted so the same code can never validate twice. The expiry
// check runs before the code comparison and uses a direct wall-clock
// comparison against the stored expiry.
func (s *Service) Validate(ctx context.Context, email, code string) error {
	rec, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if rec.Expired(s.now().UTC()) {
		return ErrExpired
	}
	if rec.Code != code {
		return ErrMismatch
	}
	return s.store.DeleteByEmail(ctx, email)
}

// Resend deletes any existing code for the email and issues a new one.
// Repeated issuance is bounded by the rate limiter at the transport edge,
// not here.
func (s *Service) Resend(ctx context.Context, email string) (string, error) {
	if err := s.store.DeleteByEmail(ctx, email); err != nil {
		return "", fmt.Errorf("clear otp: %w", err)
	}
	return s.Issue(ctx, email)
}

// generateCode returns a uniformly random code in [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

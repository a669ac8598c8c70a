// Package token creates and verifies the signed bearer tokens used by the
// API: short-lived access tokens, longer-lived refresh tokens and
// purpose-scoped recovery tokens. All three are HS256 JWTs; they differ only
// in signing secret, lifetime and claim set. Nothing is persisted — a
// token's authority is bounded purely by its signature and expiry.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose tags carried by recovery tokens. A token minted for one purpose
// must be rejected when presented for the other; consumers check the tag
// explicitly and never infer intent from context.
const (
	PurposeSetPassword   = "set-password"
	PurposeResetPassword = "reset-password"
)

// Verification failure modes. Callers translate both into authorization
// failures; neither should ever crash a request.
var (
	// ErrExpired means the token was well-formed and correctly signed but
	// its expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid covers every other verification failure: bad signature,
	// wrong signing method, malformed structure, missing claims.
	ErrInvalid = errors.New("token invalid")
)

// Claims is the payload common to all token kinds. UserID and Role identify
// the bearer; Email and Purpose are set only on recovery tokens. Refresh
// tokens carry just the UserID.
type Claims struct {
	UserID  uint64 `json:"userId"`
	Role    string `json:"role,omitempty"`
	Email   string `json:"email,omitempty"`
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Create signs a token for the given claims with the supplied secret and
// ttl. Expiry and issued-at are set here; any values already present on the
// claims are overwritten. An error indicates a configuration fault (bad
// secret), not a per-request condition.
func Create(claims Claims, secret string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// Verify parses and validates a signed token against the given secret and
// returns its claims. It fails with ErrExpired when the token is past its
// ttl and ErrInvalid for every structural or signature problem. The signing
// method is pinned to HMAC so a token signed with an asymmetric algorithm
// cannot be replayed against the HMAC secret.
func Verify(signed, secret string) (Claims, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(signed, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrInvalid
	}
	return claims, nil
}

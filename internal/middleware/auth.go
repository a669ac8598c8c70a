package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fibre52/survey-api/internal/apperr"
	"github.com/fibre52/survey-api/internal/model"
	"github.com/fibre52/survey-api/internal/repository"
	"github.com/fibre52/survey-api/internal/token"
)

// Context keys under which CheckAuth stores the resolved identity. Handlers
// read them via c.Get().
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// UserLookup resolves an identity by id. Implemented by *repository.UserRepo.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// CheckAuth returns middleware that authenticates a request and optionally
// enforces a role allow-list. The bearer token is taken from the
// Authorization header, falling back to the accessToken cookie; browsers
// sometimes send the literal string "undefined", which counts as absent.
//
// The token only proves who the caller was when it was minted. The identity
// is re-resolved from the store on every request so that a deleted or
// disabled account — or a demoted role — takes effect before the token
// naturally expires. The live role, not the embedded one, is attached to
// the request context.
func CheckAuth(secret string, users UserLookup, roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return apperr.Unauthorized("No token provided")
			}

			claims, err := token.Verify(raw, secret)
			if err != nil {
				if errors.Is(err, token.ErrExpired) {
					return apperr.Unauthorized("Token expired, please login again")
				}
				return apperr.Unauthorized("Invalid token")
			}
			if claims.UserID == 0 {
				return apperr.Unauthorized("Invalid token")
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperr.Unauthorized("User not found")
				}
				return err
			}
			if !u.Status {
				return apperr.Forbidden("Your account has been disabled")
			}
			if len(allowed) > 0 && !allowed[u.Role] {
				return apperr.Forbidden("Forbidden: No access")
			}

			c.Set(CtxUserID, u.ID)
			c.Set(CtxRole, u.Role)
			return next(c)
		}
	}
}

// extractToken pulls the bearer token from the Authorization header or the
// accessToken cookie. The header wins when both are present.
func extractToken(c echo.Context) string {
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if v := strings.TrimPrefix(auth, "Bearer "); v != "" && v != "undefined" {
			return v
		}
	}
	if cookie, err := c.Cookie("accessToken"); err == nil {
		if v := cookie.Value; v != "" && v != "undefined" {
			return v
		}
	}
	return ""
}

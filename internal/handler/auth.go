package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fibre52/survey-api/internal/apperr"
	"github.com/fibre52/survey-api/internal/auth"
	"github.com/fibre52/survey-api/internal/config"
	"github.com/fibre52/survey-api/internal/middleware"
	"github.com/fibre52/survey-api/internal/model"
)

// Access and refresh cookies both live for 30 days; the tokens inside
// expire much sooner and are what actually bounds the session.
const cookieMaxAge = 30 * 24 * time.Hour

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg config.Config
	Svc *auth.Service
}

func NewAuthHandler(cfg config.Config, svc *auth.Service) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Svc: svc}
}

// ----- DTOs -----

type checkUserReq struct {
	Email    string `json:"email"`
	IsForget bool   `json:"isForget"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type emailReq struct {
	Email string `json:"email"`
}
type validateOtpReq struct {
	Email   string `json:"email"`
	OTP     string `json:"otp"`
	Purpose string `json:"purpose"`
}
type setPasswordReq struct {
	Password string `json:"password"`
}
type resetPasswordReq struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

type loginData struct {
	userPart
	AccessToken string `json:"accessToken"`
}

// CheckUser reports whether the account behind an email already has a
// password. Accounts without one (and forget-password callers) get a fresh
// OTP as a side effect, so the client can move straight to code entry.
func (h *AuthHandler) CheckUser(c echo.Context) error {
	var req checkUserReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return apperr.BadRequest("email required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hasPassword, err := h.Svc.CheckEmail(ctx, req.Email, req.IsForget)
	if err != nil {
		return err
	}
	return ok(c, "User email and password checked successfully", echo.Map{"isPassword": hasPassword})
}

// Login authenticates with email and password, sets the token cookies and
// returns the identity summary.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperr.BadRequest("email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setAuthCookies(c, res)
	return ok(c, "Login successfully!", loginData{userPart: toUserPart(res.User), AccessToken: res.AccessToken})
}

// AccessToken exchanges the refresh-token cookie for a fresh access token
// cookie. The refresh token itself is not rotated.
func (h *AuthHandler) AccessToken(c echo.Context) error {
	cookie, err := c.Cookie("refreshToken")
	if err != nil || cookie.Value == "" || cookie.Value == "undefined" {
		return apperr.Unauthorized("No refresh token provided")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := h.Svc.RefreshAccess(ctx, cookie.Value)
	if err != nil {
		return err
	}
	h.setCookie(c, "accessToken", access, cookieMaxAge)
	return ok(c, "Access token refreshed successfully", nil)
}

// CurrentUser returns the live profile of the authenticated caller.
func (h *AuthHandler) CurrentUser(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.CurrentUser(ctx, uid)
	if err != nil {
		return err
	}
	return ok(c, "user retrieved successfully", toUserPart(u))
}

// ForgotPassword issues a recovery OTP for a known email.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return apperr.BadRequest("email required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.ForgotPassword(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return err
	}
	return ok(c, "OTP sent successfully", toUserPart(u))
}

// ValidateOTP consumes a code and returns a purpose token for the requested
// recovery intent.
func (h *AuthHandler) ValidateOTP(c echo.Context) error {
	var req validateOtpReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.OTP == "" {
		return apperr.BadRequest("email/otp required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	purposeToken, err := h.Svc.ValidateOTP(ctx, req.Email, req.OTP, req.Purpose)
	if err != nil {
		return err
	}
	return ok(c, "OTP validated successfully", purposeToken)
}

// SetPassword stores the first password for an onboarding account using the
// set-token header, then logs the caller in.
func (h *AuthHandler) SetPassword(c echo.Context) error {
	purposeToken, err := bearerFromHeader(c, "set-token")
	if err != nil {
		return err
	}
	var req setPasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return apperr.BadRequest("password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.Svc.SetPassword(ctx, req.Password, purposeToken)
	if err != nil {
		return err
	}
	h.setAuthCookies(c, res)
	return ok(c, "Password set successfully", loginData{userPart: toUserPart(res.User), AccessToken: res.AccessToken})
}

// ResetPassword replaces the password of a recovered account using the
// reset-token header. No auto-login.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	purposeToken, err := bearerFromHeader(c, "reset-token")
	if err != nil {
		return err
	}
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil || req.Password == "" {
		return apperr.BadRequest("password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Svc.ResetPassword(ctx, req.Password, req.ConfirmPassword, purposeToken)
	if err != nil {
		return err
	}
	return ok(c, "Password reset successfully", toUserPart(u))
}

// ResendOTP clears any pending code and issues a new one.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	var req emailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return apperr.BadRequest("email required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.ResendOTP(ctx, strings.ToLower(strings.TrimSpace(req.Email))); err != nil {
		return err
	}
	return ok(c, "OTP resent successfully", nil)
}

// Logout clears the token cookies. Tokens are stateless, so nothing is
// invalidated server-side; the bearer simply stops being presented.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(uint64)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Svc.Logout(ctx, uid); err != nil {
		return err
	}
	h.clearCookie(c, "accessToken")
	h.clearCookie(c, "refreshToken")
	return ok(c, "User logged out successfully", nil)
}

// ----- helpers -----

// bearerFromHeader extracts "Bearer <token>" from a named header, used for
// the set-token and reset-token purpose-token headers.
func bearerFromHeader(c echo.Context, name string) (string, error) {
	v := c.Request().Header.Get(name)
	if !strings.HasPrefix(v, "Bearer ") {
		return "", apperr.Unauthorized("Invalid or missing authorization header")
	}
	tok := strings.TrimPrefix(v, "Bearer ")
	if tok == "" || tok == "undefined" {
		return "", apperr.Unauthorized("Invalid or missing authorization header")
	}
	return tok, nil
}

func (h *AuthHandler) setAuthCookies(c echo.Context, res auth.LoginResult) {
	h.setCookie(c, "accessToken", res.AccessToken, cookieMaxAge)
	h.setCookie(c, "refreshToken", res.RefreshToken, cookieMaxAge)
}

// setCookie writes an HTTP-only cookie with the environment-dependent
// cross-site attributes: SameSite=None plus the apex domain in production
// (the SPA is served from another origin there), Lax without a domain
// everywhere else.
func (h *AuthHandler) setCookie(c echo.Context, name, value string, maxAge time.Duration) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.Cfg.Production() {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Domain = h.Cfg.CookieDomain
	}
	c.SetCookie(cookie)
}

// clearCookie expires a cookie with the same attributes it was set with,
// otherwise browsers treat it as a different cookie and keep the original.
func (h *AuthHandler) clearCookie(c echo.Context, name string) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if h.Cfg.Production() {
		cookie.SameSite = http.SameSiteNoneMode
		cookie.Domain = h.Cfg.CookieDomain
	}
	c.SetCookie(cookie)
}

// reqCtx bounds a handler's persistence calls to five seconds.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// ok renders the success envelope shared by every 200 response.
func ok(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"message":    message,
		"statusCode": http.StatusOK,
		"data":       data,
	})
}

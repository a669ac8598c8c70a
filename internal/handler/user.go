package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/fibre52/survey-api/internal/apperr"
	"github.com/fibre52/survey-api/internal/config"
	"github.com/fibre52/survey-api/internal/model"
	"github.com/fibre52/survey-api/internal/repository"
	"github.com/fibre52/survey-api/internal/utils"
)

// UserAdminStore is the slice of user persistence the admin endpoints need.
// *repository.UserRepo satisfies it.
type UserAdminStore interface {
	Create(ctx context.Context, u model.User) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdateStatus(ctx context.Context, id uint64, active bool) error
}

// UserHandler implements account administration: registration and
// enable/disable. Password is optional at registration; accounts created
// without one finish onboarding through the OTP set-password flow.
type UserHandler struct {
	Cfg   config.Config
	Users UserAdminStore
}

func NewUserHandler(cfg config.Config, users UserAdminStore) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users}
}

type createUserReq struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type updateStatusReq struct {
	Status bool `json:"status"`
}

// Create registers a new account. Role must be ADMIN or OFFICER; duplicate
// emails are rejected with 409.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return apperr.BadRequest("email required")
	}
	if !model.ValidRole(req.Role) {
		return apperr.BadRequest("Role must be either ADMIN or OFFICER")
	}

	u := model.User{
		Email:     req.Email,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      req.Role,
		Status:    true,
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return err
		}
		u.PasswordHash = sql.NullString{String: hash, Valid: true}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return apperr.Conflict("User already exists with this email")
		}
		return err
	}
	u.ID = id
	return c.JSON(http.StatusCreated, echo.Map{
		"success":    true,
		"message":    "User created successfully",
		"statusCode": http.StatusCreated,
		"data":       toUserPart(u),
	})
}

// UpdateStatus enables or disables an account. A disabled account fails
// every login and authorization check until re-enabled, even while its
// issued tokens are still cryptographically valid.
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return apperr.BadRequest("invalid user id")
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return apperr.BadRequest("invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return err
	}
	if err := h.Users.UpdateStatus(ctx, u.ID, req.Status); err != nil {
		return err
	}
	u.Status = req.Status
	return ok(c, "User status updated successfully", toUserPart(u))
}

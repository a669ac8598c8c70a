package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fibre52/survey-api/internal/apperr"
	"github.com/fibre52/survey-api/internal/config"
	"github.com/fibre52/survey-api/internal/model"
	"github.com/fibre52/survey-api/internal/repository"
	"github.com/fibre52/survey-api/internal/utils"
)

// memUsers grows the admin-side methods here so it satisfies UserAdminStore.

func (m *memUsers) Create(_ context.Context, u model.User) (uint64, error) {
	for _, existing := range m.byID {
		if existing.Email == u.Email {
			return 0, repository.ErrEmailExists
		}
	}
	u = m.add(u)
	return u.ID, nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id uint64, active bool) error {
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Status = active
	m.byID[id] = u
	return nil
}

func newUserTestHandler() (*UserHandler, *memUsers, *echo.Echo) {
	cfg := config.Config{Env: "development", BcryptCost: bcrypt.MinCost}
	users := &memUsers{byID: map[uint64]model.User{}}

	e := echo.New()
	e.HTTPErrorHandler = apperr.ErrorHandler
	return NewUserHandler(cfg, users), users, e
}

func postJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCreateUser(t *testing.T) {
	h, users, e := newUserTestHandler()
	e.POST("/api/v1/users", h.Create)

	rec := postJSON(e, http.MethodPost, "/api/v1/users",
		`{"email":"New@X.com","firstName":"Ada","lastName":"L","password":"Secret1","role":"OFFICER"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			ID    uint64 `json:"id"`
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "new@x.com", body.Data.Email)
	assert.Equal(t, model.RoleOfficer, body.Data.Role)

	stored := users.byID[body.Data.ID]
	assert.True(t, stored.Status, "new accounts start enabled")
	require.True(t, stored.PasswordHash.Valid)
	assert.True(t, utils.VerifyPassword(stored.PasswordHash.String, "Secret1"),
		"stored hash must verify against the submitted password")
}

func TestCreateUserWithoutPassword(t *testing.T) {
	h, users, e := newUserTestHandler()
	e.POST("/api/v1/users", h.Create)

	rec := postJSON(e, http.MethodPost, "/api/v1/users",
		`{"email":"pending@x.com","firstName":"P","lastName":"Q","role":"ADMIN"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, users.byID, 1)
	for _, u := range users.byID {
		assert.False(t, u.PasswordHash.Valid, "account without password finishes onboarding via OTP")
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	h, users, e := newUserTestHandler()
	e.POST("/api/v1/users", h.Create)

	rec := postJSON(e, http.MethodPost, "/api/v1/users",
		`{"email":"a@x.com","role":"OFFICER"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Same email again, differently cased: rejected and no second row.
	rec = postJSON(e, http.MethodPost, "/api/v1/users",
		`{"email":"A@X.com","role":"ADMIN"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusConflict, body.StatusCode)
	assert.Equal(t, "User already exists with this email", body.Message)
	assert.Len(t, users.byID, 1)
}

func TestCreateUserValidation(t *testing.T) {
	h, users, e := newUserTestHandler()
	e.POST("/api/v1/users", h.Create)

	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing email", `{"role":"ADMIN"}`, "email required"},
		{"unknown role", `{"email":"a@x.com","role":"MANAGER"}`, "Role must be either ADMIN or OFFICER"},
		{"empty role", `{"email":"a@x.com"}`, "Role must be either ADMIN or OFFICER"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(e, http.MethodPost, "/api/v1/users", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body struct {
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Message)
		})
	}
	assert.Empty(t, users.byID, "rejected requests must not create rows")
}

func TestUpdateStatus(t *testing.T) {
	h, users, e := newUserTestHandler()
	e.PATCH("/api/v1/users/:id/status", h.UpdateStatus)

	u := users.add(model.User{Email: "a@x.com", Role: model.RoleOfficer, Status: true})

	rec := postJSON(e, http.MethodPatch, "/api/v1/users/1/status", `{"status":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, users.byID[u.ID].Status)

	rec = postJSON(e, http.MethodPatch, "/api/v1/users/1/status", `{"status":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, users.byID[u.ID].Status)
}

func TestUpdateStatusErrors(t *testing.T) {
	h, _, e := newUserTestHandler()
	e.PATCH("/api/v1/users/:id/status", h.UpdateStatus)

	t.Run("unknown user", func(t *testing.T) {
		rec := postJSON(e, http.MethodPatch, "/api/v1/users/99/status", `{"status":false}`)
		require.Equal(t, http.StatusNotFound, rec.Code)

		var body struct {
			Message string `json:"message"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "User not found", body.Message)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		rec := postJSON(e, http.MethodPatch, "/api/v1/users/abc/status", `{"status":false}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

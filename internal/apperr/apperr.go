// Package apperr defines the typed domain errors used across services and
// the single translator that renders them as the API's JSON error envelope.
// Handlers and services never build their own error responses; they return
// an *Error (or wrap one) and the Echo error handler does the rest.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Error carries an HTTP status code together with a client-facing message.
// It is the only error type that crosses the service/handler boundary.
type Error struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// New builds an *Error with the given status code and message.
func New(status int, message string) *Error {
	return &Error{StatusCode: status, Message: message}
}

// NotFound returns a 404 error.
func NotFound(message string) *Error { return New(http.StatusNotFound, message) }

// Unauthorized returns a 401 error.
func Unauthorized(message string) *Error { return New(http.StatusUnauthorized, message) }

// Forbidden returns a 403 error.
func Forbidden(message string) *Error { return New(http.StatusForbidden, message) }

// BadRequest returns a 400 error.
func BadRequest(message string) *Error { return New(http.StatusBadRequest, message) }

// Conflict returns a 409 error.
func Conflict(message string) *Error { return New(http.StatusConflict, message) }

// Unprocessable returns a 422 error, used for malformed or expired OTPs.
func Unprocessable(message string) *Error { return New(http.StatusUnprocessableEntity, message) }

// Internal returns a 500 error.
func Internal(message string) *Error { return New(http.StatusInternalServerError, message) }

// envelope is the JSON body rendered for every error response.
type envelope struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	StatusCode int    `json:"statusCode"`
}

// ErrorHandler is installed as the Echo HTTPErrorHandler. It unwraps typed
// domain errors to their status/message pair, passes through echo.HTTPError
// (binding failures, 404s from the router) and masks everything else as a
// generic 500 so internal details never leak to clients.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Something went wrong"

	var ae *Error
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ae):
		status = ae.StatusCode
		message = ae.Message
	case errors.As(err, &he):
		status = he.Code
		if s, ok := he.Message.(string); ok {
			message = s
		} else {
			message = http.StatusText(he.Code)
		}
	default:
		c.Logger().Error(err)
	}

	_ = c.JSON(status, envelope{Success: false, Message: message, StatusCode: status})
}

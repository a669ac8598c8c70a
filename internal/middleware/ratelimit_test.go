package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fibre52/survey-api/internal/config"
)

func testPolicy(max int64) config.RateLimitPolicy {
	return config.RateLimitPolicy{
		Name:    "test",
		Window:  time.Minute,
		Max:     max,
		Message: "Too many requests. Please try again later.",
	}
}

// do sends one request through the limited route and returns the recorder.
func do(e *echo.Echo, ip, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/limited", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if ip != "" {
		req.Header.Set("X-Real-IP", ip)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestMemoryCounterStoreWindow(t *testing.T) {
	store := NewMemoryCounterStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		count, remaining, err := store.Hit(context.Background(), "k", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, count)
		assert.Equal(t, time.Minute, remaining)
	}

	// Counters reset when the window elapses, not on success.
	now = now.Add(61 * time.Second)
	count, _, err := store.Hit(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRateLimitRejectsOverMax(t *testing.T) {
	e := echo.New()
	store := NewMemoryCounterStore()
	e.POST("/limited", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimit(testPolicy(3), store, KeyByIP))

	for i := 0; i < 3; i++ {
		rec := do(e, "1.2.3.4", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d should pass", i+1)
	}

	rec := do(e, "1.2.3.4", "")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	var body struct {
		Success    bool   `json:"success"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, http.StatusTooManyRequests, body.StatusCode)
	assert.Equal(t, "Too many requests. Please try again later.", body.Message)

	// A different key in the same window is unaffected.
	rec = do(e, "5.6.7.8", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitCountsFailedAttempts(t *testing.T) {
	e := echo.New()
	store := NewMemoryCounterStore()
	e.POST("/limited", func(c echo.Context) error { return echo.ErrUnauthorized },
		RateLimit(testPolicy(2), store, KeyByIP))

	for i := 0; i < 2; i++ {
		rec := do(e, "1.2.3.4", "")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := do(e, "1.2.3.4", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestKeyByEmailPreservesBody(t *testing.T) {
	e := echo.New()
	store := NewMemoryCounterStore()

	var seenEmail string
	e.POST("/limited", func(c echo.Context) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := c.Bind(&req); err != nil {
			return err
		}
		seenEmail = req.Email
		return c.NoContent(http.StatusOK)
	}, RateLimit(testPolicy(2), store, KeyByEmail))

	rec := do(e, "1.2.3.4", `{"email":"A@X.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	// The limiter peeked at the body; the handler must still see it.
	assert.Equal(t, "A@X.com", seenEmail)

	// Keying is by normalized email, not IP: same email from another IP
	// shares the window, a different email does not.
	rec = do(e, "9.9.9.9", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, "9.9.9.9", `{"email":"a@x.com"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec = do(e, "9.9.9.9", `{"email":"b@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestKeyByEmailOversizedBodyFallsBackToIP(t *testing.T) {
	e := echo.New()
	store := NewMemoryCounterStore()

	var seenBytes int
	e.POST("/limited", func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		seenBytes = len(b)
		return c.NoContent(http.StatusOK)
	}, RateLimit(testPolicy(1), store, KeyByEmail))

	pad := strings.Repeat("x", maxPeekBytes)
	body := `{"email":"big@x.com","pad":"` + pad + `"}`
	require.Greater(t, len(body), maxPeekBytes)

	// The limiter must not truncate what the handler reads.
	rec := do(e, "1.2.3.4", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, len(body), seenBytes)

	// Oversized bodies are keyed by IP, not by the email inside them: the
	// same payload from another IP starts its own window, a repeat from the
	// first IP does not.
	rec = do(e, "5.6.7.8", body)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(e, "1.2.3.4", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

type erroringStore struct{}

func (erroringStore) Hit(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("store down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	e := echo.New()
	e.POST("/limited", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		RateLimit(testPolicy(1), erroringStore{}, KeyByIP))

	for i := 0; i < 5; i++ {
		rec := do(e, "1.2.3.4", "")
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestKeyByIdentityFallsBackToIP(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Real-IP", "1.2.3.4")
	c := e.NewContext(req, httptest.NewRecorder())

	assert.Equal(t, "1.2.3.4", KeyByIdentity(c))

	c.Set(CtxUserID, uint64(42))
	assert.Equal(t, "42", KeyByIdentity(c))
}

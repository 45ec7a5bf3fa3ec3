package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/coldfire85/neurolog/internal/server/auth"
)

func TestRequireAuth(t *testing.T) {
	const secret = "test-secret"

	e := echo.New()
	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, currentUserID(c))
	}
	protected := RequireAuth(secret)(handler)

	t.Run("missing header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/media", nil)
		rec := httptest.NewRecorder()

		if err := protected(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed header rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/media", nil)
		req.Header.Set("Authorization", "Token abc123")
		rec := httptest.NewRecorder()

		if err := protected(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("invalid token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/media", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		rec := httptest.NewRecorder()

		if err := protected(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("valid token passes user ID through", func(t *testing.T) {
		token, err := auth.GenerateToken("user42", "a@b.com", "Dr A", time.Hour, secret)
		if err != nil {
			t.Fatalf("failed to generate token: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/media", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		if err := protected(e.NewContext(req, rec)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "user42" {
			t.Errorf("expected user42 in context, got %q", rec.Body.String())
		}
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows up to burst", func(t *testing.T) {
		rl := NewRateLimiter(1, 3)
		for i := 0; i < 3; i++ {
			if !rl.allow("10.0.0.1") {
				t.Fatalf("request %d should be allowed", i+1)
			}
		}
		if rl.allow("10.0.0.1") {
			t.Error("fourth request should be denied")
		}
	})

	t.Run("limits per IP independently", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		if !rl.allow("10.0.0.1") {
			t.Fatal("first IP should be allowed")
		}
		if !rl.allow("10.0.0.2") {
			t.Error("second IP should be allowed")
		}
	})

	t.Run("stop is idempotent and leaves limiting intact", func(t *testing.T) {
		rl := NewRateLimiter(1, 1)
		rl.Stop()
		rl.Stop()

		select {
		case <-rl.stop:
		default:
			t.Error("expected stop channel to be closed")
		}
		if !rl.allow("10.0.0.1") {
			t.Error("limiter should still work after Stop")
		}
	})
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

func sign(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func run(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, bool, any) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	var viewer any
	handler := mw(func(c echo.Context) error {
		called = true
		viewer = c.Get(ViewerKey)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, called, viewer
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token := sign(t, "secret", jwt.MapClaims{
		"address": "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	rec, called, viewer := run(t, Auth("secret"), "Bearer "+token)
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if viewer != "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1" {
		t.Fatalf("viewer not set, got %v", viewer)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired := sign(t, "secret", jwt.MapClaims{"address": "0xA", "exp": time.Now().Add(-time.Hour).Unix()})
	noAddress := sign(t, "secret", jwt.MapClaims{"sub": "alice"})
	wrongKey := sign(t, "other", jwt.MapClaims{"address": "0xA"})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"invalid header format", "Token abc"},
		{"malformed token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expired},
		{"missing address claim", "Bearer " + noAddress},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, called, _ := run(t, Auth("secret"), tt.header)
			if called {
				t.Fatal("should not reach next")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestOptionalAuth_AnonymousPassesThrough(t *testing.T) {
	rec, called, viewer := run(t, OptionalAuth("secret"), "")
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected anonymous request to pass, got %d", rec.Code)
	}
	if viewer != nil {
		t.Errorf("expected no viewer, got %v", viewer)
	}
}

func TestOptionalAuth_InvalidTokenStillRejected(t *testing.T) {
	rec, called, _ := run(t, OptionalAuth("secret"), "Bearer not-a-token")
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestOptionalAuth_NoSecretConfigured(t *testing.T) {
	token := sign(t, "secret", jwt.MapClaims{"address": "0xA"})
	rec, called, _ := run(t, OptionalAuth(""), "Bearer "+token)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a configured secret, got %d", rec.Code)
	}
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/legatepro/legate/pkg/auth"
)

// mockAuthService implements auth.Service for testing
type mockAuthService struct {
	validateTokenFunc func(ctx context.Context, token string) (*auth.Context, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*auth.Context, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, auth.ErrInvalidToken
}

func (m *mockAuthService) ProvisionUser(ctx context.Context, email, name, ssoSubject string) (*auth.User, error) {
	return nil, nil
}

func (m *mockAuthService) GetUser(ctx context.Context, id string) (*auth.User, error) {
	return nil, nil
}

func (m *mockAuthService) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return nil, nil
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID string, ttl time.Duration) (*auth.Session, string, error) {
	return nil, "", nil
}

func (m *mockAuthService) RevokeSession(ctx context.Context, sessionID string) error {
	return nil
}

func (m *mockAuthService) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

func okHandler(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	m := NewAuthMiddleware(&mockAuthService{}, false)

	var called bool
	handler := m.Handler(okHandler(t, &called))

	req := httptest.NewRequest("GET", "/api/estates", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("handler should not have been called")
	}
}

func TestAuthMiddlewareOptionalPassesThrough(t *testing.T) {
	m := NewAuthMiddleware(&mockAuthService{}, true)

	var called bool
	handler := m.Handler(okHandler(t, &called))

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !called {
		t.Error("handler should have been called")
	}
}

func TestAuthMiddlewareInvalidFormat(t *testing.T) {
	m := NewAuthMiddleware(&mockAuthService{}, false)

	var called bool
	handler := m.Handler(okHandler(t, &called))

	req := httptest.NewRequest("GET", "/api/estates", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	svc := &mockAuthService{
		validateTokenFunc: func(ctx context.Context, token string) (*auth.Context, error) {
			return nil, auth.ErrInvalidToken
		},
	}
	m := NewAuthMiddleware(svc, false)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest("GET", "/api/estates", nil)
	req.Header.Set("Authorization", "Bearer legate_bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	svc := &mockAuthService{
		validateTokenFunc: func(ctx context.Context, token string) (*auth.Context, error) {
			if token != "legate_valid" {
				return nil, auth.ErrInvalidToken
			}
			return &auth.Context{UserID: "u1", Email: "u1@example.com", SessionID: "s1"}, nil
		},
	}
	m := NewAuthMiddleware(svc, false)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := GetAuthContext(r)
		if authCtx == nil {
			t.Fatal("auth context missing from request")
		}
		if authCtx.UserID != "u1" {
			t.Errorf("unexpected user id: %s", authCtx.UserID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/estates", nil)
	req.Header.Set("Authorization", "Bearer legate_valid")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	var called bool
	handler := RequireAuth(okHandler(t, &called))

	req := httptest.NewRequest("GET", "/api/estates", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Error("handler should not have been called")
	}
}

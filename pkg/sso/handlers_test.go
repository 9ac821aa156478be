package sso

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/auth"
	"github.com/legatepro/legate/pkg/observability"
)

type fakeProvider struct {
	name string
	user *SSOUser
	err  error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) InitiateLogin(w http.ResponseWriter, r *http.Request, state string) error {
	http.Redirect(w, r, "https://idp.example.com/auth?state="+state, http.StatusFound)
	return nil
}

func (f *fakeProvider) HandleCallback(_ *http.Request) (*SSOUser, error) {
	return f.user, f.err
}

type fakeSessionService struct {
	provisioned []string
	revoked     []string
}

func (f *fakeSessionService) ProvisionUser(_ context.Context, email, name, ssoSubject string) (*auth.User, error) {
	f.provisioned = append(f.provisioned, email)
	return &auth.User{ID: "u1", Email: email, Name: name, SSOSubject: ssoSubject}, nil
}

func (f *fakeSessionService) GetUser(_ context.Context, id string) (*auth.User, error) {
	return &auth.User{ID: id, Email: "j@example.com"}, nil
}

func (f *fakeSessionService) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	return &auth.User{ID: "u1", Email: email}, nil
}

func (f *fakeSessionService) CreateSession(_ context.Context, userID string, ttl time.Duration) (*auth.Session, string, error) {
	return &auth.Session{ID: "s1", UserID: userID, ExpiresAt: time.Now().Add(ttl)}, "legate_testtoken", nil
}

func (f *fakeSessionService) ValidateToken(_ context.Context, _ string) (*auth.Context, error) {
	return nil, auth.ErrInvalidToken
}

func (f *fakeSessionService) RevokeSession(_ context.Context, sessionID string) error {
	f.revoked = append(f.revoked, sessionID)
	return nil
}

func (f *fakeSessionService) CleanupExpiredSessions(_ context.Context) (int64, error) {
	return 0, nil
}

func setupHandlers(provider Provider) (*Handlers, *fakeSessionService, *mux.Router) {
	sessions := &fakeSessionService{}
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	handlers := NewHandlers(sessions, time.Hour, logger, provider)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return handlers, sessions, router
}

func TestLoginSetsStateAndRedirects(t *testing.T) {
	_, _, router := setupHandlers(&fakeProvider{name: "oidc"})

	req := httptest.NewRequest("GET", "/auth/sso/oidc/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}

	var state string
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookie {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("state cookie not set")
	}
}

func TestCallbackIssuesToken(t *testing.T) {
	provider := &fakeProvider{
		name: "oidc",
		user: &SSOUser{Subject: "sub-1", Email: "j@example.com", Name: "J. Doe"},
	}
	_, sessions, router := setupHandlers(provider)

	req := httptest.NewRequest("GET", "/auth/sso/oidc/callback?state=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Token != "legate_testtoken" {
		t.Errorf("token = %q", resp.Token)
	}
	if len(sessions.provisioned) != 1 || sessions.provisioned[0] != "j@example.com" {
		t.Errorf("provisioned = %v", sessions.provisioned)
	}
}

func TestCallbackRejectsBadState(t *testing.T) {
	provider := &fakeProvider{
		name: "oidc",
		user: &SSOUser{Subject: "sub-1", Email: "j@example.com"},
	}
	_, sessions, router := setupHandlers(provider)

	req := httptest.NewRequest("GET", "/auth/sso/oidc/callback?state=forged", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(sessions.provisioned) != 0 {
		t.Errorf("user provisioned despite forged state")
	}
}

func TestCallbackRejectsProviderFailure(t *testing.T) {
	provider := &fakeProvider{name: "saml", err: errors.New("assertion has invalid time")}
	_, _, router := setupHandlers(provider)

	req := httptest.NewRequest("GET", "/auth/sso/saml/callback?state=abc", nil)
	req.AddCookie(&http.Cookie{Name: stateCookie, Value: "abc"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestUnknownProvider(t *testing.T) {
	_, _, router := setupHandlers(&fakeProvider{name: "oidc"})

	req := httptest.NewRequest("GET", "/auth/sso/okta/login", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

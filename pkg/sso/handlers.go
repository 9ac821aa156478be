package sso

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/auth"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/observability"
)

const stateCookie = "legate_sso_state"

// Handlers wires identity providers to session issuance
type Handlers struct {
	providers  map[string]Provider
	sessions   auth.Service
	sessionTTL time.Duration
	logger     *observability.Logger
}

// NewHandlers creates SSO handlers over the enabled providers
func NewHandlers(sessions auth.Service, sessionTTL time.Duration, logger *observability.Logger, providers ...Provider) *Handlers {
	byName := make(map[string]Provider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}
	return &Handlers{
		providers:  byName,
		sessions:   sessions,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// RegisterRoutes registers the login, callback and session routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/auth/sso/{provider}/login", h.Login).Methods("GET")
	r.HandleFunc("/auth/sso/{provider}/callback", h.Callback).Methods("GET", "POST")
	r.HandleFunc("/api/auth/me", h.Me).Methods("GET")
	r.HandleFunc("/api/auth/logout", h.Logout).Methods("POST")
}

// Login handles GET /auth/sso/{provider}/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[mux.Vars(r)["provider"]]
	if !ok {
		httputil.WriteNotFoundError(w, "Unknown identity provider")
		return
	}

	state, err := generateState()
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	if err := provider.InitiateLogin(w, r, state); err != nil {
		h.logger.WithError(err).Error("failed to initiate SSO login")
		httputil.WriteInternalError(w, err)
	}
}

// Callback handles the provider response, provisions the user and
// issues a session token
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.providers[mux.Vars(r)["provider"]]
	if !ok {
		httputil.WriteNotFoundError(w, "Unknown identity provider")
		return
	}

	if !h.validState(r) {
		httputil.WriteValidationError(w, "Invalid login state")
		return
	}

	ssoUser, err := provider.HandleCallback(r)
	if err != nil {
		h.logger.WithError(err).WithField("provider", provider.Name()).Warn("SSO callback rejected")
		httputil.WriteUnauthorized(w, "login failed")
		return
	}

	user, err := h.sessions.ProvisionUser(r.Context(), ssoUser.Email, ssoUser.Name, ssoUser.Subject)
	if err != nil {
		h.logger.WithError(err).Error("failed to provision user")
		httputil.WriteInternalError(w, err)
		return
	}

	session, token, err := h.sessions.CreateSession(r.Context(), user.ID, h.sessionTTL)
	if err != nil {
		h.logger.WithError(err).Error("failed to create session")
		httputil.WriteInternalError(w, err)
		return
	}

	// Clear the state cookie
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/", MaxAge: -1})

	httputil.WriteSuccess(w, map[string]interface{}{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"user":       user,
	})
}

// validState compares the callback state with the cookie. SAML IdPs
// post RelayState instead of a query parameter.
func (h *Handlers) validState(r *http.Request) bool {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	state := r.URL.Query().Get("state")
	if state == "" {
		state = r.FormValue("RelayState")
	}
	return state == cookie.Value
}

// Me handles GET /api/auth/me
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	user, err := h.sessions.GetUser(r.Context(), authCtx.UserID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"user": user})
}

// Logout handles POST /api/auth/logout by revoking the session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	if err := h.sessions.RevokeSession(r.Context(), authCtx.SessionID); err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func generateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

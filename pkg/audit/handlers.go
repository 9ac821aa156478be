package audit

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
)

// Handlers serves the per-estate event feed
type Handlers struct {
	store *DBLogger
	guard *access.Guard
}

// NewHandlers creates audit handlers
func NewHandlers(store *DBLogger, guard *access.Guard) *Handlers {
	return &Handlers{store: store, guard: guard}
}

// RegisterRoutes registers audit routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/estates/{id}/events", h.ListEvents).Methods("GET")
}

// ListEvents handles GET /api/estates/{id}/events
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if _, err := h.guard.RequireMember(r.Context(), estateID, authCtx.UserID); err != nil {
		switch err {
		case access.ErrEstateNotFound, access.ErrNoAccess:
			httputil.WriteNotFoundError(w, "Estate not found")
		default:
			httputil.WriteInternalError(w, err)
		}
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil {
			limit = parsed
		}
	}

	events, err := h.store.ListByEstate(r.Context(), estateID, limit)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"events": events})
}

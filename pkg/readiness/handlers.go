package readiness

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
)

// Handlers exposes the readiness plan endpoint
type Handlers struct {
	collector *Collector
	planner   *Planner
	guard     *access.Guard
}

// NewHandlers creates readiness handlers
func NewHandlers(collector *Collector, planner *Planner, guard *access.Guard) *Handlers {
	return &Handlers{collector: collector, planner: planner, guard: guard}
}

// RegisterRoutes registers the readiness routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/estates/{id}/readiness", h.GetPlan).Methods("GET")
}

// GetPlan handles GET /api/estates/{id}/readiness
func (h *Handlers) GetPlan(w http.ResponseWriter, r *http.Request) {
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

	signals, err := h.collector.Collect(r.Context(), estateID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	plan, err := h.planner.BuildPlan(r.Context(), estateID, signals)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"plan": plan})
}

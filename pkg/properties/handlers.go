package properties

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/validation"
)

// Handlers provides HTTP handlers for the property API
type Handlers struct {
	service *Service
}

// NewHandlers creates new property handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers all property routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/properties", h.List).Methods("GET")
	r.HandleFunc("/api/properties", h.Create).Methods("POST")
	r.HandleFunc("/api/properties/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/properties/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/api/properties/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/properties/{id}/rent-summary", h.RentSummary).Methods("GET")
}

func writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := validation.AsError(err); ok {
		httputil.WriteValidationError(w, verr.Message)
		return
	}
	switch err {
	case access.ErrEstateNotFound, access.ErrNoAccess, ErrNotFound:
		httputil.WriteNotFoundError(w, "Property not found")
	case access.ErrForbidden:
		httputil.WriteForbidden(w, "Read-only access")
	default:
		httputil.WriteInternalError(w, err)
	}
}

// List handles GET /api/properties?estateId=...
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID := httputil.ParseQueryString(r, "estateId", "")
	if estateID == "" {
		httputil.WriteValidationError(w, "Estate is required")
		return
	}

	properties, err := h.service.ListByEstate(r.Context(), estateID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"properties": properties})
}

// Create handles POST /api/properties
func (h *Handlers) Create(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	var req CreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	property, err := h.service.Create(r.Context(), authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{"property": property})
}

// Get handles GET /api/properties/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	propertyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	property, err := h.service.Get(r.Context(), propertyID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"property": property})
}

// Update handles PATCH /api/properties/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	propertyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	property, err := h.service.Update(r.Context(), propertyID, authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"property": property})
}

// Delete handles DELETE /api/properties/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	propertyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), propertyID, authCtx.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// RentSummary handles GET /api/properties/{id}/rent-summary
func (h *Handlers) RentSummary(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	propertyID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.service.RentSummary(r.Context(), propertyID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"summary": summary})
}

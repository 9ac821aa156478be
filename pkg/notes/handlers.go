package notes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/validation"
)

// Handlers provides HTTP handlers for the note API
type Handlers struct {
	service *Service
}

// NewHandlers creates new note handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers all note routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/notes", h.List).Methods("GET")
	r.HandleFunc("/api/notes", h.Create).Methods("POST")
	r.HandleFunc("/api/notes/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/notes/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/api/notes/{id}", h.Delete).Methods("DELETE")
}

func writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := validation.AsError(err); ok {
		httputil.WriteValidationError(w, verr.Message)
		return
	}
	switch err {
	case access.ErrEstateNotFound, access.ErrNoAccess, ErrNotFound:
		httputil.WriteNotFoundError(w, "Note not found")
	case access.ErrForbidden:
		httputil.WriteForbidden(w, "Read-only access")
	default:
		httputil.WriteInternalError(w, err)
	}
}

// List handles GET /api/notes?estateId=...
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

	notes, err := h.service.ListByEstate(r.Context(), estateID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"notes": notes})
}

// Create handles POST /api/notes
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

	note, err := h.service.Create(r.Context(), authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{"note": note})
}

// Get handles GET /api/notes/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	noteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	note, err := h.service.Get(r.Context(), noteID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"note": note})
}

// Update handles PATCH /api/notes/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	noteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	note, err := h.service.Update(r.Context(), noteID, authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"note": note})
}

// Delete handles DELETE /api/notes/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	noteID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), noteID, authCtx.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

package estates

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/validation"
)

// Handlers provides HTTP handlers for the estates API
type Handlers struct {
	service *Service
}

// NewHandlers creates new estate handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers all estate routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/estates", h.List).Methods("GET")
	r.HandleFunc("/api/estates", h.Create).Methods("POST")
	r.HandleFunc("/api/estates/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/estates/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/api/estates/{id}", h.Delete).Methods("DELETE")

	r.HandleFunc("/api/estates/{id}/collaborators", h.ListCollaborators).Methods("GET")
	r.HandleFunc("/api/estates/{id}/collaborators", h.AddCollaborator).Methods("POST")
	r.HandleFunc("/api/estates/{id}/collaborators/{userId}", h.RemoveCollaborator).Methods("DELETE")
}

func writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := validation.AsError(err); ok {
		httputil.WriteValidationError(w, verr.Message)
		return
	}
	switch err {
	case access.ErrEstateNotFound, access.ErrNoAccess, ErrNotFound:
		httputil.WriteNotFoundError(w, "Estate not found")
	case access.ErrForbidden:
		httputil.WriteForbidden(w, "Read-only access")
	default:
		httputil.WriteInternalError(w, err)
	}
}

// List handles GET /api/estates
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estates, err := h.service.ListForUser(r.Context(), authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"estates": estates})
}

// Create handles POST /api/estates
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

	estate, err := h.service.Create(r.Context(), authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{"estate": estate})
}

// Get handles GET /api/estates/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	estate, acc, err := h.service.Get(r.Context(), estateID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"estate": estate,
		"access": acc,
	})
}

// Update handles PATCH /api/estates/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	estate, err := h.service.Update(r.Context(), estateID, authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"estate": estate})
}

// Delete handles DELETE /api/estates/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), estateID, authCtx.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

// ListCollaborators handles GET /api/estates/{id}/collaborators
func (h *Handlers) ListCollaborators(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	collaborators, err := h.service.ListCollaborators(r.Context(), estateID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"collaborators": collaborators})
}

// AddCollaborator handles POST /api/estates/{id}/collaborators
func (h *Handlers) AddCollaborator(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req CollaboratorRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	collaborator, err := h.service.AddCollaborator(r.Context(), estateID, authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{"collaborator": collaborator})
}

// RemoveCollaborator handles DELETE /api/estates/{id}/collaborators/{userId}
func (h *Handlers) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	estateID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}
	collaboratorUserID, ok := httputil.ParsePathStringOrError(w, r, "userId")
	if !ok {
		return
	}

	if err := h.service.RemoveCollaborator(r.Context(), estateID, authCtx.UserID, collaboratorUserID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

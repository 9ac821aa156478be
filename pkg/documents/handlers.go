package documents

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/validation"
)

// 50 MB upload ceiling
const maxUploadBytes = 50 << 20

// Handlers provides HTTP handlers for the document API
type Handlers struct {
	service *Service
}

// NewHandlers creates new document handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers all document routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/documents", h.List).Methods("GET")
	r.HandleFunc("/api/documents", h.Upload).Methods("POST")
	r.HandleFunc("/api/documents/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/documents/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/api/documents/{id}", h.Delete).Methods("DELETE")
	r.HandleFunc("/api/documents/{id}/download", h.Download).Methods("GET")
}

func writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := validation.AsError(err); ok {
		httputil.WriteValidationError(w, verr.Message)
		return
	}
	switch err {
	case access.ErrEstateNotFound, access.ErrNoAccess, ErrNotFound:
		httputil.WriteNotFoundError(w, "Document not found")
	case access.ErrForbidden:
		httputil.WriteForbidden(w, "Read-only access")
	default:
		httputil.WriteInternalError(w, err)
	}
}

// List handles GET /api/documents?estateId=...
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

	documents, err := h.service.ListByEstate(r.Context(), estateID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"documents": documents})
}

// Upload handles POST /api/documents as a multipart form with the file
// under "file" plus estateId, name, category and sensitive fields
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httputil.WriteValidationError(w, "Valid multipart upload is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteValidationError(w, "Document file is required")
		return
	}
	defer file.Close()

	req := &UploadRequest{
		EstateID:  r.FormValue("estateId"),
		Name:      r.FormValue("name"),
		Category:  r.FormValue("category"),
		Sensitive: r.FormValue("sensitive") == "true",
	}
	if req.Name == "" {
		req.Name = header.Filename
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc, err := h.service.Upload(r.Context(), authCtx.UserID, req, file, contentType, header.Size)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{"document": doc})
}

// Get handles GET /api/documents/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	documentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.service.Get(r.Context(), documentID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"document": doc})
}

// Download handles GET /api/documents/{id}/download
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	documentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	body, doc, err := h.service.Download(r.Context(), documentID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	if doc.SizeBytes > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", doc.SizeBytes))
	}
	_, _ = io.Copy(w, body)
}

// Update handles PATCH /api/documents/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	documentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	doc, err := h.service.Update(r.Context(), documentID, authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"document": doc})
}

// Delete handles DELETE /api/documents/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	documentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), documentID, authCtx.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

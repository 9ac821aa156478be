package rent

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/legatepro/legate/pkg/access"
	"github.com/legatepro/legate/pkg/httputil"
	"github.com/legatepro/legate/pkg/middleware"
	"github.com/legatepro/legate/pkg/validation"
)

// Handlers provides HTTP handlers for the rent API
type Handlers struct {
	service *Service
}

// NewHandlers creates new rent handlers
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes registers all rent routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/rent", h.List).Methods("GET")
	r.HandleFunc("/api/rent", h.Create).Methods("POST")
	r.HandleFunc("/api/rent/{id}", h.Get).Methods("GET")
	r.HandleFunc("/api/rent/{id}", h.Update).Methods("PATCH")
	r.HandleFunc("/api/rent/{id}", h.Delete).Methods("DELETE")
}

func writeServiceError(w http.ResponseWriter, err error) {
	if verr, ok := validation.AsError(err); ok {
		httputil.WriteValidationError(w, verr.Message)
		return
	}
	switch err {
	case access.ErrEstateNotFound, access.ErrNoAccess, ErrNotFound:
		httputil.WriteNotFoundError(w, "Payment not found")
	case access.ErrForbidden:
		httputil.WriteForbidden(w, "Read-only access")
	default:
		httputil.WriteInternalError(w, err)
	}
}

// List handles GET /api/rent with estateId, propertyId, paid, from, to
// and q filters
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	paid, err := httputil.ParseQueryBoolPtr(r, "paid")
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	from, err := httputil.ParseQueryDate(r, "from")
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}
	to, err := httputil.ParseQueryDate(r, "to")
	if err != nil {
		httputil.WriteValidationError(w, err.Error())
		return
	}

	filter := &ListFilter{
		EstateID:   httputil.ParseQueryString(r, "estateId", ""),
		PropertyID: httputil.ParseQueryString(r, "propertyId", ""),
		Paid:       paid,
		From:       from,
		To:         to,
		Search:     httputil.ParseQueryString(r, "q", ""),
	}

	payments, err := h.service.List(r.Context(), authCtx.UserID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"payments": payments})
}

// Create handles POST /api/rent
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

	payment, err := h.service.Create(r.Context(), authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteCreated(w, map[string]interface{}{"payment": payment})
}

// Get handles GET /api/rent/{id}
func (h *Handlers) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	paymentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	payment, err := h.service.Get(r.Context(), paymentID, authCtx.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"payment": payment})
}

// Update handles PATCH /api/rent/{id}
func (h *Handlers) Update(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	paymentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	payment, err := h.service.Update(r.Context(), paymentID, authCtx.UserID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{"payment": payment})
}

// Delete handles DELETE /api/rent/{id}
func (h *Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	paymentID, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), paymentID, authCtx.UserID); err != nil {
		writeServiceError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

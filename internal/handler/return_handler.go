package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// ReturnHandler handles return-related HTTP requests.
type ReturnHandler struct {
	service service.ReturnService
	logger  zerolog.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(service service.ReturnService, logger zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: service,
		logger:  logger.With().Str("handler", "return").Logger(),
	}
}

// Create handles POST /api/returns requests.
func (h *ReturnHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateReturnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	ret, err := h.service.CreateReturn(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, ret, h.logger)
}

// Get handles GET /api/returns/{rmaNumber} requests.
func (h *ReturnHandler) Get(w http.ResponseWriter, r *http.Request) {
	ret, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "rmaNumber"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ret, h.logger)
}

// ListByOrder handles GET /api/orders/{orderNumber}/returns requests.
func (h *ReturnHandler) ListByOrder(w http.ResponseWriter, r *http.Request) {
	returns, err := h.service.ListByOrder(r.Context(), chi.URLParam(r, "orderNumber"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, returns, h.logger)
}

// Update handles PATCH /api/returns/{rmaNumber} requests.
func (h *ReturnHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateReturnRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err, h.logger)
		return
	}

	ret, err := h.service.UpdateReturn(r.Context(), chi.URLParam(r, "rmaNumber"), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, ret, h.logger)
}

package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"inventory-service/internal/domains/inventory/model"
	"inventory-service/internal/domains/inventory/service"
	"inventory-service/internal/shared/response"
	"inventory-service/pkg/logger"
)

// Handler exposes the reservation engine and the query surface over HTTP.
type Handler struct {
	service service.ServiceInterface
	log     zerolog.Logger
}

func NewHandler(svc service.ServiceInterface) *Handler {
	return &Handler{
		service: svc,
		log:     logger.Component("inventory-http"),
	}
}

// Reserve handles POST /inventory/reserve.
func (h *Handler) Reserve(c *gin.Context) {
	var req model.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.Reserve(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusCreated, resp)
}

// Release handles POST /inventory/release.
func (h *Handler) Release(c *gin.Context) {
	var req model.ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.Release(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusOK, resp)
}

// GetAvailable handles GET /inventory/:sku.
func (h *Handler) GetAvailable(c *gin.Context) {
	skuCode := c.Param("sku")

	resp, err := h.service.GetAvailableInventory(c.Request.Context(), skuCode)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusOK, resp)
}

// Adjust handles POST /admin/inventory/adjust. Operator corrections only;
// reconciliation writes its own adjustments with a different source.
func (h *Handler) Adjust(c *gin.Context) {
	var req model.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.Adjust(c.Request.Context(), req, model.SourceManualAdjustment)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusOK, resp)
}

// CreateSKU handles POST /admin/skus.
func (h *Handler) CreateSKU(c *gin.Context) {
	var req model.CreateSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	sku, err := h.service.CreateSKU(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusCreated, sku)
}

// CreateBatch handles POST /admin/batches.
func (h *Handler) CreateBatch(c *gin.Context) {
	var req model.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	batch, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	response.OK(c, http.StatusCreated, batch)
}

// respondError translates domain errors to the documented code and status.
// Insufficient inventory carries its stock details into the envelope.
func (h *Handler) respondError(c *gin.Context, err error) {
	code, status := model.CodeOf(err)

	if code == "INTERNAL_ERROR" {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.InternalError(c, "an unexpected error occurred")
		return
	}

	var insufficientErr *model.InsufficientInventoryError
	if errors.As(err, &insufficientErr) {
		response.ErrorWithDetails(c, status, code, err.Error(), insufficientErr)
		return
	}

	response.Error(c, status, code, err.Error())
}

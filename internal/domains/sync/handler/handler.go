package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	invmodel "inventory-service/internal/domains/inventory/model"
	"inventory-service/internal/domains/sync/model"
	"inventory-service/internal/domains/sync/service"
	"inventory-service/internal/shared/response"
	"inventory-service/pkg/logger"
)

// Handler is the operator surface of the reconciliation engine.
type Handler struct {
	service service.ServiceInterface
	log     zerolog.Logger
}

func NewHandler(svc service.ServiceInterface) *Handler {
	return &Handler{
		service: svc,
		log:     logger.Component("sync-http"),
	}
}

type forceSyncRequest struct {
	// BatchID is the external WMS batch id. Omitted means full sync.
	BatchID *string `json:"batchId,omitempty"`
	// Reason is free text recorded on the request for the audit trail.
	Reason string `json:"reason,omitempty"`
}

// ForceSync handles POST /admin/wms/sync. The run happens on the sync
// worker; the response only acknowledges the queued request.
func (h *Handler) ForceSync(c *gin.Context) {
	var req forceSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		return
	}

	requestedBy := c.GetString("operator")
	if requestedBy == "" {
		requestedBy = "unknown"
	}

	syncReq, err := h.service.RequestSync(c.Request.Context(), req.BatchID, req.Reason, requestedBy)
	if err != nil {
		if errors.Is(err, invmodel.ErrBatchNotFound) {
			response.Error(c, http.StatusNotFound, "BATCH_NOT_FOUND", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to request sync")
		response.InternalError(c, "an unexpected error occurred")
		return
	}

	response.OK(c, http.StatusAccepted, gin.H{
		"requestId": syncReq.ID,
		"status":    "queued",
	})
}

// ListSyncRequests handles GET /admin/wms/sync.
func (h *Handler) ListSyncRequests(c *gin.Context) {
	requests, err := h.service.ListSyncRequests(c.Request.Context(), 50)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list sync requests")
		response.InternalError(c, "an unexpected error occurred")
		return
	}

	response.OK(c, http.StatusOK, gin.H{"requests": requests, "count": len(requests)})
}

// GetSyncRequest handles GET /admin/wms/sync/:id.
func (h *Handler) GetSyncRequest(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request id")
		return
	}

	req, err := h.service.GetSyncRequest(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrSyncRequestNotFound) {
			response.Error(c, http.StatusNotFound, "SYNC_REQUEST_NOT_FOUND", err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Failed to get sync request")
		response.InternalError(c, "an unexpected error occurred")
		return
	}

	response.OK(c, http.StatusOK, req)
}

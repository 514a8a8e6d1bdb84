package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inventory-service/internal/domains/outbox/repository"
	"inventory-service/internal/shared/response"
	"inventory-service/pkg/logger"
)

// Handler is the operator surface over the outbox: inspect FAILED events
// and push one back to PENDING. There is no automatic retry of FAILED
// events; this endpoint is the only way back.
type Handler struct {
	repo repository.RepositoryInterface
	log  zerolog.Logger
}

func NewHandler(repo repository.RepositoryInterface) *Handler {
	return &Handler{
		repo: repo,
		log:  logger.Component("outbox-http"),
	}
}

// ListFailed handles GET /admin/outbox/failed.
func (h *Handler) ListFailed(c *gin.Context) {
	events, err := h.repo.ListFailed(c.Request.Context(), 100)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list failed outbox events")
		response.InternalError(c, "an unexpected error occurred")
		return
	}

	response.OK(c, http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// Retry handles POST /admin/outbox/:id/retry.
func (h *Handler) Retry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid event id")
		return
	}

	if err := h.repo.Retry(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventNotFound):
			response.Error(c, http.StatusNotFound, "EVENT_NOT_FOUND", err.Error())
		case errors.Is(err, repository.ErrEventNotRetriable):
			// Distinguish a missing event from one in the wrong state.
			if _, getErr := h.repo.GetByID(c.Request.Context(), id); errors.Is(getErr, repository.ErrEventNotFound) {
				response.Error(c, http.StatusNotFound, "EVENT_NOT_FOUND", getErr.Error())
				return
			}
			response.Error(c, http.StatusConflict, "EVENT_NOT_RETRIABLE", err.Error())
		default:
			h.log.Error().Err(err).Str("event_id", id.String()).Msg("Failed to retry outbox event")
			response.InternalError(c, "an unexpected error occurred")
		}
		return
	}

	response.OK(c, http.StatusOK, gin.H{"status": "queued", "eventId": id})
}

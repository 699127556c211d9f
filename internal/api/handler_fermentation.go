package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fermentation-backend/internal/store"
)

type fermentationRequest struct {
	BatchID string `json:"batchId" binding:"required"`
}

func bindBatchID(c *gin.Context) (uuid.UUID, bool) {
	var req fermentationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "batchId is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.BatchID)
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid batchId")
		return uuid.Nil, false
	}
	return id, true
}

// StartFermentation handles POST /api/fermentation/start.
func (h *Handler) StartFermentation(c *gin.Context) {
	batchID, ok := bindBatchID(c)
	if !ok {
		return
	}

	res, err := h.lifecycle.Start(c.Request.Context(), batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		abort(c, http.StatusNotFound, "Batch not found.")
		return
	}
	if err != nil {
		log.WithError(err).WithField("batch_id", batchID).Error("start fermentation failed")
		abort(c, http.StatusInternalServerError, "Failed to start fermentation.")
		return
	}
	if res.Poll.Inserted > 0 {
		h.forgetCached(batchID)
	}

	respond(c, http.StatusOK, "Fermentation started and polling initiated", res)
}

// StopFermentation handles POST /api/fermentation/stop.
func (h *Handler) StopFermentation(c *gin.Context) {
	batchID, ok := bindBatchID(c)
	if !ok {
		return
	}

	batch, err := h.lifecycle.Stop(c.Request.Context(), batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		abort(c, http.StatusNotFound, "Batch not found.")
		return
	}
	if err != nil {
		log.WithError(err).WithField("batch_id", batchID).Error("stop fermentation failed")
		abort(c, http.StatusInternalServerError, "Failed to stop fermentation.")
		return
	}

	respond(c, http.StatusOK, "Fermentation stopped", batch)
}

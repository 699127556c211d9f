package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"fermentation-backend/internal/store"
)

// GetReadings handles GET /api/batches/:batch_id/readings, oldest first.
func (h *Handler) GetReadings(c *gin.Context) {
	batchID, ok := uuidParam(c, "batch_id")
	if !ok {
		return
	}

	readings, err := h.store.ListReadings(c.Request.Context(), batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		abort(c, http.StatusNotFound, "Batch not found.")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to list readings")
		abort(c, http.StatusInternalServerError, "Failed to retrieve readings.")
		return
	}
	respond(c, http.StatusOK, "Readings retrieved successfully", readings)
}

// GetReading handles GET /api/readings/:id.
func (h *Handler) GetReading(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	reading, err := h.store.GetReading(c.Request.Context(), id)
	if errors.Is(err, store.ErrReadingNotFound) {
		abort(c, http.StatusNotFound, "Reading not found.")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to load reading")
		abort(c, http.StatusInternalServerError, "Failed to retrieve reading.")
		return
	}
	respond(c, http.StatusOK, "Reading retrieved successfully", reading)
}

// GetAlerts handles GET /api/batches/:batch_id/alerts, newest first.
func (h *Handler) GetAlerts(c *gin.Context) {
	batchID, ok := uuidParam(c, "batch_id")
	if !ok {
		return
	}

	alerts, err := h.store.ListAlerts(c.Request.Context(), batchID)
	if errors.Is(err, store.ErrBatchNotFound) {
		abort(c, http.StatusNotFound, "Batch not found.")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to list alerts")
		abort(c, http.StatusInternalServerError, "Failed to retrieve alerts.")
		return
	}
	respond(c, http.StatusOK, "Alerts retrieved successfully", alerts)
}

// GetAllAlerts handles GET /api/alerts: every alert with its batch and
// reading, newest first.
func (h *Handler) GetAllAlerts(c *gin.Context) {
	alerts, err := h.store.ListAllAlerts(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("failed to list alerts")
		abort(c, http.StatusInternalServerError, "Failed to retrieve alerts.")
		return
	}
	respond(c, http.StatusOK, "Alerts retrieved successfully", alerts)
}

// GetAlert handles GET /api/alerts/:id.
func (h *Handler) GetAlert(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	alert, err := h.store.GetAlert(c.Request.Context(), id)
	if errors.Is(err, store.ErrAlertNotFound) {
		abort(c, http.StatusNotFound, "Alert not found")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to load alert")
		abort(c, http.StatusInternalServerError, "Failed to retrieve alert.")
		return
	}
	respond(c, http.StatusOK, "Alert retrieved successfully", alert)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fermentation-backend/internal/poller"
)

// PollBatch handles POST /api/batches/:batch_id/poll. The outcome is returned
// as data whatever its status; only the pipeline knows why a run was skipped.
func (h *Handler) PollBatch(c *gin.Context) {
	batchID, ok := uuidParam(c, "batch_id")
	if !ok {
		return
	}

	out := h.poller.PollBatch(c.Request.Context(), batchID)
	if out.Inserted > 0 {
		h.forgetCached(batchID)
	}
	switch out.Status {
	case poller.StatusCompleted:
		respond(c, http.StatusOK, "Batch polled", out)
	case poller.StatusSkipped:
		if out.Reason == poller.ReasonBatchNotFound {
			respond(c, http.StatusNotFound, "Batch not found.", out)
			return
		}
		respond(c, http.StatusOK, "Batch skipped: "+out.Reason, out)
	case poller.StatusFetchFailed:
		respond(c, http.StatusBadGateway, "Failed to fetch telemetry feed", out)
	default:
		respond(c, http.StatusInternalServerError, "Failed to poll batch", out)
	}
}

// PollAll handles POST /api/poll by running one scheduler tick inline.
func (h *Handler) PollAll(c *gin.Context) {
	outcomes, err := h.ticks.PollAllActiveBatches(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("manual poll of active batches failed")
		abort(c, http.StatusInternalServerError, "Failed to list active batches.")
		return
	}

	var changed []uuid.UUID
	for _, out := range outcomes {
		if out.Inserted > 0 {
			changed = append(changed, out.BatchID)
		}
	}
	h.forgetCached(changed...)

	respond(c, http.StatusOK, "Active batches polled", outcomes)
}

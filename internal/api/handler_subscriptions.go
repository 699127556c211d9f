package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"fermentation-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint          string      `json:"endpoint" binding:"required"`
	P256DH            string      `json:"p256dh" binding:"required"`
	Auth              string      `json:"auth" binding:"required"`
	SubscribedBatches []uuid.UUID `json:"subscribed_batches"`
}

// PutSubscription creates or replaces a subscription and the batches it follows.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request")
		return
	}

	subscription := model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
	}
	if err := h.store.PutSubscription(c.Request.Context(), &subscription, req.SubscribedBatches); err != nil {
		log.WithError(err).Error("failed to save subscription")
		abort(c, http.StatusInternalServerError, "Failed to save subscription.")
		return
	}

	respond(c, http.StatusCreated, "Subscription saved", nil)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.store.DeleteSubscription(c.Request.Context(), req.Endpoint); err != nil {
		log.WithError(err).Error("failed to delete subscription")
		abort(c, http.StatusInternalServerError, "Failed to delete subscription.")
		return
	}

	c.Status(http.StatusNoContent)
}

// rawQueryParam reads a query value without URL decoding, so push endpoints
// are matched exactly as the browser registered them.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the batch ids a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		abort(c, http.StatusBadRequest, "endpoint is required")
		return
	}

	subscription, err := h.store.GetSubscription(c.Request.Context(), raw)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		abort(c, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		log.WithError(err).Error("failed to load subscription")
		abort(c, http.StatusInternalServerError, "Failed to retrieve subscription.")
		return
	}

	batchIDs := make([]uuid.UUID, len(subscription.Batches))
	for i, batch := range subscription.Batches {
		batchIDs[i] = batch.ID
	}

	respond(c, http.StatusOK, "Subscription retrieved successfully", gin.H{"subscribed_batches": batchIDs})
}

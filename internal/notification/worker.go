package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"fermentation-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// AlertSource is the storage the workers read from.
type AlertSource interface {
	GetAlert(ctx context.Context, id uuid.UUID) (*model.Alert, error)
	SubscriptionsForBatch(ctx context.Context, batchID uuid.UUID) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// AlertPayload is the JSON body of an alert notification.
type AlertPayload struct {
	Title     string           `json:"title"`
	BatchID   uuid.UUID        `json:"batchId"`
	BatchCode string           `json:"batchCode"`
	Level     model.AlertLevel `json:"level"`
	Message   string           `json:"message"`
}

// WorkerPool manages a pool of workers for sending alert notifications.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	store   AlertSource
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool with a job queue of the given length.
func NewWorkerPool(size, queue int, store AlertSource, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queue < 1 {
		queue = size
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, queue),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debugf("notification worker %d started", id)
	for {
		select {
		case alertID := <-wp.jobs:
			wp.sendNotificationsForAlert(ctx, alertID)
		case <-ctx.Done():
			log.Debugf("notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert for delivery. It never blocks the caller: when the
// queue is full the alert is dropped and only stays visible through the API.
func (wp *WorkerPool) Dispatch(alertID uuid.UUID) {
	select {
	case wp.jobs <- alertID:
	default:
		log.WithField("alert_id", alertID).Warn("notification queue full, dropping alert push")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan uuid.UUID {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForAlert(ctx context.Context, alertID uuid.UUID) {
	logger := log.WithField("alert_id", alertID)

	alert, err := wp.store.GetAlert(ctx, alertID)
	if err != nil {
		logger.WithError(err).Error("failed to load alert for notification")
		return
	}

	subscriptions, err := wp.store.SubscriptionsForBatch(ctx, alert.BatchID)
	if err != nil {
		logger.WithError(err).Error("failed to load subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	batchCode := ""
	if alert.Batch != nil {
		batchCode = alert.Batch.BatchCode
	}
	if batchCode == "" {
		batchCode = alert.BatchID.String()
	}
	payload, err := json.Marshal(AlertPayload{
		Title:     "Batch " + batchCode + " needs attention",
		BatchID:   alert.BatchID,
		BatchCode: batchCode,
		Level:     alert.Level,
		Message:   alert.Message,
	})
	if err != nil {
		logger.WithError(err).Error("failed to encode notification payload")
		return
	}

	logger.WithField("subscribers", len(subscriptions)).Info("sending alert notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.WithField("endpoint", sub.Endpoint).WithError(err).Warn("failed to send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithField("endpoint", sub.Endpoint).WithError(err).Error("failed to delete expired subscription")
		}
	}
}

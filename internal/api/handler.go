package api

import (
	"context"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"fermentation-backend/internal/fermentation"
	"fermentation-backend/internal/mw"
	"fermentation-backend/internal/poller"
	"fermentation-backend/internal/store"
)

// TickRunner polls every active batch once.
type TickRunner interface {
	PollAllActiveBatches(ctx context.Context) ([]poller.PollOutcome, error)
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	lifecycle *fermentation.Service
	poller    poller.BatchPoller
	ticks     TickRunner
	webpush   *webpush.Options

	// responses is the GET cache installed by NewRouter.
	responses *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, lifecycle *fermentation.Service, p poller.BatchPoller, ticks TickRunner, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:     s,
		lifecycle: lifecycle,
		poller:    p,
		ticks:     ticks,
		webpush:   webpushOptions,
	}
}

// envelope is the body of every API response.
type envelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Status: status, Message: message, Data: data})
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Status: status, Message: message})
}

// uuidParam parses a path parameter, answering 400 when it is not a uuid.
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		abort(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// forgetCached drops cached reads for batches a poll just inserted rows into.
func (h *Handler) forgetCached(batchIDs ...uuid.UUID) {
	if len(batchIDs) == 0 {
		return
	}
	prefixes := []string{"/api/alerts"}
	for _, id := range batchIDs {
		prefixes = append(prefixes, "/api/batches/"+id.String()+"/")
	}
	mw.InvalidatePrefix(h.responses, prefixes...)
}

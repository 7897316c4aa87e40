package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pedrolamon/study-sub001/internal/core/domain"
	"github.com/Pedrolamon/study-sub001/internal/core/services"
	"github.com/Pedrolamon/study-sub001/internal/core/workers"
)

// SyncHandler is the client boundary of the offline queue: recording
// actions while disconnected and replaying them on reconnect.
type SyncHandler struct {
	sync   *services.SyncService
	worker *workers.SyncWorker
}

func NewSyncHandler(sync *services.SyncService, worker *workers.SyncWorker) *SyncHandler {
	return &SyncHandler{
		sync:   sync,
		worker: worker,
	}
}

type enqueueActionRequest struct {
	Kind    domain.SyncActionKind `json:"kind" binding:"required"`
	Payload json.RawMessage       `json:"payload" binding:"required"`
}

func (h *SyncHandler) RegisterRoutes(router *gin.RouterGroup) {
	sync := router.Group("/sync")
	{
		sync.POST("/actions", h.Enqueue)
		sync.GET("/actions", h.List)
		sync.POST("/process", h.Process)
	}
}

func (h *SyncHandler) Enqueue(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	var req enqueueActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	action, err := h.sync.Enqueue(c.Request.Context(), ownerID, req.Kind, req.Payload)
	if err != nil {
		handleError(c, err)
		return
	}

	// The background driver picks the action up even if the client
	// never calls /sync/process.
	if h.worker != nil {
		h.worker.Enqueue(ownerID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"action_id": action.ID,
		"state":     action.State,
	})
}

func (h *SyncHandler) List(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	state := domain.SyncActionState(c.Query("state"))
	switch state {
	case "", domain.SyncStatePending, domain.SyncStateProcessing, domain.SyncStateCompleted, domain.SyncStateFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid state filter"})
		return
	}

	actions, err := h.sync.ListActions(c.Request.Context(), ownerID, state, intQuery(c, "limit", 0))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// Process drains the caller's pending actions synchronously and
// reports how many applied. Retry exhaustion is reported, not treated
// as a request failure: the action is parked in Failed for inspection.
func (h *SyncHandler) Process(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	report, err := h.sync.ProcessPending(c.Request.Context(), ownerID)
	if err != nil && !errors.Is(err, domain.ErrRetryExhausted) {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applied":         report.Applied,
		"failed":          report.Failed,
		"retry_exhausted": errors.Is(err, domain.ErrRetryExhausted),
	})
}

package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Pedrolamon/study-sub001/internal/adapters/cache"
	"github.com/Pedrolamon/study-sub001/internal/core/services"
)

type StreakHandler struct {
	streaks   *services.StreakService
	snapshots *cache.SnapshotStore
}

func NewStreakHandler(streaks *services.StreakService, snapshots *cache.SnapshotStore) *StreakHandler {
	return &StreakHandler{
		streaks:   streaks,
		snapshots: snapshots,
	}
}

func (h *StreakHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/streaks", h.Get)
}

// Get returns the learner's streak counters. Clients holding a
// snapshot can pass if_version: when the cached version still matches,
// a 304 saves the re-transfer.
func (h *StreakHandler) Get(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	if h.snapshots == nil {
		streak, err := h.streaks.Get(c.Request.Context(), ownerID)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, streak)
		return
	}

	if v := c.Query("if_version"); v != "" {
		if clientVersion, err := strconv.ParseInt(v, 10, 64); err == nil {
			current, verErr := h.snapshots.Version(c.Request.Context(), ownerID, services.SnapshotKindStreak)
			if verErr == nil && current > 0 && current == clientVersion {
				c.Header("X-Snapshot-Version", strconv.FormatInt(current, 10))
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	payload, version, err := h.snapshots.GetOrFetch(c.Request.Context(), ownerID, services.SnapshotKindStreak, 0,
		func(ctx context.Context) (json.RawMessage, error) {
			streak, err := h.streaks.Get(ctx, ownerID)
			if err != nil {
				return nil, err
			}
			return json.Marshal(streak)
		})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("X-Snapshot-Version", strconv.FormatInt(version, 10))
	c.Data(http.StatusOK, "application/json", payload)
}

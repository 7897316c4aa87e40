package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Pedrolamon/study-sub001/internal/adapters/cache"
	"github.com/Pedrolamon/study-sub001/internal/core/domain"
	"github.com/Pedrolamon/study-sub001/internal/core/services"
)

// ReviewHandler exposes the review pipeline: submitting outcomes,
// fetching the due queue and reading a card's review history.
type ReviewHandler struct {
	reviews   *services.ReviewService
	due       *services.DueService
	snapshots *cache.SnapshotStore
}

func NewReviewHandler(reviews *services.ReviewService, due *services.DueService, snapshots *cache.SnapshotStore) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		due:       due,
		snapshots: snapshots,
	}
}

type submitReviewRequest struct {
	FlashcardID     string `json:"flashcard_id" binding:"required"`
	ResponseQuality *int   `json:"response_quality" binding:"required"`
	TimeSpentMs     int    `json:"time_spent_ms"`
	TimezoneOffset  int    `json:"tz_offset_minutes"`
}

type scheduleResultResponse struct {
	Interval        int                  `json:"new_interval"`
	RepetitionCount int                  `json:"repetition_count"`
	EaseFactor      float64              `json:"ease_factor"`
	NextReviewAt    time.Time            `json:"next_review_at"`
	Record          *domain.ReviewRecord `json:"record"`
}

func (h *ReviewHandler) RegisterRoutes(router *gin.RouterGroup) {
	reviews := router.Group("/reviews")
	{
		reviews.POST("", h.Submit)
		reviews.GET("", h.History)
		reviews.GET("/due", h.DueQueue)
	}
}

func (h *ReviewHandler) Submit(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	var req submitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	result, err := h.reviews.SubmitReview(c.Request.Context(), services.SubmitReviewInput{
		OwnerID:         ownerID,
		FlashcardID:     req.FlashcardID,
		ResponseQuality: *req.ResponseQuality,
		TimeSpentMs:     req.TimeSpentMs,
		Location:        time.FixedZone("owner", req.TimezoneOffset*60),
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, scheduleResultResponse{
		Interval:        result.Interval,
		RepetitionCount: result.RepetitionCount,
		EaseFactor:      result.EaseFactor,
		NextReviewAt:    result.NextReviewAt,
		Record:          result.Record,
	})
}

func (h *ReviewHandler) DueQueue(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	input := services.DueQueryInput{OwnerID: ownerID}

	if v := c.Query("as_of"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid as_of (use RFC3339)"})
			return
		}
		input.AsOf = parsed
	}
	input.Filter.Subject = c.Query("subject")
	input.Limit = intQuery(c, "limit", 0)
	input.Offset = intQuery(c, "offset", 0)

	// Only the default query shape is snapshot-cached; filtered and
	// paginated variations go straight to storage.
	cacheable := h.snapshots != nil && input.Filter.IsZero() &&
		input.AsOf.IsZero() && input.Limit == 0 && input.Offset == 0

	if !cacheable {
		cards, err := h.due.GetDueQueue(c.Request.Context(), input)
		if err != nil {
			handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"cards": cards})
		return
	}

	payload, version, err := h.snapshots.GetOrFetch(c.Request.Context(), ownerID, services.SnapshotKindDueQueue, 0,
		func(ctx context.Context) (json.RawMessage, error) {
			cards, err := h.due.GetDueQueue(ctx, input)
			if err != nil {
				return nil, err
			}
			return json.Marshal(gin.H{"cards": cards})
		})
	if err != nil {
		handleError(c, err)
		return
	}

	c.Header("X-Snapshot-Version", strconv.FormatInt(version, 10))
	c.Data(http.StatusOK, "application/json", payload)
}

func (h *ReviewHandler) History(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	flashcardID := c.Query("flashcard_id")
	if flashcardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flashcard_id is required"})
		return
	}

	records, err := h.reviews.History(c.Request.Context(), ownerID, flashcardID, intQuery(c, "limit", 0))
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v := c.Query(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "unauthorized access"})

	case errors.Is(err, domain.ErrCardNotFound),
		errors.Is(err, domain.ErrActionNotFound),
		errors.Is(err, domain.ErrStreakNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})

	case errors.Is(err, domain.ErrCardConflict),
		errors.Is(err, domain.ErrStreakOutOfOrder):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "conflict",
			"message": "state has been modified elsewhere, please re-fetch and resubmit",
		})

	case errors.Is(err, domain.ErrInvalidQuality),
		errors.Is(err, domain.ErrInvalidTimeSpent),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrInvalidActionKind),
		errors.Is(err, domain.ErrInvalidDifficulty),
		errors.Is(err, domain.ErrCardQuestionEmpty),
		errors.Is(err, domain.ErrCardQuestionLong),
		errors.Is(err, domain.ErrCardAnswerEmpty),
		errors.Is(err, domain.ErrCardAnswerLong),
		errors.Is(err, domain.ErrCardSubjectLong),
		errors.Is(err, domain.ErrCardInvalidOwnerID):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, domain.ErrStorageUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable, retry later"})

	default:
		log.Printf("[ERROR] Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)

		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

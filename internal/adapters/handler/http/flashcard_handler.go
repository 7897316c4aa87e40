package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Pedrolamon/study-sub001/internal/core/services"
)

// FlashcardHandler is the card-management boundary. Review scheduling
// never goes through here; these routes only touch content.
type FlashcardHandler struct {
	svc *services.FlashcardService
}

func NewFlashcardHandler(svc *services.FlashcardService) *FlashcardHandler {
	return &FlashcardHandler{svc: svc}
}

type createFlashcardRequest struct {
	Question   string `json:"question" binding:"required"`
	Answer     string `json:"answer" binding:"required"`
	Subject    string `json:"subject"`
	Difficulty int    `json:"difficulty"`
}

type updateFlashcardRequest struct {
	Question   string `json:"question"`
	Answer     string `json:"answer"`
	Subject    string `json:"subject"`
	Difficulty int    `json:"difficulty"`
	Version    int    `json:"version" binding:"required"`
}

func (h *FlashcardHandler) RegisterRoutes(router *gin.RouterGroup) {
	cards := router.Group("/flashcards")
	{
		cards.POST("", h.Create)
		cards.GET("", h.List)
		cards.GET("/:id", h.Get)
		cards.PUT("/:id", h.Update)
		cards.DELETE("/:id", h.Delete)
	}
}

func (h *FlashcardHandler) Create(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	var req createFlashcardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	card, err := h.svc.Create(c.Request.Context(), services.CreateFlashcardInput{
		OwnerID:    ownerID,
		Question:   req.Question,
		Answer:     req.Answer,
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, card)
}

func (h *FlashcardHandler) List(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	cards, err := h.svc.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cards": cards})
}

func (h *FlashcardHandler) Get(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	card, err := h.svc.GetByID(c.Request.Context(), c.Param("id"), ownerID)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

func (h *FlashcardHandler) Update(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	var req updateFlashcardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	card, err := h.svc.Update(c.Request.Context(), services.UpdateFlashcardInput{
		ID:         c.Param("id"),
		OwnerID:    ownerID,
		Question:   req.Question,
		Answer:     req.Answer,
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
		Version:    req.Version,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, card)
}

func (h *FlashcardHandler) Delete(c *gin.Context) {
	ownerID := c.GetHeader("X-User-ID")
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user id header"})
		return
	}

	if err := h.svc.Delete(c.Request.Context(), c.Param("id"), ownerID); err != nil {
		handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package feedback

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/classpad/activity-backend/internal/dto"
	"github.com/classpad/activity-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Store interface {
	InsertEntry(ctx context.Context, entry *Entry) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/feedback", h.Create)
}

// @Summary      Submit feedback
// @Description  Stores a feedback message from the classroom suite
// @Tags         feedback
// @Accept       json
// @Produce      json
// @Param        body  body      dto.FeedbackRequest  true  "feedback"
// @Success      200   {object}  dto.FeedbackResponse
// @Failure      400   {object}  shared.APIError
// @Router       /feedback [post]
func (h *Handler) Create(c echo.Context) error {
	var req dto.FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return shared.BadRequest("invalid_feedback", "message is required; rating must be 1-5")
	}

	entry := &Entry{
		ID:        shared.NewID("fb_"),
		ClientID:  req.ClientID,
		Page:      req.Page,
		Message:   req.Message,
		Rating:    req.Rating,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.store.InsertEntry(c.Request().Context(), entry); err != nil {
		h.logger.Error("failed to store feedback", "error", err)
		return shared.InternalError("store_failed", "failed to store feedback")
	}

	return c.JSON(http.StatusOK, dto.FeedbackResponse{Success: true, ID: entry.ID})
}

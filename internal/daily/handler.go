package daily

import (
	"log/slog"
	"net/http"

	"github.com/classpad/activity-backend/internal/dto"
	"github.com/classpad/activity-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	recorder *Recorder
	logger   *slog.Logger
}

func NewHandler(recorder *Recorder, logger *slog.Logger) *Handler {
	return &Handler{recorder: recorder, logger: logger}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/daily", h.DailyStats)
}

// @Summary      Daily page stats
// @Description  Unique visitor and raw view counts for a page on a UTC day
// @Tags         stats
// @Produce      json
// @Param        page  query     string  true   "page label"
// @Param        day   query     string  false  "UTC day as YYYY-MM-DD, defaults to today"
// @Success      200   {object}  dto.DailyStatsResponse
// @Failure      400   {object}  shared.APIError
// @Router       /stats/daily [get]
func (h *Handler) DailyStats(c echo.Context) error {
	page := c.QueryParam("page")
	if page == "" {
		return shared.BadRequest("missing_field", "page is required")
	}

	day := c.QueryParam("day")
	if day == "" {
		day = shared.Day(h.recorder.now())
	}

	uniqueUsers, views, err := h.recorder.PageStats(c.Request().Context(), page, day)
	if err != nil {
		h.logger.Error("failed to read daily stats", "error", err, "page", page, "day", day)
		return shared.InternalError("stats_failed", "failed to read daily stats")
	}

	return c.JSON(http.StatusOK, dto.DailyStatsResponse{
		Page:        page,
		Day:         day,
		UniqueUsers: uniqueUsers,
		Views:       views,
	})
}

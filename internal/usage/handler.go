package usage

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/classpad/activity-backend/internal/dto"
	"github.com/classpad/activity-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

const (
	clientCookieName   = "cp_client_id"
	clientCookieMaxAge = 30 * 24 * time.Hour
)

type Handler struct {
	buffer       *Buffer
	cookieSecure bool
	cookieDomain string
	logger       *slog.Logger
}

func NewHandler(buffer *Buffer, cookieSecure bool, cookieDomain string, logger *slog.Logger) *Handler {
	return &Handler{
		buffer:       buffer,
		cookieSecure: cookieSecure,
		cookieDomain: cookieDomain,
		logger:       logger,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/start", h.Start)
	g.POST("/end", h.End)
	g.POST("/event", h.TrackEvent)
}

// @Summary      Start a visit
// @Description  Opens a buffered usage record for a (client, page) visit
// @Tags         usage
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UsageStartRequest  true  "visit descriptor"
// @Success      200   {object}  dto.UsageStartResponse
// @Failure      400   {object}  shared.APIError
// @Router       /usage/start [post]
func (h *Handler) Start(c echo.Context) error {
	var req dto.UsageStartRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return shared.BadRequest("missing_field", "page is required")
	}

	clientID := req.ClientID
	if clientID == "" {
		if ck, err := c.Cookie(clientCookieName); err == nil && ck.Value != "" {
			clientID = ck.Value
		}
	}

	usageID, resolvedClientID, minted := h.buffer.Start(c.Request().Context(), StartParams{
		ClientID:  clientID,
		Page:      req.Page,
		Section:   req.Section,
		Timestamp: deref(req.Timestamp),
	})

	if minted {
		c.SetCookie(&http.Cookie{
			Name:     clientCookieName,
			Value:    resolvedClientID,
			Path:     "/",
			MaxAge:   int(clientCookieMaxAge.Seconds()),
			Domain:   h.cookieDomain,
			Secure:   h.cookieSecure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return c.JSON(http.StatusOK, dto.UsageStartResponse{
		Success:  true,
		UsageID:  usageID,
		ClientID: resolvedClientID,
		Page:     req.Page,
	})
}

// @Summary      End a visit
// @Description  Closes and persists the matching open usage record
// @Tags         usage
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UsageEndRequest  true  "visit reference"
// @Success      200   {object}  dto.UsageEndResponse
// @Failure      500   {object}  shared.APIError
// @Router       /usage/end [post]
func (h *Handler) End(c echo.Context) error {
	var req dto.UsageEndRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}

	res, err := h.buffer.End(c.Request().Context(), EndParams{
		UsageID:   req.UsageID,
		ClientID:  req.ClientID,
		Page:      req.Page,
		Section:   req.Section,
		Timestamp: deref(req.Timestamp),
	})
	if err != nil {
		// The buffer entry is gone either way; retrying the call is safe
		// and will report no open usage.
		return shared.InternalError("flush_failed", "failed to persist usage record")
	}

	if !res.Found {
		return c.JSON(http.StatusOK, dto.UsageEndResponse{
			Success: true,
			Message: "no open usage found",
		})
	}

	return c.JSON(http.StatusOK, dto.UsageEndResponse{
		Success:    true,
		UsageID:    res.UsageID,
		DurationMs: &res.DurationMs,
	})
}

// @Summary      Record an in-visit event
// @Description  Appends an event to the open usage record, or persists it standalone
// @Tags         usage
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UsageEventRequest  true  "event"
// @Success      200   {object}  dto.UsageEventResponse
// @Failure      400   {object}  shared.APIError
// @Router       /usage/event [post]
func (h *Handler) TrackEvent(c echo.Context) error {
	var req dto.UsageEventRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return shared.BadRequest("missing_field", "name is required")
	}

	buffered := h.buffer.TrackEvent(c.Request().Context(), EventParams{
		UsageID:   req.UsageID,
		ClientID:  req.ClientID,
		Page:      req.Page,
		Name:      req.Name,
		Data:      req.Data,
		Timestamp: deref(req.Timestamp),
	})

	return c.JSON(http.StatusOK, dto.UsageEventResponse{
		Success:  true,
		Buffered: buffered,
	})
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

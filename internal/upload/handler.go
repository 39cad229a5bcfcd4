package upload

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/classpad/activity-backend/internal/dto"
	"github.com/classpad/activity-backend/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	dir      string
	maxBytes int
	logger   *slog.Logger
}

func NewHandler(dir string, maxBytes int, logger *slog.Logger) *Handler {
	return &Handler{dir: dir, maxBytes: maxBytes, logger: logger}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/uploads", h.Create)
}

// @Summary      Upload an artwork snapshot
// @Description  Decodes a base64 data URL and stores it on disk
// @Tags         uploads
// @Accept       json
// @Produce      json
// @Param        body  body      dto.UploadRequest  true  "upload"
// @Success      200   {object}  dto.UploadResponse
// @Failure      400   {object}  shared.APIError
// @Router       /uploads [post]
func (h *Handler) Create(c echo.Context) error {
	var req dto.UploadRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return shared.BadRequest("invalid_upload", "filename and dataUrl are required")
	}

	name := filepath.Base(req.Filename)
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return shared.BadRequest("invalid_filename", "invalid filename")
	}

	data, err := parseDataURL(req.DataURL)
	if err != nil {
		return shared.BadRequest("invalid_data_url", err.Error())
	}
	if h.maxBytes > 0 && len(data) > h.maxBytes {
		return shared.BadRequest("too_large", fmt.Sprintf("upload exceeds %d bytes", h.maxBytes))
	}

	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		h.logger.Error("failed to create upload directory", "dir", h.dir, "error", err)
		return shared.InternalError("write_failed", "failed to store upload")
	}

	path := filepath.Join(h.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		h.logger.Error("failed to write upload", "path", path, "error", err)
		return shared.InternalError("write_failed", "failed to store upload")
	}

	h.logger.Info("stored upload", "path", path, "size", len(data))
	return c.JSON(http.StatusOK, dto.UploadResponse{Success: true, Path: path, Size: len(data)})
}

// parseDataURL decodes a "data:<mime>;base64,<payload>" URL into raw bytes.
func parseDataURL(raw string) ([]byte, error) {
	if !strings.HasPrefix(raw, "data:") {
		return nil, fmt.Errorf("not a data URL")
	}
	idx := strings.Index(raw, ";base64,")
	if idx < 0 {
		return nil, fmt.Errorf("data URL is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(raw[idx+len(";base64,"):])
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URL payload: %w", err)
	}
	return data, nil
}

package upload

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/classpad/activity-backend/internal/dto"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type testValidator struct {
	validate *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	return v.validate.Struct(i)
}

func newTestContext(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}
	req := httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Create(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(dir, 0, logger)

	payload := []byte("\x89PNG\r\n\x1a\nfake image bytes")
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
	body, _ := json.Marshal(dto.UploadRequest{Filename: "drawing.png", DataURL: dataURL})

	c, rec := newTestContext(string(body))
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp dto.UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if !resp.Success || resp.Size != len(payload) {
		t.Errorf("unexpected response: %+v", resp)
	}

	written, err := os.ReadFile(filepath.Join(dir, "drawing.png"))
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	if string(written) != string(payload) {
		t.Error("written file does not match decoded payload")
	}
}

func TestHandler_Create_SanitizesFilename(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(dir, 0, logger)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("x"))
	body, _ := json.Marshal(dto.UploadRequest{Filename: "../../etc/passwd.png", DataURL: dataURL})

	c, _ := newTestContext(string(body))
	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "passwd.png")); err != nil {
		t.Errorf("expected file stored under base name inside upload dir: %v", err)
	}
}

func TestHandler_Create_TooLarge(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(dir, 8, logger)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("more than eight bytes"))
	body, _ := json.Marshal(dto.UploadRequest{Filename: "big.png", DataURL: dataURL})

	c, _ := newTestContext(string(body))
	err := h.Create(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "big.png")); statErr == nil {
		t.Error("oversized upload must not be written")
	}
}

func TestHandler_Create_Invalid(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(dir, 0, logger)

	tests := []struct {
		name string
		body string
	}{
		{"missing filename", `{"dataUrl":"data:image/png;base64,eA=="}`},
		{"missing data url", `{"filename":"a.png"}`},
		{"not a data url", `{"filename":"a.png","dataUrl":"http://example.com/a.png"}`},
		{"not base64", `{"filename":"a.png","dataUrl":"data:image/png,rawbytes"}`},
		{"bad base64 payload", `{"filename":"a.png","dataUrl":"data:image/png;base64,%%%"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(tt.body)
			err := h.Create(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected HTTP error, got %v", err)
			}
			if httpErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", httpErr.Code)
			}
		})
	}
}

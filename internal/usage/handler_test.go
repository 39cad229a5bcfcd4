package usage

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validate: validator.New()}
	return e
}

func newUsageHandler(store *fakeStore) *Handler {
	b, _, _ := newTestBuffer(store)
	return NewHandler(b, false, "", b.logger)
}

func postJSON(e *echo.Echo, h echo.HandlerFunc, body string) (*httptest.ResponseRecorder, error) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := h(c)
	return rec, err
}

func TestHandler_Start_MissingPage(t *testing.T) {
	e := newTestEcho()
	h := newUsageHandler(&fakeStore{})

	_, err := postJSON(e, h.Start, `{"clientId":"c1"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandler_Start_SetsCookieWhenMinted(t *testing.T) {
	e := newTestEcho()
	h := newUsageHandler(&fakeStore{})

	rec, err := postJSON(e, h.Start, `{"page":"/coloring"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp dto.UsageStartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if !resp.Success || resp.UsageID == "" || resp.ClientID == "" {
		t.Errorf("unexpected response: %+v", resp)
	}

	cookies := rec.Result().Cookies()
	found := false
	for _, ck := range cookies {
		if ck.Name == clientCookieName && ck.Value == resp.ClientID {
			found = true
		}
	}
	if !found {
		t.Error("expected fallback identity cookie to be set")
	}
}

func TestHandler_Start_RecoversClientIDFromCookie(t *testing.T) {
	e := newTestEcho()
	h := newUsageHandler(&fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"page":"/puzzle"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.AddCookie(&http.Cookie{Name: clientCookieName, Value: "c_cookie"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Start(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp dto.UsageStartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if resp.ClientID != "c_cookie" {
		t.Errorf("expected cookie client id, got %s", resp.ClientID)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("no new cookie should be issued when one was recovered")
	}
}

func TestHandler_End_NoOpenUsage(t *testing.T) {
	e := newTestEcho()
	h := newUsageHandler(&fakeStore{})

	rec, err := postJSON(e, h.End, `{"usageId":"u_gone"}`)
	if err != nil {
		t.Fatalf("no-match end must not fail: %v", err)
	}

	var resp dto.UsageEndResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Message != "no open usage found" {
		t.Errorf("expected informational message, got %q", resp.Message)
	}
	if resp.DurationMs != nil {
		t.Error("no duration expected without a match")
	}
}

func TestHandler_EndAfterStart(t *testing.T) {
	e := newTestEcho()
	store := &fakeStore{}
	h := newUsageHandler(store)

	rec, err := postJSON(e, h.Start, `{"clientId":"c1","page":"/coloring"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var started dto.UsageStartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}

	rec, err = postJSON(e, h.End, `{"usageId":"`+started.UsageID+`"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ended dto.UsageEndResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ended); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if ended.UsageID != started.UsageID {
		t.Errorf("expected %s, got %s", started.UsageID, ended.UsageID)
	}
	if ended.DurationMs == nil {
		t.Fatal("expected duration in response")
	}
	if len(store.records) != 1 {
		t.Errorf("expected 1 persisted record, got %d", len(store.records))
	}
}

func TestHandler_TrackEvent(t *testing.T) {
	e := newTestEcho()
	store := &fakeStore{}
	h := newUsageHandler(store)

	rec, err := postJSON(e, h.TrackEvent, `{"clientId":"c1","page":"/coloring","name":"stroke"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp dto.UsageEventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Buffered {
		t.Error("no open buffer exists, event should not report buffered")
	}
	if len(store.strays) != 1 {
		t.Errorf("expected stray event persisted, got %d", len(store.strays))
	}
}

func TestHandler_TrackEvent_MissingName(t *testing.T) {
	e := newTestEcho()
	h := newUsageHandler(&fakeStore{})

	_, err := postJSON(e, h.TrackEvent, `{"clientId":"c1","page":"/coloring"}`)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected HTTP error, got %v", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

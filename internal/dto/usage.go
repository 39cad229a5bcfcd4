package dto

import "time"

// Field names follow the browser client's camelCase wire format.

type UsageStartRequest struct {
	ClientID  string     `json:"clientId"`
	Page      string     `json:"page" validate:"required"`
	Section   string     `json:"section"`
	Timestamp *time.Time `json:"timestamp"`
}

type UsageStartResponse struct {
	Success  bool   `json:"success"`
	UsageID  string `json:"usageId"`
	ClientID string `json:"clientId"`
	Page     string `json:"page"`
}

type UsageEndRequest struct {
	UsageID   string     `json:"usageId"`
	ClientID  string     `json:"clientId"`
	Page      string     `json:"page"`
	Section   string     `json:"section"`
	Timestamp *time.Time `json:"timestamp"`
}

type UsageEndResponse struct {
	Success    bool   `json:"success"`
	UsageID    string `json:"usageId,omitempty"`
	DurationMs *int64 `json:"durationMs,omitempty"`
	Message    string `json:"message,omitempty"`
}

type UsageEventRequest struct {
	UsageID   string         `json:"usageId"`
	ClientID  string         `json:"clientId"`
	Page      string         `json:"page"`
	Section   string         `json:"section"`
	Name      string         `json:"name" validate:"required"`
	Data      map[string]any `json:"data"`
	Timestamp *time.Time     `json:"timestamp"`
}

type UsageEventResponse struct {
	Success  bool `json:"success"`
	Buffered bool `json:"buffered"`
}

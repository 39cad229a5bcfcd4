package dto

type FeedbackRequest struct {
	ClientID string `json:"clientId"`
	Page     string `json:"page"`
	Message  string `json:"message" validate:"required"`
	Rating   int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

type FeedbackResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

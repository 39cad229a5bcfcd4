package dto

type DailyStatsResponse struct {
	Page        string `json:"page"`
	Day         string `json:"day"`
	UniqueUsers int64  `json:"uniqueUsers"`
	Views       int64  `json:"views"`
}

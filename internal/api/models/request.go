package models

// ScrapeRequest represents the request body for a range scrape.
// Unset optional fields fall back to the server configuration.
type ScrapeRequest struct {
	Node          string `json:"node" binding:"required"`
	Market        string `json:"market" binding:"required"` // DA, RT5 or RT15
	StartDate     string `json:"start_date" binding:"required"`
	EndDate       string `json:"end_date" binding:"required"`
	TZIn          string `json:"tz_in,omitempty"`
	TZQuery       string `json:"tz_query,omitempty"`
	MaxAttempts   int    `json:"max_attempts,omitempty"`
	IncludeSeries bool   `json:"include_series,omitempty"` // default: false
}

// PlanRequest represents the query string of GET /api/v1/plan
type PlanRequest struct {
	Node      string `form:"node" binding:"required"`
	Market    string `form:"market" binding:"required"`
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
	TZIn      string `form:"tz_in"`
	TZQuery   string `form:"tz_query"`
}

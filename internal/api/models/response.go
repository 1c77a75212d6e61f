package models

import (
	"time"

	"lmp-scraper/internal/analysis"
)

// ScrapeResponse represents the outcome of a range scrape
type ScrapeResponse struct {
	RunID   string               `json:"run_id"`
	Status  string               `json:"status"` // "complete", "partial", "empty"
	Node    string               `json:"node"`
	Market  string               `json:"market"`
	Path    string               `json:"path,omitempty"`
	Written bool                 `json:"written"`
	Points  int                  `json:"points"`
	Stats   *analysis.PriceStats `json:"stats,omitempty"`
	Windows []WindowResult       `json:"windows"`
	Series  []PricePoint         `json:"series,omitempty"`
}

// WindowResult is the attempt record of one query window
type WindowResult struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	State     string `json:"state"` // "pending", "succeeded", "exhausted"
	Attempts  int    `json:"attempts"`
	Points    int    `json:"points"`
	LastError string `json:"last_error,omitempty"`
}

// PricePoint is one interval of the merged series
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// PlanResponse lists the requests a scrape would send
type PlanResponse struct {
	Market  MarketInfo      `json:"market"`
	Windows []PlannedWindow `json:"windows"`
}

// PlannedWindow is one window and its SingleZip URL
type PlannedWindow struct {
	Start      string   `json:"start"`
	End        string   `json:"end"`
	URL        string   `json:"url"`
	Advisories []string `json:"advisories,omitempty"`
}

// MarketInfo describes a supported market
type MarketInfo struct {
	ID              string `json:"id"`
	ChunkDays       int    `json:"chunk_days"`
	ResultFrequency string `json:"result_frequency"` // e.g. "5m0s"
	QueryName       string `json:"query_name"`
	MarketRunID     string `json:"market_run_id"`
	PriceColumn     string `json:"price_column"`
	MaxSpanDays     int    `json:"max_span_days,omitempty"`
}

// NodeInfo represents information about a pricing node
type NodeInfo struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Type        string `json:"type"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

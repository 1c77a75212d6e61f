package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Market is one of the CAISO settlement markets we can pull LMPs for.
// Keep these values stable; they appear in output file names.
type Market string

const (
	MarketDA   Market = "DA"
	MarketRT5  Market = "RT5"
	MarketRT15 Market = "RT15"
)

const (
	// DefaultRequestDelay keeps OASIS from locking us out.
	DefaultRequestDelay = 5 * time.Second
	// DefaultMaxAttempts is how many times a window is tried before giving up.
	DefaultMaxAttempts = 5
)

var ErrInvalidMarket = errors.New("invalid market: must be one of RT5, RT15, or DA")

// MarketSpec holds the provider-facing constants for a market.
type MarketSpec struct {
	Market Market `json:"market"`
	// ChunkDays is the number of days per query window.
	ChunkDays int `json:"chunk_days"`
	// ResultFrequency is the sampling interval of the returned series.
	ResultFrequency time.Duration `json:"-"`
	QueryName       string        `json:"query_name"`
	MarketRunID     string        `json:"market_run_id"`
	// PriceColumn names the CSV column holding the price.
	PriceColumn string `json:"price_column"`
	// MaxSpanDays is the longest window OASIS is known to accept in one query.
	// Zero means no known limit.
	MaxSpanDays int `json:"max_span_days,omitempty"`
}

var marketSpecs = map[Market]MarketSpec{
	MarketDA: {
		Market:          MarketDA,
		ChunkDays:       30,
		ResultFrequency: 60 * time.Minute,
		QueryName:       "PRC_LMP",
		MarketRunID:     "DAM",
		PriceColumn:     "MW",
	},
	MarketRT5: {
		Market:          MarketRT5,
		ChunkDays:       1,
		ResultFrequency: 5 * time.Minute,
		QueryName:       "PRC_INTVL_LMP",
		MarketRunID:     "RTM",
		PriceColumn:     "MW",
		MaxSpanDays:     1,
	},
	MarketRT15: {
		Market:          MarketRT15,
		ChunkDays:       15,
		ResultFrequency: 15 * time.Minute,
		QueryName:       "PRC_RTPD_LMP",
		MarketRunID:     "RTPD",
		PriceColumn:     "PRC",
		MaxSpanDays:     15,
	},
}

// Markets lists the supported markets in a stable order.
func Markets() []Market {
	return []Market{MarketDA, MarketRT5, MarketRT15}
}

// ParseMarket validates a user supplied market code. Matching is case-insensitive.
func ParseMarket(s string) (Market, error) {
	m := Market(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := marketSpecs[m]; !ok {
		return "", fmt.Errorf("%w (got %q)", ErrInvalidMarket, s)
	}
	return m, nil
}

func (m Market) Spec() (MarketSpec, error) {
	spec, ok := marketSpecs[m]
	if !ok {
		return MarketSpec{}, fmt.Errorf("%w (got %q)", ErrInvalidMarket, string(m))
	}
	return spec, nil
}

func (m Market) Valid() bool {
	_, ok := marketSpecs[m]
	return ok
}

func (m Market) String() string { return string(m) }

// Package analysis summarizes scraped price series.
package analysis

import (
	"math"
	"sort"
	"time"

	"lmp-scraper/internal/model"
)

// PriceStats is a distribution summary of one series, in $/MWh.
type PriceStats struct {
	Count int       `json:"count"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
	P05  float64 `json:"p05"`
	P95  float64 `json:"p95"`

	SpreadP95P05 float64 `json:"spread_p95_p05"`
	// Negative counts intervals priced below zero.
	Negative int `json:"negative"`
}

// Summarize computes PriceStats for s. Start and End are the first and last
// interval starts. An empty series yields the zero value.
func Summarize(s model.Series) PriceStats {
	st := PriceStats{}
	if len(s) == 0 {
		return st
	}
	st.Count = len(s)
	st.Start, st.End = s.Span()

	sum := 0.0
	vals := make([]float64, 0, len(s))
	for _, p := range s {
		vals = append(vals, p.Price)
		sum += p.Price
		if p.Price < 0 {
			st.Negative++
		}
	}
	sort.Float64s(vals)
	st.Min = vals[0]
	st.Max = vals[len(vals)-1]
	st.Mean = sum / float64(len(vals))
	st.P05 = Percentile(vals, 0.05)
	st.P95 = Percentile(vals, 0.95)
	st.SpreadP95P05 = st.P95 - st.P05
	return st
}

// Percentile interpolates linearly between order statistics of sorted.
func Percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

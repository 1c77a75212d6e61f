package model

import (
	"sort"
	"time"
)

// PricePoint is one interval of a node's LMP series, in $/MWh.
// Time is the interval start as reported by OASIS (GMT).
type PricePoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Series is an LMP time series for one node and market.
type Series []PricePoint

// Merge concatenates the given sub-series and sorts the result by time.
// Duplicate timestamps are kept in input order.
func Merge(parts ...Series) Series {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make(Series, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	out.Sort()
	return out
}

func (s Series) Sort() {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Time.Before(s[j].Time)
	})
}

func (s Series) IsStrictlyIncreasing() bool {
	for i := 1; i < len(s); i++ {
		if !s[i].Time.After(s[i-1].Time) {
			return false
		}
	}
	return true
}

// Gaps counts consecutive points whose spacing differs from freq.
// Assumes s is sorted.
func (s Series) Gaps(freq time.Duration) int {
	if freq <= 0 {
		return 0
	}
	gaps := 0
	for i := 1; i < len(s); i++ {
		if s[i].Time.Sub(s[i-1].Time) != freq {
			gaps++
		}
	}
	return gaps
}

// Span returns the first and last timestamps of a sorted series.
func (s Series) Span() (time.Time, time.Time) {
	if len(s) == 0 {
		return time.Time{}, time.Time{}
	}
	return s[0].Time, s[len(s)-1].Time
}

package scrape

import (
	"fmt"

	"lmp-scraper/internal/model"
	"lmp-scraper/internal/oasis"
)

// PlannedRequest is one window of a run together with the request that
// would be sent for it.
type PlannedRequest struct {
	Window  model.Window
	Request *oasis.Request
}

// Plan validates opts and builds every window's request without touching
// the network. Advisories are logged as they would be during a run.
func (s *Scraper) Plan(opts Options) ([]PlannedRequest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	windows, err := Partition(opts.Start, opts.End, opts.Market)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	plan := make([]PlannedRequest, 0, len(windows))
	for _, w := range windows {
		req, err := s.builder.Build(oasis.Query{
			Node:   opts.Node,
			Market: opts.Market,
			Start:  w.Start,
			End:    w.End,
			TZIn:   opts.TZIn,
			TZOut:  opts.TZQuery,
		})
		if err != nil {
			return nil, fmt.Errorf("window %s: %w", w, err)
		}
		plan = append(plan, PlannedRequest{Window: w, Request: req})
	}
	return plan, nil
}

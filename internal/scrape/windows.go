package scrape

import (
	"fmt"

	"lmp-scraper/internal/model"
	"lmp-scraper/internal/oasis"
)

// Partition splits [start, end] into contiguous windows of the market's chunk
// size, the last one clipped to end. A range whose length is a multiple of
// the chunk size gets no trailing [end, end] window; only start == end yields
// a zero-length window.
func Partition(start, end model.Date, market model.Market) ([]model.Window, error) {
	spec, err := market.Spec()
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w (%s to %s)", oasis.ErrInvertedWindow, start, end)
	}
	if start.Equal(end) {
		return []model.Window{{Start: start, End: end}}, nil
	}

	var windows []model.Window
	for ws := start; ws.Before(end); ws = ws.AddDays(spec.ChunkDays) {
		we := ws.AddDays(spec.ChunkDays)
		if we.After(end) {
			we = end
		}
		windows = append(windows, model.Window{Start: ws, End: we})
	}
	return windows, nil
}

package scrape

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"lmp-scraper/internal/model"
	"lmp-scraper/internal/oasis"
)

const (
	// TimestampColumn indexes the extracted series.
	TimestampColumn = "INTERVALSTARTTIME_GMT"
	lmpTypeColumn   = "LMP_TYPE"
	// lmpMarker selects total LMP rows, dropping the energy, congestion
	// and loss components.
	lmpMarker = "LMP"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrNullPrice     = errors.New("null price")
)

// ExtractLMP selects the total-LMP rows of an OASIS table and returns them as
// a series sorted by interval start. Any null price fails the whole table.
func ExtractLMP(table *oasis.Table, priceColumn string) (model.Series, error) {
	tsCol, ok := table.Column(TimestampColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TimestampColumn)
	}
	typeCol, ok := table.Column(lmpTypeColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, lmpTypeColumn)
	}
	priceCol, ok := table.Column(priceColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, priceColumn)
	}

	series := make(model.Series, 0, table.Len())
	for i, row := range table.Rows {
		if strings.TrimSpace(row[typeCol]) != lmpMarker {
			continue
		}
		ts, err := oasis.ParseTimestamp(row[tsCol])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		price, err := parsePrice(row[priceCol])
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", i+1, ts.UTC().Format("2006-01-02T15:04Z"), err)
		}
		series = append(series, model.PricePoint{Time: ts.UTC(), Price: price})
	}
	series.Sort()
	return series, nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return 0, ErrNullPrice
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	if math.IsNaN(v) {
		return 0, ErrNullPrice
	}
	return v, nil
}

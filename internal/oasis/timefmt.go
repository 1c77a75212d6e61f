package oasis

import (
	"fmt"
	"time"

	"lmp-scraper/internal/model"
)

// TimeLayout is the OASIS startdatetime/enddatetime format, e.g. 20190101T00:00-0800.
const TimeLayout = "20060102T15:04-0700"

// FormatTime renders midnight of d (local to tzIn) for an OASIS query,
// converted to tzOut when the two differ.
func FormatTime(d model.Date, tzIn, tzOut string) (string, error) {
	in, err := time.LoadLocation(tzIn)
	if err != nil {
		return "", fmt.Errorf("invalid input timezone %q: %w", tzIn, err)
	}
	t := d.In(in)
	if tzOut != tzIn {
		out, err := time.LoadLocation(tzOut)
		if err != nil {
			return "", fmt.Errorf("invalid query timezone %q: %w", tzOut, err)
		}
		t = t.In(out)
	}
	return t.Format(TimeLayout), nil
}

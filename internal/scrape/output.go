package scrape

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"lmp-scraper/internal/model"
)

// OutputPath names the result file for a range run.
func OutputPath(dir, node string, market model.Market, start, end model.Date) string {
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, fmt.Sprintf("LMP_%s_%s_%s_%s.csv", node, market, start, end))
}

// WriteSeriesCSV overwrites path with the series, one row per interval.
func WriteSeriesCSV(path, priceColumn string, series model.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{TimestampColumn, priceColumn}); err != nil {
		return err
	}
	for _, p := range series {
		row := []string{
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Price, 'f', -1, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

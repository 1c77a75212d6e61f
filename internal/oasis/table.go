package oasis

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"
)

// dateColumns is how many leading columns of an OASIS CSV must hold timestamps
// (INTERVALSTARTTIME_GMT, INTERVALENDTIME_GMT, OPR_DT).
const dateColumns = 3

var timestampLayouts = []string{
	"2006-01-02T15:04:05-07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an OASIS CSV timestamp cell.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %q", s)
}

// Table is a decoded OASIS CSV report, unfiltered.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// ParseTable decodes data as an OASIS CSV report. It fails unless the first
// three columns of every row are timestamps.
func ParseTable(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("read csv: empty document")
	}
	header := records[0]
	if len(header) < dateColumns {
		return nil, fmt.Errorf("read csv: expected at least %d columns, got %d", dateColumns, len(header))
	}

	rows := records[1:]
	for i, row := range rows {
		for c := 0; c < dateColumns; c++ {
			if _, err := ParseTimestamp(row[c]); err != nil {
				return nil, fmt.Errorf("read csv: row %d column %s: %w", i+1, header[c], err)
			}
		}
	}

	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, name := range header {
		t.index[strings.TrimSpace(name)] = i
	}
	return t, nil
}

// Column returns the index of the named column.
func (t *Table) Column(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

func (t *Table) Len() int {
	return len(t.Rows)
}

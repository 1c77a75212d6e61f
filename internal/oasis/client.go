package oasis

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"lmp-scraper/internal/logger"
)

// DefaultBaseURL is the public, unauthenticated OASIS SingleZip endpoint.
const DefaultBaseURL = "http://oasis.caiso.com/oasisapi/SingleZip"

// Client fetches single query windows from OASIS. It never retries; that is
// the caller's job.
type Client struct {
	BaseURL string
	Client  *http.Client
	Reports ErrorReportParser
	Cache   *ResponseCache

	logger logger.Logger
}

// NewClient creates a new OASIS client.
// If baseURL is empty, defaults to DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
		Reports: OASISReportParser{},
		logger:  log,
	}
}

// FetchWindow issues one SingleZip request and decodes its single archive entry.
//
// A body that is not a zip archive yields *ArchiveError. An entry that is not
// CSV is read as an OASIS error report and yields *ReportError (ErrNoData).
func (c *Client) FetchWindow(ctx context.Context, req *Request) (*Table, error) {
	var cacheKey string
	if c.Cache != nil {
		cacheKey = GenerateCacheKey(req)
		if cached, ok := c.Cache.Get(cacheKey); ok {
			c.logger.Debug("[OASIS] Cache hit",
				logger.String("node", req.Query.Node),
				logger.String("window", req.Query.Window().String()),
				logger.Int("rows", cached.Len()))
			return cached, nil
		}
	}

	u := req.URL(c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug("[OASIS] Request", logger.String("url", u))

	started := time.Now()
	resp, err := c.Client.Do(httpReq)
	duration := time.Since(started)
	if err != nil {
		c.logger.Error("[OASIS] Request failed", logger.Error(err), logger.Duration("duration", duration))
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug("[OASIS] Response",
		logger.Int("status", resp.StatusCode),
		logger.Int("bytes", len(body)),
		logger.Duration("duration", duration))

	entry, err := singleEntry(body)
	if err != nil {
		aerr := &ArchiveError{StatusCode: resp.StatusCode, Body: body, Params: req.Values, Err: err}
		c.logger.Error("[OASIS] Could not load zipfile for query", append(req.Fields(), logger.Error(aerr))...)
		return nil, aerr
	}

	table, csvErr := ParseTable(entry)
	if csvErr == nil {
		if c.Cache != nil {
			c.Cache.Set(cacheKey, table)
		}
		return table, nil
	}

	c.logger.Warn("[OASIS] Could not parse zip entry as CSV", logger.Error(csvErr))
	desc, err := c.Reports.ErrorDescription(entry)
	if err != nil {
		desc = fmt.Sprintf("unreadable error report (%v; csv: %v)", err, csvErr)
	}
	c.logger.Error("[OASIS] Could not parse as CSV", append(req.Fields(), logger.String("error_message", desc))...)
	return nil, &ReportError{Description: desc, Params: req.Values}
}

// singleEntry opens body as a zip archive and returns its first entry.
func singleEntry(body []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, err
	}
	if len(zr.File) == 0 {
		return nil, errors.New("zip archive has no entries")
	}
	f, err := zr.File[0].Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

package oasis

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/model"
)

const (
	apiVersion = "1"
	// resultFormatCSV selects a zipped CSV payload.
	resultFormatCSV = "6"

	// CAISO does not retain data older than 39 months.
	retentionHorizon = time.Duration(39 * 30.3 * 24 * float64(time.Hour))
)

var (
	ErrEmptyNode      = errors.New("node is required")
	ErrInvalidNode    = errors.New("node must be a single name without path separators")
	ErrInvertedWindow = errors.New("end date must not be before start date")
)

// ValidateNode checks a pricing node ID. The ID also names the output file,
// so separators and ".." are rejected.
func ValidateNode(node string) error {
	node = strings.TrimSpace(node)
	if node == "" {
		return ErrEmptyNode
	}
	if strings.ContainsAny(node, `/\`) || strings.Contains(node, "..") || filepath.Base(node) != node {
		return fmt.Errorf("%w: %q", ErrInvalidNode, node)
	}
	return nil
}

// Query describes one OASIS request window.
type Query struct {
	Node   string       `json:"node"`
	Market model.Market `json:"market"`
	Start  model.Date   `json:"start"`
	End    model.Date   `json:"end"`
	TZIn   string       `json:"tz_in"`
	TZOut  string       `json:"tz_query"`
}

func (q Query) Window() model.Window {
	return model.Window{Start: q.Start, End: q.End}
}

// Request is a fully built OASIS query.
type Request struct {
	Query  Query      `json:"query"`
	Values url.Values `json:"params"`
	// Advisories are provider-policy warnings; they never block the request.
	Advisories []string `json:"advisories,omitempty"`
}

// QueryBuilder turns a Query into OASIS request parameters.
type QueryBuilder struct {
	now    func() time.Time
	logger logger.Logger
}

func NewQueryBuilder(log logger.Logger) *QueryBuilder {
	if log == nil {
		log = logger.NewNop()
	}
	return &QueryBuilder{now: time.Now, logger: log}
}

// WithClock overrides the clock used for the retention check.
func (b *QueryBuilder) WithClock(now func() time.Time) *QueryBuilder {
	b.now = now
	return b
}

// Build validates q and returns the parameter set for a SingleZip request.
func (b *QueryBuilder) Build(q Query) (*Request, error) {
	if err := ValidateNode(q.Node); err != nil {
		return nil, err
	}
	spec, err := q.Market.Spec()
	if err != nil {
		return nil, err
	}
	if q.End.Before(q.Start) {
		return nil, fmt.Errorf("%w (%s)", ErrInvertedWindow, q.Window())
	}

	start, err := FormatTime(q.Start, q.TZIn, q.TZOut)
	if err != nil {
		return nil, err
	}
	end, err := FormatTime(q.End, q.TZIn, q.TZOut)
	if err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("node", q.Node)
	v.Set("version", apiVersion)
	v.Set("startdatetime", start)
	v.Set("enddatetime", end)
	v.Set("resultformat", resultFormatCSV)
	v.Set("queryname", spec.QueryName)
	v.Set("market_run_id", spec.MarketRunID)

	req := &Request{Query: q, Values: v}

	// FormatTime already resolved tzIn, so this cannot fail.
	in, _ := time.LoadLocation(q.TZIn)
	if b.now().Sub(q.Start.In(in)) > retentionHorizon {
		req.Advisories = append(req.Advisories,
			"CAISO does not retain data over 39 months old, and the start date seems to be older")
	}
	if spec.MaxSpanDays > 0 && q.Start.DaysUntil(q.End) > spec.MaxSpanDays {
		req.Advisories = append(req.Advisories, fmt.Sprintf(
			"%s queries may be restricted to %d day(s), and this window spans %d",
			q.Market, spec.MaxSpanDays, q.Start.DaysUntil(q.End)))
	}
	for _, a := range req.Advisories {
		b.logger.Warn("[OASIS] Watch out: "+a,
			logger.String("node", q.Node),
			logger.String("market", q.Market.String()),
			logger.String("window", q.Window().String()))
	}

	return req, nil
}

// URL returns the full request URL against baseURL.
func (r *Request) URL(baseURL string) string {
	return baseURL + "?" + r.Values.Encode()
}

// Fields flattens the parameter set into log fields for diagnostics.
func (r *Request) Fields() []logger.Field {
	fields := make([]logger.Field, 0, len(r.Values))
	for k := range r.Values {
		fields = append(fields, logger.String(k, r.Values.Get(k)))
	}
	return fields
}

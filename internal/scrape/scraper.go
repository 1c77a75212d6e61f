// Package scrape drives a date-range LMP fetch: it splits the range into
// market-sized windows, retries failed windows up to a cap, and keeps the
// merged series persisted to a CSV file as it goes.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lmp-scraper/internal/config"
	"lmp-scraper/internal/logger"
	"lmp-scraper/internal/metrics"
	"lmp-scraper/internal/model"
	"lmp-scraper/internal/oasis"
)

// ErrInvalidOptions wraps every validation failure reported by Run and Plan.
var ErrInvalidOptions = errors.New("invalid scrape options")

// Fetcher fetches a single query window.
type Fetcher interface {
	FetchWindow(ctx context.Context, req *oasis.Request) (*oasis.Table, error)
}

// Options describes one range run.
type Options struct {
	Node        string
	Market      model.Market
	Start       model.Date
	End         model.Date
	TZIn        string
	TZQuery     string
	StorePath   string
	MaxAttempts int
	// CacheContinuously rewrites the output file after every attempt instead
	// of after every pass over the windows.
	CacheContinuously bool
}

// Validate catches configuration errors before any request is sent.
func (o Options) Validate() error {
	var problems []error
	if err := oasis.ValidateNode(o.Node); err != nil {
		problems = append(problems, err)
	}
	if _, err := o.Market.Spec(); err != nil {
		problems = append(problems, err)
	}
	if o.Start.IsZero() || o.End.IsZero() {
		problems = append(problems, errors.New("start and end dates are required"))
	} else if o.End.Before(o.Start) {
		problems = append(problems, oasis.ErrInvertedWindow)
	}
	for _, tz := range []string{o.TZIn, o.TZQuery} {
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			problems = append(problems, fmt.Errorf("invalid timezone %q", tz))
		}
	}
	if o.MaxAttempts < 1 {
		problems = append(problems, fmt.Errorf("max attempts must be >= 1 (got %d)", o.MaxAttempts))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, errors.Join(problems...))
	}
	return nil
}

// OptionsFromConfig resolves a scrape config section into run options.
// Dates are parsed in tz_in.
func OptionsFromConfig(c config.ScrapeConfig) (Options, error) {
	market, err := model.ParseMarket(c.Market)
	if err != nil {
		return Options{}, err
	}
	loc, err := time.LoadLocation(c.TZIn)
	if err != nil {
		return Options{}, fmt.Errorf("tz_in: %w", err)
	}
	start, err := model.ParseDate(c.StartDate, loc)
	if err != nil {
		return Options{}, fmt.Errorf("start date: %w", err)
	}
	end, err := model.ParseDate(c.EndDate, loc)
	if err != nil {
		return Options{}, fmt.Errorf("end date: %w", err)
	}
	return Options{
		Node:              strings.TrimSpace(c.Node),
		Market:            market,
		Start:             start,
		End:               end,
		TZIn:              c.TZIn,
		TZQuery:           c.TZQuery,
		StorePath:         c.StorePath,
		MaxAttempts:       c.MaxAttempts,
		CacheContinuously: c.CacheContinuously,
	}, nil
}

// Result is the outcome of a range run.
type Result struct {
	RunID   string
	Path    string
	Written bool
	Series  model.Series
	Records []*model.AttemptRecord
}

// Count returns how many windows ended in state.
func (r *Result) Count(state model.WindowState) int {
	n := 0
	for _, rec := range r.Records {
		if rec.State == state {
			n++
		}
	}
	return n
}

// Scraper owns the retry loop. It is not safe for concurrent use; one run
// at a time keeps the single output file consistent.
type Scraper struct {
	fetcher Fetcher
	builder *oasis.QueryBuilder
	pacer   Pacer
	metrics *metrics.Metrics
	logger  logger.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithPacer sets the pacer used before every attempt.
func WithPacer(p Pacer) Option {
	return func(s *Scraper) { s.pacer = p }
}

// WithQueryBuilder sets the builder used to turn windows into requests.
func WithQueryBuilder(b *oasis.QueryBuilder) Option {
	return func(s *Scraper) { s.builder = b }
}

// WithMetrics records fetch and run metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scraper) { s.metrics = m }
}

// New creates a new Scraper. Without WithPacer, requests are spaced by
// model.DefaultRequestDelay.
func New(fetcher Fetcher, log logger.Logger, opts ...Option) *Scraper {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scraper{fetcher: fetcher, logger: log}
	for _, opt := range opts {
		opt(s)
	}
	if s.pacer == nil {
		s.pacer = NewPacer(model.DefaultRequestDelay)
	}
	if s.builder == nil {
		s.builder = oasis.NewQueryBuilder(log)
	}
	return s
}

// run is the mutable state of one Run call.
type run struct {
	opts    Options
	spec    model.MarketSpec
	windows []model.Window
	records map[model.Date]*model.AttemptRecord
	results map[model.Date]model.Series
	result  *Result
	log     logger.Logger
}

// Run fetches every window of the range, retrying failures until each window
// has succeeded or used up MaxAttempts. Windows that never succeed do not fail
// the run; whatever was collected is written to Result.Path.
func (s *Scraper) Run(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	spec, _ := opts.Market.Spec()
	windows, err := Partition(opts.Start, opts.End, opts.Market)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	r := &run{
		opts:    opts,
		spec:    spec,
		windows: windows,
		records: make(map[model.Date]*model.AttemptRecord, len(windows)),
		results: make(map[model.Date]model.Series, len(windows)),
		result: &Result{
			RunID: uuid.NewString(),
			Path:  OutputPath(opts.StorePath, opts.Node, opts.Market, opts.Start, opts.End),
		},
	}
	r.log = s.logger.With(
		logger.String("run_id", r.result.RunID),
		logger.String("node", opts.Node),
		logger.String("market", opts.Market.String()))

	starts := make([]string, len(windows))
	for i, w := range windows {
		r.records[w.Start] = model.NewAttemptRecord(w)
		r.result.Records = append(r.result.Records, r.records[w.Start])
		starts[i] = w.Start.String()
	}
	r.log.Info("Query range starts", logger.Strings("chunk_starts", starts))
	s.metrics.RunStarted(opts.Market.String())

	for !r.done() {
		for _, w := range windows {
			rec := r.records[w.Start]
			if rec.Done() {
				continue
			}
			if err := s.pacer.Wait(ctx); err != nil {
				return s.finish(r, true), err
			}
			s.attempt(ctx, r, rec)
			if ctx.Err() != nil {
				return s.finish(r, true), ctx.Err()
			}
			if opts.CacheContinuously {
				s.persist(r)
			}
		}
		if !opts.CacheContinuously {
			s.persist(r)
		}
	}

	res := s.finish(r, false)
	if gaps := res.Series.Gaps(spec.ResultFrequency); gaps > 0 {
		r.log.Warn("Series has sampling gaps",
			logger.Int("gaps", gaps),
			logger.Duration("expected_frequency", spec.ResultFrequency))
	}
	r.log.Info("Range complete",
		logger.Int("windows", len(windows)),
		logger.Int("succeeded", res.Count(model.WindowSucceeded)),
		logger.Int("exhausted", res.Count(model.WindowExhausted)),
		logger.Int("points", len(res.Series)))
	if res.Written {
		s.metrics.PointsPersisted(len(res.Series))
	}
	return res, nil
}

func (r *run) done() bool {
	for _, rec := range r.records {
		if !rec.Done() {
			return false
		}
	}
	return true
}

func (s *Scraper) attempt(ctx context.Context, r *run, rec *model.AttemptRecord) {
	w := rec.Window
	r.log.Info(fmt.Sprintf("Querying %s, attempt number %d of %d", w, rec.Attempts+1, r.opts.MaxAttempts))

	started := time.Now()
	series, err := s.fetchWindow(ctx, r, w)
	if ctx.Err() != nil {
		// Cancellation is not the window's fault.
		return
	}
	s.metrics.ObserveFetch(r.opts.Market.String(), outcome(err), time.Since(started))

	if err != nil {
		rec.Fail(err, r.opts.MaxAttempts)
		r.log.Warn("Failed for window",
			logger.String("window", w.String()),
			logger.Int("attempts", rec.Attempts),
			logger.Error(err))
		if rec.State == model.WindowExhausted {
			r.log.Error("Giving up on window",
				logger.String("window", w.String()),
				logger.Int("attempts", rec.Attempts))
			s.metrics.WindowDone(r.opts.Market.String(), string(rec.State))
		}
		return
	}

	r.results[w.Start] = series
	rec.Succeed(len(series))
	r.log.Info("Success", logger.String("window", w.String()), logger.Int("points", len(series)))
	s.metrics.WindowDone(r.opts.Market.String(), string(rec.State))
}

func (s *Scraper) fetchWindow(ctx context.Context, r *run, w model.Window) (model.Series, error) {
	req, err := s.builder.Build(oasis.Query{
		Node:   r.opts.Node,
		Market: r.opts.Market,
		Start:  w.Start,
		End:    w.End,
		TZIn:   r.opts.TZIn,
		TZOut:  r.opts.TZQuery,
	})
	if err != nil {
		return nil, err
	}
	table, err := s.fetcher.FetchWindow(ctx, req)
	if err != nil {
		return nil, err
	}
	return ExtractLMP(table, r.spec.PriceColumn)
}

// merged concatenates the per-window sub-series, sorted by time.
func (r *run) merged() model.Series {
	parts := make([]model.Series, 0, len(r.results))
	for _, w := range r.windows {
		if s, ok := r.results[w.Start]; ok {
			parts = append(parts, s)
		}
	}
	return model.Merge(parts...)
}

// persist overwrites the output file with everything collected so far.
// Failures are logged; they never stop the run.
func (s *Scraper) persist(r *run) {
	if len(r.results) == 0 {
		r.log.Info("Nothing to write yet, no window has succeeded")
		return
	}
	series := r.merged()
	if err := WriteSeriesCSV(r.result.Path, r.spec.PriceColumn, series); err != nil {
		r.log.Error("Could not write results", logger.String("path", r.result.Path), logger.Error(err))
		return
	}
	r.result.Written = true
	r.log.Info("Wrote file", logger.String("path", r.result.Path), logger.Int("points", len(series)))
}

// finish assembles the Result. flush writes pending data first, for runs
// interrupted between persistence points.
func (s *Scraper) finish(r *run, flush bool) *Result {
	if flush {
		s.persist(r)
	}
	r.result.Series = r.merged()
	return r.result
}

func outcome(err error) string {
	var aerr *oasis.ArchiveError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, oasis.ErrNoData):
		return metrics.OutcomeNoData
	case errors.As(err, &aerr):
		return metrics.OutcomeArchive
	case errors.Is(err, ErrMissingColumn), errors.Is(err, ErrNullPrice):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeError
	}
}

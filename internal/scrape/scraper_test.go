package scrape

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lmp-scraper/internal/config"
	"lmp-scraper/internal/metrics"
	"lmp-scraper/internal/model"
	"lmp-scraper/internal/oasis"
)

const header = "INTERVALSTARTTIME_GMT,INTERVALENDTIME_GMT,OPR_DT,OPR_HR,NODE,MARKET_RUN_ID,LMP_TYPE,%s\n"

// windowCSV renders an OASIS-like report for w: one LMP and one MCC row per
// interval in [w.Start, w.End).
func windowCSV(w model.Window, freq time.Duration, priceCol string) string {
	var b strings.Builder
	fmt.Fprintf(&b, header, priceCol)
	end := w.End.In(time.UTC)
	for ts := w.Start.In(time.UTC); ts.Before(end); ts = ts.Add(freq) {
		te := ts.Add(freq)
		day := ts.Format("2006-01-02")
		price := priceAt(ts)
		for _, typ := range []string{"LMP", "MCC"} {
			fmt.Fprintf(&b, "%s,%s,%s,%d,NODE,RUN,%s,%g\n",
				ts.Format("2006-01-02T15:04:05-07:00"), te.Format("2006-01-02T15:04:05-07:00"),
				day, ts.Hour()+1, typ, price)
		}
	}
	return b.String()
}

func priceAt(ts time.Time) float64 {
	return float64(ts.Hour()) + float64(ts.Minute())/100
}

func tableFor(t *testing.T, w model.Window, market model.Market) *oasis.Table {
	t.Helper()
	spec, err := market.Spec()
	require.NoError(t, err)
	table, err := oasis.ParseTable([]byte(windowCSV(w, spec.ResultFrequency, spec.PriceColumn)))
	require.NoError(t, err)
	return table
}

type fakeFetcher struct {
	mu      sync.Mutex
	calls   map[model.Date]int
	total   int
	respond func(req *oasis.Request, call int) (*oasis.Table, error)
}

func newFakeFetcher(respond func(req *oasis.Request, call int) (*oasis.Table, error)) *fakeFetcher {
	return &fakeFetcher{calls: map[model.Date]int{}, respond: respond}
}

func (f *fakeFetcher) FetchWindow(ctx context.Context, req *oasis.Request) (*oasis.Table, error) {
	f.mu.Lock()
	f.calls[req.Query.Start]++
	f.total++
	call := f.calls[req.Query.Start]
	f.mu.Unlock()
	return f.respond(req, call)
}

type countingPacer struct {
	waits int
	err   error
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return p.err
}

func okFetcher(t *testing.T, market model.Market) *fakeFetcher {
	return newFakeFetcher(func(req *oasis.Request, _ int) (*oasis.Table, error) {
		return tableFor(t, req.Query.Window(), market), nil
	})
}

func baseOptions(t *testing.T, market model.Market, start, end model.Date) Options {
	return Options{
		Node:              "DLAP_SCE-APND",
		Market:            market,
		Start:             start,
		End:               end,
		TZIn:              "UTC",
		TZQuery:           "UTC",
		StorePath:         t.TempDir(),
		MaxAttempts:       3,
		CacheContinuously: true,
	}
}

func d(y int, m time.Month, day int) model.Date { return model.NewDate(y, m, day) }

func TestPartitionCoversRange(t *testing.T) {
	start := d(2019, time.January, 1)
	for _, market := range model.Markets() {
		spec, err := market.Spec()
		require.NoError(t, err)
		for span := 0; span <= 75; span++ {
			end := start.AddDays(span)
			windows, err := Partition(start, end, market)
			require.NoError(t, err)

			want := (span + spec.ChunkDays - 1) / spec.ChunkDays
			if span == 0 {
				want = 1
			}
			require.Len(t, windows, want, "%s span %d", market, span)
			assert.Equal(t, start, windows[0].Start)
			assert.Equal(t, end, windows[len(windows)-1].End)
			for i, w := range windows {
				assert.False(t, w.End.Before(w.Start))
				if span > 0 {
					assert.True(t, w.Start.Before(w.End), "no zero-length windows")
				}
				assert.LessOrEqual(t, w.Days(), spec.ChunkDays)
				if i < len(windows)-1 {
					assert.Equal(t, spec.ChunkDays, w.Days(), "only the last window is clipped")
					assert.Equal(t, w.End, windows[i+1].Start, "windows are contiguous")
				}
			}
		}
	}
}

func TestPartitionScenarios(t *testing.T) {
	windows, err := Partition(d(2019, time.June, 1), d(2019, time.June, 3), model.MarketDA)
	require.NoError(t, err)
	assert.Equal(t, []model.Window{{Start: d(2019, time.June, 1), End: d(2019, time.June, 3)}}, windows)

	windows, err = Partition(d(2019, time.January, 1), d(2019, time.January, 3), model.MarketRT5)
	require.NoError(t, err)
	assert.Equal(t, []model.Window{
		{Start: d(2019, time.January, 1), End: d(2019, time.January, 2)},
		{Start: d(2019, time.January, 2), End: d(2019, time.January, 3)},
	}, windows)

	windows, err = Partition(d(2019, time.January, 1), d(2019, time.January, 1), model.MarketRT5)
	require.NoError(t, err)
	assert.Equal(t, []model.Window{{Start: d(2019, time.January, 1), End: d(2019, time.January, 1)}}, windows)

	_, err = Partition(d(2019, time.January, 3), d(2019, time.January, 1), model.MarketRT5)
	assert.ErrorIs(t, err, oasis.ErrInvertedWindow)
	_, err = Partition(d(2019, time.January, 1), d(2019, time.January, 3), "RT60")
	assert.ErrorIs(t, err, model.ErrInvalidMarket)
}

func TestRunDAScenario(t *testing.T) {
	fetcher := okFetcher(t, model.MarketDA)
	pacer := &countingPacer{}
	opts := baseOptions(t, model.MarketDA, d(2019, time.June, 1), d(2019, time.June, 3))

	res, err := New(fetcher, nil, WithPacer(pacer)).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.total, "one window, one attempt")
	assert.Equal(t, 1, pacer.waits)
	require.Len(t, res.Records, 1)
	assert.Equal(t, model.WindowSucceeded, res.Records[0].State)
	assert.Equal(t, 0, res.Records[0].Attempts)
	assert.Len(t, res.Series, 48, "two days of hourly LMP rows, components dropped")
	assert.True(t, res.Series.IsStrictlyIncreasing())
	assert.NotEmpty(t, res.RunID)

	assert.True(t, res.Written)
	assert.True(t, strings.HasSuffix(res.Path, "LMP_DLAP_SCE-APND_DA_2019-06-01_2019-06-03.csv"))
	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 49)
	assert.Equal(t, "INTERVALSTARTTIME_GMT,MW", lines[0])
	assert.Equal(t, "2019-06-01T00:00:00Z,0", lines[1])
	assert.Equal(t, "2019-06-02T23:00:00Z,23", lines[48])
}

func TestRunRT5AcrossWindows(t *testing.T) {
	fetcher := okFetcher(t, model.MarketRT5)
	opts := baseOptions(t, model.MarketRT5, d(2019, time.January, 1), d(2019, time.January, 3))

	res, err := New(fetcher, nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.total, "one request per day")
	assert.Equal(t, 2, res.Count(model.WindowSucceeded))
	assert.Equal(t, 0, res.Count(model.WindowExhausted))
	assert.Len(t, res.Series, 2*288)
	assert.True(t, res.Series.IsStrictlyIncreasing(), "no overlap across window boundaries")
	assert.Equal(t, 0, res.Series.Gaps(5*time.Minute))
}

func TestRunRetriesUntilSuccess(t *testing.T) {
	fetcher := newFakeFetcher(func(req *oasis.Request, call int) (*oasis.Table, error) {
		if call < 3 {
			return nil, &oasis.ReportError{Description: "No data returned for the specified selection"}
		}
		return tableFor(t, req.Query.Window(), model.MarketDA), nil
	})
	pacer := &countingPacer{}
	opts := baseOptions(t, model.MarketDA, d(2019, time.June, 1), d(2019, time.June, 2))
	opts.MaxAttempts = 5

	res, err := New(fetcher, nil, WithPacer(pacer)).Run(context.Background(), opts)
	require.NoError(t, err)

	rec := res.Records[0]
	assert.Equal(t, model.WindowSucceeded, rec.State)
	assert.Equal(t, 2, rec.Attempts, "only failures are counted")
	assert.Equal(t, 3, fetcher.total)
	assert.Equal(t, 3, pacer.waits, "one wait per attempt")
	assert.Len(t, res.Series, 24)
}

func TestRunExhaustedWindowDoesNotFailRun(t *testing.T) {
	middle := d(2019, time.January, 2)
	fetcher := newFakeFetcher(func(req *oasis.Request, _ int) (*oasis.Table, error) {
		if req.Query.Start == middle {
			return nil, &oasis.ArchiveError{StatusCode: 503, Body: []byte("busy")}
		}
		return tableFor(t, req.Query.Window(), model.MarketRT5), nil
	})
	opts := baseOptions(t, model.MarketRT5, d(2019, time.January, 1), d(2019, time.January, 4))

	res, err := New(fetcher, nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 3, fetcher.calls[middle])
	assert.Equal(t, 1, fetcher.calls[d(2019, time.January, 1)])
	assert.Equal(t, 1, res.Count(model.WindowExhausted))
	assert.Equal(t, 2, res.Count(model.WindowSucceeded))
	for _, rec := range res.Records {
		if rec.Window.Start == middle {
			assert.Equal(t, 3, rec.Attempts)
			assert.Contains(t, rec.LastErr, "zip archive")
		}
	}

	assert.Len(t, res.Series, 2*288)
	assert.True(t, res.Series.IsStrictlyIncreasing())
	assert.Equal(t, 1, res.Series.Gaps(5*time.Minute), "the exhausted day is a hole")
	assert.True(t, res.Written)
}

func TestRunAllExhaustedWritesNothing(t *testing.T) {
	fetcher := newFakeFetcher(func(*oasis.Request, int) (*oasis.Table, error) {
		return nil, errors.New("connection reset by peer")
	})
	opts := baseOptions(t, model.MarketRT15, d(2019, time.January, 1), d(2019, time.January, 20))
	opts.MaxAttempts = 2

	res, err := New(fetcher, nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 4, fetcher.total, "two windows, two attempts each")
	assert.Equal(t, 2, res.Count(model.WindowExhausted))
	assert.Empty(t, res.Series)
	assert.False(t, res.Written)
	_, statErr := os.Stat(res.Path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunRejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want error
	}{
		{
			name: "null price",
			csv: "INTERVALSTARTTIME_GMT,INTERVALENDTIME_GMT,OPR_DT,LMP_TYPE,MW\n" +
				"2019-06-01T07:00:00-00:00,2019-06-01T08:00:00-00:00,2019-06-01,LMP,\n",
			want: ErrNullPrice,
		},
		{
			name: "missing price column",
			csv: "INTERVALSTARTTIME_GMT,INTERVALENDTIME_GMT,OPR_DT,LMP_TYPE,PRC\n" +
				"2019-06-01T07:00:00-00:00,2019-06-01T08:00:00-00:00,2019-06-01,LMP,1\n",
			want: ErrMissingColumn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := oasis.ParseTable([]byte(tt.csv))
			require.NoError(t, err)

			fetcher := newFakeFetcher(func(*oasis.Request, int) (*oasis.Table, error) { return table, nil })
			opts := baseOptions(t, model.MarketDA, d(2019, time.June, 1), d(2019, time.June, 2))
			opts.MaxAttempts = 2

			res, err := New(fetcher, nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
			require.NoError(t, err)
			assert.Equal(t, 2, fetcher.total, "invalid rows are retried like fetch failures")
			assert.Equal(t, model.WindowExhausted, res.Records[0].State)
			assert.Empty(t, res.Series)

			_, err = ExtractLMP(table, "MW")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRunIsIdempotent(t *testing.T) {
	opts := baseOptions(t, model.MarketRT15, d(2019, time.March, 1), d(2019, time.April, 5))

	first, err := New(okFetcher(t, model.MarketRT15), nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
	require.NoError(t, err)
	firstFile, err := os.ReadFile(first.Path)
	require.NoError(t, err)

	second, err := New(okFetcher(t, model.MarketRT15), nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
	require.NoError(t, err)
	secondFile, err := os.ReadFile(second.Path)
	require.NoError(t, err)

	assert.Equal(t, first.Series, second.Series)
	assert.Equal(t, firstFile, secondFile)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunPersistsPerPassWhenNotContinuous(t *testing.T) {
	fetcher := newFakeFetcher(func(req *oasis.Request, call int) (*oasis.Table, error) {
		if req.Query.Start == d(2019, time.January, 2) && call == 1 {
			return nil, oasis.ErrNoData
		}
		return tableFor(t, req.Query.Window(), model.MarketRT5), nil
	})
	opts := baseOptions(t, model.MarketRT5, d(2019, time.January, 1), d(2019, time.January, 3))
	opts.CacheContinuously = false

	res, err := New(fetcher, nil, WithPacer(&countingPacer{})).Run(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 3, fetcher.total)
	assert.True(t, res.Written)

	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, 2*288+1, strings.Count(string(raw), "\n"))
}

func TestRunValidatesBeforeFetching(t *testing.T) {
	fetcher := okFetcher(t, model.MarketDA)
	s := New(fetcher, nil, WithPacer(&countingPacer{}))

	mutations := map[string]func(*Options){
		"market":       func(o *Options) { o.Market = "RT60" },
		"node":         func(o *Options) { o.Node = "" },
		"node path":    func(o *Options) { o.Node = "/../../escaped" },
		"inverted":     func(o *Options) { o.Start, o.End = o.End, o.Start },
		"missing date": func(o *Options) { o.Start = model.Date{} },
		"timezone":     func(o *Options) { o.TZIn = "Mars/Olympus" },
		"attempts":     func(o *Options) { o.MaxAttempts = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			opts := baseOptions(t, model.MarketDA, d(2019, time.June, 1), d(2019, time.June, 3))
			mutate(&opts)
			_, err := s.Run(context.Background(), opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
	assert.Equal(t, 0, fetcher.total)
}

func TestOptionsFromConfig(t *testing.T) {
	c := config.Default()
	c.Scrape = config.MergeScrape(c.Scrape, config.ScrapeConfig{
		Node:      " DLAP_SCE-APND ",
		Market:    "DA",
		StartDate: "2019-06-01",
		EndDate:   "2019-06-03",
	})

	opts, err := OptionsFromConfig(c.Scrape)
	require.NoError(t, err)
	assert.Equal(t, "DLAP_SCE-APND", opts.Node)
	assert.Equal(t, model.MarketDA, opts.Market)
	assert.Equal(t, d(2019, time.June, 1), opts.Start)
	assert.Equal(t, d(2019, time.June, 3), opts.End)
	assert.Equal(t, "US/Pacific", opts.TZIn)
	assert.Equal(t, model.DefaultMaxAttempts, opts.MaxAttempts)
	assert.True(t, opts.CacheContinuously)
	assert.NoError(t, opts.Validate())

	c.Scrape.Market = "hourly"
	_, err = OptionsFromConfig(c.Scrape)
	assert.ErrorIs(t, err, model.ErrInvalidMarket)

	c.Scrape.Market = "DA"
	c.Scrape.EndDate = ""
	_, err = OptionsFromConfig(c.Scrape)
	assert.Error(t, err)

	c.Scrape.EndDate = "2019-06-03"
	c.Scrape.Node = "../escaped"
	opts, err = OptionsFromConfig(c.Scrape)
	require.NoError(t, err)
	assert.ErrorIs(t, opts.Validate(), oasis.ErrInvalidNode)
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := newFakeFetcher(func(req *oasis.Request, _ int) (*oasis.Table, error) {
		cancel()
		return tableFor(t, req.Query.Window(), model.MarketRT5), nil
	})
	opts := baseOptions(t, model.MarketRT5, d(2019, time.January, 1), d(2019, time.January, 5))
	opts.CacheContinuously = false

	res, err := New(fetcher, nil, WithPacer(&countingPacer{})).Run(ctx, opts)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, fetcher.total)
	assert.Equal(t, 0, res.Records[0].Attempts, "cancelled attempts are not counted")
	assert.Equal(t, model.WindowPending, res.Records[0].State)
}

func TestRunPacerErrorStopsRun(t *testing.T) {
	fetcher := okFetcher(t, model.MarketDA)
	pacer := &countingPacer{err: context.DeadlineExceeded}
	opts := baseOptions(t, model.MarketDA, d(2019, time.June, 1), d(2019, time.June, 3))

	_, err := New(fetcher, nil, WithPacer(pacer)).Run(context.Background(), opts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, fetcher.total)
}

func TestRunRecordsMetrics(t *testing.T) {
	m := metrics.New()
	fetcher := newFakeFetcher(func(req *oasis.Request, call int) (*oasis.Table, error) {
		if call == 1 {
			return nil, &oasis.ReportError{Description: "try later"}
		}
		return tableFor(t, req.Query.Window(), model.MarketDA), nil
	})
	opts := baseOptions(t, model.MarketDA, d(2019, time.June, 1), d(2019, time.June, 2))

	_, err := New(fetcher, nil, WithPacer(&countingPacer{}), WithMetrics(m)).Run(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("DA", metrics.OutcomeNoData)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("DA", metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Windows.WithLabelValues("DA", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("DA")))
	assert.Equal(t, 24.0, testutil.ToFloat64(m.PointsWritten))

	assert.Equal(t, "no_data", outcome(&oasis.ReportError{}))
	assert.Equal(t, "bad_archive", outcome(&oasis.ArchiveError{}))
	assert.Equal(t, "invalid_rows", outcome(fmt.Errorf("x: %w", ErrNullPrice)))
	assert.Equal(t, "error", outcome(errors.New("dial tcp: refused")))
	assert.Equal(t, "success", outcome(nil))
}

func TestPacerSpacesRequests(t *testing.T) {
	p := NewPacer(50 * time.Millisecond)
	ctx := context.Background()

	started := time.Now()
	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))
	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(started), 90*time.Millisecond)

	off := NewPacer(0)
	started = time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, off.Wait(ctx))
	}
	assert.Less(t, time.Since(started), 50*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	slow := NewPacer(time.Hour)
	require.NoError(t, slow.Wait(ctx))
	assert.Error(t, slow.Wait(cancelled))
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "LMP_TH_SP15_GEN-APND_RT15_2019-01-01_2019-02-01.csv",
		OutputPath("", "TH_SP15_GEN-APND", model.MarketRT15, d(2019, 1, 1), d(2019, 2, 1)))
}

func TestPlanBuildsRequestsWithoutFetching(t *testing.T) {
	fetcher := okFetcher(t, model.MarketRT15)
	s := New(fetcher, nil, WithPacer(&countingPacer{}))
	opts := baseOptions(t, model.MarketRT15, d(2019, time.January, 1), d(2019, time.February, 1))

	plan, err := s.Plan(opts)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Equal(t, 0, fetcher.total)

	first := plan[0].Request.Values
	assert.Equal(t, "PRC_RTPD_LMP", first.Get("queryname"))
	assert.Equal(t, "RTPD", first.Get("market_run_id"))
	assert.Equal(t, "20190101T00:00+0000", first.Get("startdatetime"))
	assert.Equal(t, "20190116T00:00+0000", first.Get("enddatetime"))
	assert.Equal(t, d(2019, time.February, 1), plan[2].Window.End)

	opts.Node = ""
	_, err = s.Plan(opts)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

package main

import (
	"fmt"
	"io"
	"time"

	"lmp-scraper/internal/analysis"
	"lmp-scraper/internal/config"
	"lmp-scraper/internal/model"
	"lmp-scraper/internal/scrape"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// scrapeFlags override the scrape section of the config when set.
type scrapeFlags struct {
	node        string
	market      string
	start       string
	end         string
	storePath   string
	tzIn        string
	tzQuery     string
	maxAttempts int
	delay       time.Duration
	continuous  bool
}

func (f *scrapeFlags) register(cmd *cobra.Command, run bool) {
	fl := cmd.Flags()
	fl.StringVar(&f.node, "node", "", "a CAISO node name, e.g. DLAP_SCE-APND")
	fl.StringVarP(&f.market, "market", "m", "", "RT5, RT15, or DA")
	fl.StringVarP(&f.start, "startdate", "s", "", "start date, e.g. 2019-06-01")
	fl.StringVarP(&f.end, "enddate", "e", "", "end date, e.g. 2019-06-03")
	fl.StringVar(&f.tzIn, "tz_in", "", "the timezone of your input args (default from config, US/Pacific)")
	fl.StringVar(&f.tzQuery, "tz_query", "", "the timezone used in OASIS queries (default from config, US/Pacific)")
	if !run {
		return
	}
	fl.StringVarP(&f.storePath, "store_path", "p", "", "directory for the output CSV")
	fl.IntVar(&f.maxAttempts, "max_n_attempts", 0, "attempts per window before giving up (default from config, 5)")
	fl.DurationVar(&f.delay, "delay", 0, "minimum spacing between OASIS requests (default from config, 5s)")
	fl.BoolVar(&f.continuous, "cache_continuously", true, "rewrite the output file after every attempt")
}

func (f *scrapeFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if fl.Changed(name) {
			*dst = v
		}
	}
	set("node", &cfg.Scrape.Node, f.node)
	set("market", &cfg.Scrape.Market, f.market)
	set("startdate", &cfg.Scrape.StartDate, f.start)
	set("enddate", &cfg.Scrape.EndDate, f.end)
	set("tz_in", &cfg.Scrape.TZIn, f.tzIn)
	set("tz_query", &cfg.Scrape.TZQuery, f.tzQuery)
	if fl.Lookup("store_path") == nil {
		return
	}
	set("store_path", &cfg.Scrape.StorePath, f.storePath)
	if fl.Changed("max_n_attempts") {
		cfg.Scrape.MaxAttempts = f.maxAttempts
	}
	if fl.Changed("delay") {
		cfg.OASIS.RequestDelay = f.delay
	}
	if fl.Changed("cache_continuously") {
		cfg.Scrape.CacheContinuously = f.continuous
	}
}

func newFetchCommand(a *app) *cobra.Command {
	f := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch LMPs for a node over a date range and write them to CSV",
		Example: "  lmp fetch --node DLAP_SCE-APND -m DA -s 2019-06-01 -e 2019-06-03\n" +
			"  lmp fetch --node TH_SP15_GEN-APND -m RT5 -s 2019-01-01 -e 2019-01-03 -p data/",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, a.cfg)
			opts, err := scrape.OptionsFromConfig(a.cfg.Scrape)
			if err != nil {
				return err
			}
			res, err := a.newScraper(nil).Run(cmd.Context(), opts)
			if res != nil {
				printResult(cmd.OutOrStdout(), res)
			}
			return err
		},
	}
	f.register(cmd, true)
	return cmd
}

func printResult(w io.Writer, res *scrape.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Run " + res.RunID)
	t.AppendHeader(table.Row{"Window", "State", "Failed Attempts", "Points", "Last Error"})
	for _, rec := range res.Records {
		t.AppendRow(table.Row{rec.Window.String(), rec.State, rec.Attempts, rec.Points, truncate(rec.LastErr, 60)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d ok", res.Count(model.WindowSucceeded), len(res.Records)), "", len(res.Series), ""})
	t.Render()

	if res.Written {
		st := analysis.Summarize(res.Series)
		fmt.Fprintf(w, "LMP $/MWh: min %.2f  mean %.2f  max %.2f  p95-p05 spread %.2f  negative intervals %d\n",
			st.Min, st.Mean, st.Max, st.SpreadP95P05, st.Negative)
		fmt.Fprintf(w, "Wrote %d rows to %s\n", len(res.Series), res.Path)
	} else {
		fmt.Fprintln(w, "No data collected; nothing written")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

package main

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"lmp-scraper/internal/scrape"
)

func newPlanCommand(a *app) *cobra.Command {
	f := &scrapeFlags{}
	var showURL bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the query windows and requests a fetch would send, without sending them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, a.cfg)
			opts, err := scrape.OptionsFromConfig(a.cfg.Scrape)
			if err != nil {
				return err
			}
			plan, err := a.newScraper(nil).Plan(opts)
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			header := table.Row{"#", "Window", "startdatetime", "enddatetime", "Advisories"}
			if showURL {
				header = append(header, "URL")
			}
			t.AppendHeader(header)
			for i, p := range plan {
				row := table.Row{
					i + 1,
					p.Window.String(),
					p.Request.Values.Get("startdatetime"),
					p.Request.Values.Get("enddatetime"),
					strings.Join(p.Request.Advisories, "\n"),
				}
				if showURL {
					row = append(row, p.Request.URL(a.cfg.OASIS.BaseURL))
				}
				t.AppendRow(row)
			}
			t.Render()
			return nil
		},
	}
	f.register(cmd, false)
	cmd.Flags().BoolVar(&showURL, "url", false, "include full request URLs")
	return cmd
}

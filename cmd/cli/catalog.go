package main

import (
	"fmt"

	"lmp-scraper/internal/data"
	"lmp-scraper/internal/model"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newMarketsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "markets",
		Short: "List supported markets and their query parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Market", "Chunk Days", "Frequency", "Query Name", "Run ID", "Price Column", "Max Span"})
			for _, m := range model.Markets() {
				spec, _ := m.Spec()
				maxSpan := "-"
				if spec.MaxSpanDays > 0 {
					maxSpan = fmt.Sprintf("%d days", spec.MaxSpanDays)
				}
				t.AppendRow(table.Row{m, spec.ChunkDays, spec.ResultFrequency, spec.QueryName, spec.MarketRunID, spec.PriceColumn, maxSpan})
			}
			t.Render()
			return nil
		},
	}
}

func (a *app) nodesPath() string {
	if a.cfg.NodesFile != "" {
		return a.cfg.NodesFile
	}
	return data.GetDefaultNodesPath()
}

func newNodesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List known pricing nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := data.LoadNodesOrDefault(a.nodesPath())
			if err != nil {
				return err
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Node", "Type", "Description"})
			for _, n := range list.Nodes {
				t.AppendRow(table.Row{n.ID, n.Type, n.Description})
			}
			if list.UpdatedAt != "" {
				t.SetCaption("updated %s", list.UpdatedAt)
			}
			t.Render()
			return nil
		},
	}

	var description string
	add := &cobra.Command{
		Use:   "add NODE_ID",
		Short: "Add or update a node in the catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.nodesPath()
			list, err := data.LoadNodesOrDefault(path)
			if err != nil {
				return err
			}
			if err := list.Add(data.Node{ID: args[0], Description: description}); err != nil {
				return err
			}
			if err := data.SaveNodes(list, path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d nodes to %s\n", len(list.Nodes), path)
			return nil
		},
	}
	add.Flags().StringVar(&description, "description", "", "free-form node description")
	cmd.AddCommand(add)
	return cmd
}

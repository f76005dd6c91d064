package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/video-stream/autosub/internal/config"
	"github.com/video-stream/autosub/internal/job"
	"github.com/video-stream/autosub/internal/logging"
)

func newJobsCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List finished jobs in the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFlag)
			if err != nil {
				return err
			}
			entries, err := job.NewStore(cfg.OutputPath).List()
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No jobs found")
				return nil
			}
			return writeJobsTable(out, entries, logging.IsTerminal(out))
		},
	}
}

func writeJobsTable(out io.Writer, entries []job.Entry, pretty bool) error {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Status", "Refined", "Updated", "Detail"})
	for _, e := range entries {
		refined := "-"
		if e.Record.Refined != nil {
			refined = fmt.Sprintf("%t", *e.Record.Refined)
		}
		detail := e.Record.OriginalFileName
		if e.Record.Status == job.StatusError {
			detail = e.Record.Error
		}
		tw.AppendRow(table.Row{e.ID, string(e.Record.Status), refined, humanize.Time(e.UpdatedAt), detail})
	}

	var rendered string
	if pretty {
		tw.SetStyle(table.StyleRounded)
		rendered = tw.Render()
	} else {
		rendered = tw.RenderTSV()
	}
	_, err := fmt.Fprintln(out, rendered)
	return err
}

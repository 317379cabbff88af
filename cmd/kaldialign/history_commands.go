package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"kaldialign/internal/history"
	"kaldialign/internal/logs"
	"kaldialign/internal/pipeline"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent pipeline runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				renderRunList(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var logLines int

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the stages of one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHistory(ctx, func(store *history.Store) error {
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				renderRunDetail(out, run)
				if logLines <= 0 || run.LogPath == "" {
					return nil
				}
				lines, err := logs.LastLines(run.LogPath, logLines)
				if err != nil {
					return err
				}
				if len(lines) == 0 {
					fmt.Fprintf(out, "\nRun log %s is empty or was pruned\n", run.LogPath)
					return nil
				}
				fmt.Fprintf(out, "\n[log]\n%s\n", strings.Join(lines, "\n"))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&logLines, "log", 0, "Also print the last N lines of the run log")
	return cmd
}

func withHistory(ctx *commandContext, fn func(*history.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.OpenFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func renderRunList(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			humanize.Time(run.StartedAt),
			string(run.Status),
			strconv.Itoa(run.Utterances),
			formatDuration(run.Duration()),
			run.WavDir,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Run", "Started", "Status", "Utts", "Duration", "Audio"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
}

func renderRunDetail(w io.Writer, run *history.Run) {
	colorize := shouldColorize(w)
	kind := statusInfo
	switch run.Status {
	case history.StatusSucceeded:
		kind = statusOK
	case history.StatusFailed:
		kind = statusError
	}
	fmt.Fprintln(w, renderStatusLine("Run "+run.ID, kind, string(run.Status), colorize))
	fmt.Fprintln(w, renderStatusLine("Started", statusInfo, run.StartedAt.Local().Format("2006-01-02 15:04:05")+" ("+humanize.Time(run.StartedAt)+")", colorize))
	fmt.Fprintln(w, renderStatusLine("Audio", statusInfo, run.WavDir, colorize))
	fmt.Fprintln(w, renderStatusLine("Data", statusInfo, run.DataDir, colorize))
	if run.LogPath != "" {
		fmt.Fprintln(w, renderStatusLine("Log", statusInfo, run.LogPath, colorize))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintln(w, renderStatusLine("Error", statusError, run.ErrorMessage, colorize))
	}

	rows := make([][]string, 0, len(run.Stages))
	for _, stage := range run.Stages {
		rows = append(rows, []string{
			strconv.Itoa(stage.Seq),
			pipeline.Label(stage.Name),
			stage.Outcome,
			formatDuration(stage.Duration),
		})
	}
	if len(rows) > 0 {
		fmt.Fprintln(w, renderTable([]string{"#", "Stage", "Outcome", "Duration"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignRight}))
	}
	for _, stage := range run.Stages {
		if stage.Command == "" {
			continue
		}
		fmt.Fprintf(w, "\n[%s]\n%s\n", stage.Name, stage.Command)
	}
}

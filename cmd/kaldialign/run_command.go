package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kaldialign/internal/config"
	"kaldialign/internal/history"
	"kaldialign/internal/logging"
	"kaldialign/internal/pipeline"
	"kaldialign/internal/playback"
	"kaldialign/internal/preflight"
	"kaldialign/internal/services"
)

type runOptions struct {
	playback   bool
	noPlayback bool
}

func runPipeline(cmd *cobra.Command, ctx *commandContext, args []string, opts runOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	switch {
	case opts.playback:
		cfg.Playback.Mode = config.PlaybackAlways
	case opts.noPlayback:
		cfg.Playback.Mode = config.PlaybackNever
	}

	logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays)

	req := pipeline.Request{WavDir: args[0]}
	if len(args) > 1 {
		req.DataDir = args[1]
	}

	orchestratorOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithOutput(cmd.OutOrStdout()),
	}
	if cfg.History.Enabled {
		store, err := history.OpenFromConfig(cfg)
		if err != nil {
			logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
				logging.Error(err),
				logging.String(logging.FieldImpact, "this run will not appear in kaldialign history"),
				logging.String(logging.FieldErrorHint, "delete "+cfg.HistoryPath()+" if the schema is outdated"),
			)
		} else {
			defer store.Close()
			orchestratorOpts = append(orchestratorOpts, pipeline.WithRecorder(store))
		}
	}
	orchestrator := pipeline.New(cfg, orchestratorOpts...)

	dataDir, err := orchestrator.ResolveDataDir(req)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "resolve data dir", req.DataDir, err)
	}
	if err := preflight.Error(preflight.RunAll(cfg, dataDir)); err != nil {
		return err
	}

	result, runErr := orchestrator.Run(cmd.Context(), req)
	if result != nil && len(result.Stages) > 0 {
		writeRunSummary(cmd.ErrOrStderr(), result)
	}
	if runErr != nil {
		return runErr
	}

	player := playback.New(cfg,
		playback.WithLogger(logger),
		playback.WithPrompt(cmd.InOrStdin(), cmd.OutOrStdout(), isTerminalReader(cmd.InOrStdin())),
	)
	if _, err := player.Offer(cmd.Context(), result.WavDir, result.DataDir); err != nil {
		return err
	}
	return nil
}

func writeRunSummary(w io.Writer, result *pipeline.Result) {
	rows := make([][]string, 0, len(result.Stages))
	for _, stage := range result.Stages {
		rows = append(rows, []string{
			pipeline.Label(stage.Name),
			outcomeLabel(stage.Outcome),
			formatDuration(stage.Duration),
		})
	}
	fmt.Fprintln(w, renderTable([]string{"Stage", "Outcome", "Duration"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))

	var details []string
	if result.RunID != "" {
		details = append(details, "run "+shortID(result.RunID))
	}
	if result.Utterances > 0 {
		details = append(details, fmt.Sprintf("%d utterances", result.Utterances))
	}
	details = append(details, "data "+result.DataDir)
	if result.LogPath != "" {
		details = append(details, "log "+result.LogPath)
	}
	fmt.Fprintln(w, strings.Join(details, " · "))
}

func outcomeLabel(outcome services.Outcome) string {
	return strings.ReplaceAll(string(outcome), "_", " ")
}

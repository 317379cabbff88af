package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaldialign/internal/deps"
	"kaldialign/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check that the Kaldi programs and model files are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			statuses := preflight.CheckSystemDeps(cfg)

			if !quiet {
				rows := make([][]string, 0, len(statuses))
				for _, s := range statuses {
					rows = append(rows, []string{s.Name, s.Stage, availabilityLabel(s), dependencyLocation(s)})
				}
				fmt.Fprintln(out, renderTable([]string{"Program", "Stage", "Status", "Location"}, rows, nil))

				colorize := shouldColorize(out)
				for _, check := range preflight.CheckModelFiles(cfg) {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
			}

			missing := deps.MissingRequired(statuses)
			failed := preflight.Failed(preflight.CheckModelFiles(cfg))
			if len(missing) > 0 || len(failed) > 0 {
				return fmt.Errorf("%d required programs and %d model files unavailable", len(missing), len(failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Only report through the exit status")
	return cmd
}

func availabilityLabel(s deps.Status) string {
	switch {
	case s.Available:
		return "ok"
	case s.Optional:
		return "missing (optional)"
	default:
		return "missing"
	}
}

func dependencyLocation(s deps.Status) string {
	if s.Available {
		return s.Resolved
	}
	return s.Command
}

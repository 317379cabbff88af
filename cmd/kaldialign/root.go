package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var runFlags runOptions

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "kaldialign <wavdir> [<datadir>]",
		Short: "Align speech recordings with Kaldi",
		Long: "kaldialign decodes every .wav file in <wavdir> with a pretrained Kaldi chain model\n" +
			"and writes word and phone alignments plus Praat TextGrids to <datadir>.",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, ctx, args, runFlags)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&runFlags.playback, "playback", false, "Open the alignments in Praat without asking")
	rootCmd.Flags().BoolVar(&runFlags.noPlayback, "no-playback", false, "Never open the alignments in Praat")
	rootCmd.MarkFlagsMutuallyExclusive("playback", "no-playback")

	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newDepsCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newConvertCommand(ctx))

	return rootCmd
}

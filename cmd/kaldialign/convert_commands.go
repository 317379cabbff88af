package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"kaldialign/internal/kaldi"
	"kaldialign/internal/manifest"
	"kaldialign/internal/symbols"
	"kaldialign/internal/textgrid"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert",
		Short: "Run the CTM converters on existing files",
	}
	convertCmd.AddCommand(newConvertPhonesCommand(ctx))
	convertCmd.AddCommand(newConvertWordsCommand(ctx))
	convertCmd.AddCommand(newConvertTextGridCommand(ctx))
	return convertCmd
}

func newConvertPhonesCommand(ctx *commandContext) *cobra.Command {
	var table string
	var keepPositions bool

	cmd := &cobra.Command{
		Use:   "phones <ctm>",
		Short: "Replace phone IDs in a CTM with phone symbols, in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if table == "" {
				table = cfg.Model.Phones
			}
			strip := cfg.Alignment.StripPhonePositions && !keepPositions
			n, err := symbols.ConvertPhones(args[0], table, strip)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d entries in %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "phones", "", "Phone symbol table (defaults to model.phones)")
	cmd.Flags().BoolVar(&keepPositions, "keep-positions", false, "Keep _B/_E/_I/_S word-position suffixes")
	return cmd
}

func newConvertWordsCommand(ctx *commandContext) *cobra.Command {
	var table string

	cmd := &cobra.Command{
		Use:   "words <ctm>",
		Short: "Replace word IDs in a CTM with words, in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if table == "" {
				table = cfg.Model.Words
			}
			n, err := symbols.ConvertWords(args[0], table)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d entries in %s\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&table, "words", "", "Word symbol table (defaults to model.words)")
	return cmd
}

func newConvertTextGridCommand(_ *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "textgrid <wavdir> <datadir>",
		Short: "Write Praat TextGrids from the label-converted CTMs in <datadir>",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Scan(args[0])
			if err != nil {
				return err
			}
			dataDir, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			data := kaldi.DataDir(dataDir)
			paths, err := textgrid.Convert(m, data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d TextGrids to %s\n", len(paths), data.Path(kaldi.TextGridDir))
			return nil
		},
	}
}

package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"kaldialign/internal/kaldi"
	"kaldialign/internal/logging"
	"kaldialign/internal/manifest"
	"kaldialign/internal/services"
	"kaldialign/internal/symbols"
	"kaldialign/internal/textgrid"
)

func runManifest(_ context.Context, run *Run) error {
	m, err := manifest.Scan(run.WavDir)
	if err != nil {
		marker := services.ErrValidation
		if errors.Is(err, fs.ErrNotExist) {
			marker = services.ErrNotFound
		}
		return services.Wrap(marker, StageManifest, "scan audio", run.WavDir, err)
	}
	if err := m.Write(run.Data); err != nil {
		return services.Wrap(services.ErrExternalTool, StageManifest, "write manifest", "", err)
	}
	run.Manifest = m
	run.Logger.Info("audio manifest written",
		logging.Int("utterances", m.Len()),
		logging.String("wav_scp", run.Data.Path(kaldi.WavSCP)),
	)
	return nil
}

func runMFCC(ctx context.Context, run *Run) error {
	return run.exec(ctx, run.Toolkit.ComputeMFCC(run.Data), nil)
}

func runIvectors(ctx context.Context, run *Run) error {
	return run.exec(ctx, run.Toolkit.ExtractIvectors(run.Data), nil)
}

// runDecode writes every non-LOG stderr line of the decoder to <data>/text
// and echoes it to the run output.
func runDecode(ctx context.Context, run *Run) error {
	path := run.Data.Path(kaldi.TranscriptFile)
	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, StageDecode, "create transcript", path, err)
	}
	w := bufio.NewWriter(file)
	var (
		lines    int
		writeErr error
	)
	execErr := run.exec(ctx, run.Toolkit.Decode(run.Data), func(line kaldi.Line) {
		text, ok := kaldi.TranscriptLine(line)
		if !ok {
			run.logLine(line)
			return
		}
		lines++
		if _, err := fmt.Fprintln(w, text); err != nil && writeErr == nil {
			writeErr = err
		}
		if run.Output != nil {
			fmt.Fprintln(run.Output, text)
		}
	})
	if err := w.Flush(); err != nil && writeErr == nil {
		writeErr = err
	}
	if err := file.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if execErr != nil {
		return execErr
	}
	if writeErr != nil {
		return services.Wrap(services.ErrExternalTool, StageDecode, "write transcript", path, writeErr)
	}
	run.Logger.Info("transcript written",
		logging.String("transcript_path", path),
		logging.Int("transcript_lines", lines),
	)
	return nil
}

func runPhoneCTM(ctx context.Context, run *Run) error {
	if err := run.exec(ctx, run.Toolkit.AliToPhones(run.Data), nil); err != nil {
		return err
	}
	path := run.Data.Path(kaldi.PhoneCTM)
	n, err := symbols.ConvertPhones(path, run.Config.Model.Phones, run.Config.Alignment.StripPhonePositions)
	if err != nil {
		return services.Wrap(services.ErrValidation, StagePhoneCTM, "convert phone ids", "", err)
	}
	run.Logger.Info("phone ctm converted",
		logging.String("ctm_path", path),
		logging.Int("entries", n),
		logging.Bool("strip_positions", run.Config.Alignment.StripPhonePositions),
	)
	return nil
}

func runWordCTM(ctx context.Context, run *Run) error {
	if err := run.pipe(ctx, run.Toolkit.WordCTMChain(run.Data)); err != nil {
		return err
	}
	path := run.Data.Path(kaldi.WordCTM)
	n, err := symbols.ConvertWords(path, run.Config.Model.Words)
	if err != nil {
		return services.Wrap(services.ErrValidation, StageWordCTM, "convert word ids", "", err)
	}
	run.Logger.Info("word ctm converted",
		logging.String("ctm_path", path),
		logging.Int("entries", n),
	)
	return nil
}

func runTextGrid(_ context.Context, run *Run) error {
	m := run.Manifest
	if m == nil {
		loaded, err := manifest.Load(run.Data)
		if err != nil {
			return services.Wrap(services.ErrValidation, StageTextGrid, "load manifest", "", err)
		}
		m = loaded
	}
	paths, err := textgrid.Convert(m, run.Data)
	run.TextGrids = paths
	if err != nil {
		return services.Wrap(services.ErrValidation, StageTextGrid, "write textgrids", "", err)
	}
	run.Logger.Info("textgrids written",
		logging.String("textgrid_dir", run.Data.Path(kaldi.TextGridDir)),
		logging.Int("textgrids", len(paths)),
	)
	return nil
}

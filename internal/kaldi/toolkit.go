package kaldi

import (
	"path/filepath"
	"strconv"
	"strings"

	"kaldialign/internal/config"
	"kaldialign/internal/deps"
)

// Program locations relative to <kaldi_root>/src, or to the recipe directory for scripts.
const (
	ComputeMFCCFeats         = "featbin/compute-mfcc-feats"
	NNet3LatgenFaster        = "nnet3bin/nnet3-latgen-faster"
	AliToPhones              = "bin/ali-to-phones"
	LatticeAlignWordsLexicon = "latbin/lattice-align-words-lexicon"
	Lattice1Best             = "latbin/lattice-1best"
	NBestToCTM               = "latbin/nbest-to-ctm"
	ExtractIvectorsScript    = "steps/online/nnet2/extract_ivectors.sh"
)

// Toolkit renders command lines for one Kaldi installation and model bundle.
type Toolkit struct {
	srcDir       string
	recipeDir    string
	model        config.Model
	alignLexicon string
	decode       config.Decode
	frameShift   float64
}

// NewToolkit captures the toolkit, model, decode and alignment settings of cfg.
func NewToolkit(cfg *config.Config) *Toolkit {
	return &Toolkit{
		srcDir:       cfg.SrcDir(),
		recipeDir:    cfg.Toolkit.RecipeDir,
		model:        cfg.Model,
		alignLexicon: cfg.AlignLexicon(),
		decode:       cfg.Decode,
		frameShift:   cfg.Alignment.FrameShift,
	}
}

// RecipeDir is the working directory for every command.
func (t *Toolkit) RecipeDir() string { return t.recipeDir }

// Binary resolves a program path under <kaldi_root>/src.
func (t *Toolkit) Binary(rel string) string {
	return filepath.Join(t.srcDir, filepath.FromSlash(rel))
}

// Script resolves a recipe script path.
func (t *Toolkit) Script(rel string) string {
	return filepath.Join(t.recipeDir, filepath.FromSlash(rel))
}

func (t *Toolkit) command(binary string, args ...string) Command {
	return Command{Binary: binary, Args: args, Dir: t.recipeDir}
}

// ComputeMFCC extracts high-resolution MFCC features for every utterance in wav.scp.
func (t *Toolkit) ComputeMFCC(data DataDir) Command {
	return t.command(t.Binary(ComputeMFCCFeats),
		"--config="+t.model.MFCCConfig,
		"scp:"+data.Path(WavSCP),
		"ark,scp:"+data.Path(FeatsArk)+","+data.Path(FeatsSCP),
	)
}

// ExtractIvectors runs the online i-vector extraction script with a single job.
func (t *Toolkit) ExtractIvectors(data DataDir) Command {
	return t.command(t.Script(ExtractIvectorsScript),
		"--nj", "1",
		data.String(),
		t.model.LangDir,
		t.model.IvectorExtractor,
		data.Path(IvectorsDir),
	)
}

// Decode runs the nnet3 decoder producing a text lattice archive and the best-path alignment.
func (t *Toolkit) Decode(data DataDir) Command {
	d := t.decode
	return t.command(t.Binary(NNet3LatgenFaster),
		"--print-args=0",
		"--online-ivectors=scp:"+data.Path(IvectorsSCP),
		"--online-ivector-period="+strconv.Itoa(d.OnlineIvectorPeriod),
		"--frame-subsampling-factor="+strconv.Itoa(d.FrameSubsamplingFactor),
		"--max-active="+strconv.Itoa(d.MaxActive),
		"--beam="+formatFloat(d.Beam),
		"--lattice-beam="+formatFloat(d.LatticeBeam),
		"--acoustic-scale="+formatFloat(d.AcousticScale),
		"--word-symbol-table="+t.model.Words,
		t.model.Model,
		t.model.Graph,
		"ark:"+data.Path(FeatsArk),
		"ark,t:"+data.Path(LatticesArk),
		"ark:/dev/null",
		"ark:"+data.Path(AlignmentArk),
	)
}

// AliToPhones writes the phone-level CTM from the decoder alignment.
func (t *Toolkit) AliToPhones(data DataDir) Command {
	return t.command(t.Binary(AliToPhones),
		"--frame-shift="+formatFloat(t.frameShift),
		"--ctm-output",
		t.model.Model,
		"ark:"+data.Path(AlignmentArk),
		data.Path(PhoneCTM),
	)
}

// WordCTMChain returns the three commands that word-align the lattices, take
// the one-best path and write the word-level CTM.
func (t *Toolkit) WordCTMChain(data DataDir) []Command {
	return []Command{
		t.command(t.Binary(LatticeAlignWordsLexicon),
			t.alignLexicon,
			t.model.Model,
			"ark:"+data.Path(LatticesArk),
			"ark:-",
		),
		t.command(t.Binary(Lattice1Best), "ark:-", "ark:-"),
		t.command(t.Binary(NBestToCTM),
			"--frame-shift="+formatFloat(t.frameShift),
			"ark:-",
			data.Path(WordCTM),
		),
	}
}

// Requirements lists every program the pipeline invokes, keyed by stage.
func (t *Toolkit) Requirements() []deps.Requirement {
	return []deps.Requirement{
		{Name: "compute-mfcc-feats", Command: t.Binary(ComputeMFCCFeats), Stage: "mfcc", Description: "MFCC feature extraction"},
		{Name: "extract_ivectors.sh", Command: t.Script(ExtractIvectorsScript), Stage: "ivectors", Description: "Online i-vector extraction"},
		{Name: "nnet3-latgen-faster", Command: t.Binary(NNet3LatgenFaster), Stage: "decode", Description: "nnet3 lattice decoder"},
		{Name: "ali-to-phones", Command: t.Binary(AliToPhones), Stage: "phone_ctm", Description: "Phone-level CTM"},
		{Name: "lattice-align-words-lexicon", Command: t.Binary(LatticeAlignWordsLexicon), Stage: "word_ctm", Description: "Word alignment of lattices"},
		{Name: "lattice-1best", Command: t.Binary(Lattice1Best), Stage: "word_ctm", Description: "Best path extraction"},
		{Name: "nbest-to-ctm", Command: t.Binary(NBestToCTM), Stage: "word_ctm", Description: "Word-level CTM"},
	}
}

// formatFloat renders v with at least one decimal place (15 -> "15.0").
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

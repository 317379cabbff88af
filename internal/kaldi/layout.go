package kaldi

import "path/filepath"

// Files the pipeline creates inside the data directory.
const (
	WavSCP         = "wav.scp"
	Utt2Spk        = "utt2spk"
	Spk2Utt        = "spk2utt"
	FeatsArk       = "feats.ark"
	FeatsSCP       = "feats.scp"
	IvectorsDir    = "ivectors"
	IvectorsSCP    = "ivectors/ivector_online.scp"
	LatticesArk    = "lattices.ark"
	AlignmentArk   = "align.ali"
	TranscriptFile = "text"
	PhoneCTM       = "phonelvl.ctm"
	WordCTM        = "wordlvl.ctm"
	TextGridDir    = "tg"
)

// DataDir is an absolute Kaldi data directory.
type DataDir string

// Path joins name onto the data directory.
func (d DataDir) Path(name string) string {
	return filepath.Join(string(d), filepath.FromSlash(name))
}

// String returns the directory path.
func (d DataDir) String() string { return string(d) }

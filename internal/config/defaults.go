package config

const (
	defaultConfigPath             = "~/.config/kaldialign/config.toml"
	defaultKaldiRoot              = "~/kaldi"
	defaultRecipeSubdir           = "egs/aspire/s5"
	defaultMFCCConfig             = "conf/mfcc_hires.conf"
	defaultLangDir                = "data/lang_pp_test"
	defaultIvectorExtractor       = "exp/tdnn_7b_chain_online/ivector_extractor"
	defaultPhones                 = "exp/tdnn_7b_chain_online/phones.txt"
	defaultWords                  = "exp/tdnn_7b_chain_online/graph_pp/words.txt"
	defaultModel                  = "exp/tdnn_7b_chain_online/final.mdl"
	defaultGraph                  = "exp/tdnn_7b_chain_online/graph_pp/HCLG.fst"
	defaultDataDir                = "data/alignme"
	defaultStateDir               = "~/.local/share/kaldialign"
	defaultLogDir                 = "~/.local/share/kaldialign/logs"
	defaultOnlineIvectorPeriod    = 10
	defaultFrameSubsamplingFactor = 3
	defaultMaxActive              = 7000
	defaultBeam                   = 15.0
	defaultLatticeBeam            = 6.0
	defaultAcousticScale          = 1.0
	defaultFrameShift             = 0.03
	defaultPlaybackBinary         = "praat"
	defaultPlaybackMode           = PlaybackAsk
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Playback modes.
const (
	PlaybackAsk    = "ask"
	PlaybackAlways = "always"
	PlaybackNever  = "never"
)

// Default returns a Config populated with repository defaults. Toolkit paths
// are left empty so normalization can apply the KALDI_ROOT fallback.
func Default() Config {
	return Config{
		Model: Model{
			MFCCConfig:       defaultMFCCConfig,
			LangDir:          defaultLangDir,
			IvectorExtractor: defaultIvectorExtractor,
			Phones:           defaultPhones,
			Words:            defaultWords,
			Model:            defaultModel,
			Graph:            defaultGraph,
		},
		Decode: Decode{
			OnlineIvectorPeriod:    defaultOnlineIvectorPeriod,
			FrameSubsamplingFactor: defaultFrameSubsamplingFactor,
			MaxActive:              defaultMaxActive,
			Beam:                   defaultBeam,
			LatticeBeam:            defaultLatticeBeam,
			AcousticScale:          defaultAcousticScale,
		},
		Alignment: Alignment{
			FrameShift:          defaultFrameShift,
			StripPhonePositions: true,
		},
		Paths: Paths{
			DataDir:  defaultDataDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Playback: Playback{
			Binary: defaultPlaybackBinary,
			Mode:   defaultPlaybackMode,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}

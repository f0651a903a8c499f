package config

const (
	defaultWorkDir          = "~/.local/share/vidchunk/work"
	defaultLogDir           = "~/.local/share/vidchunk/logs"
	defaultStateDir         = "~/.local/share/vidchunk/state"
	defaultModelDir         = "~/.local/share/vidchunk/model"
	defaultFPS              = 2.0
	defaultWindowSeconds    = 0.5
	defaultImageFormat      = "jpg"
	defaultWorkers          = 1
	defaultFFmpeg           = "ffmpeg"
	defaultFFprobe          = "ffprobe"
	defaultLanguage         = "en"
	defaultBlockFrames      = 4000
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultAlignmentPolicy  = AlignmentTruncate
	defaultWindowFailure    = WindowFailureAbort
	maxWorkers              = 64
	maxWindowSeconds        = 60.0
	defaultToolTimeoutSecs  = 0
	defaultTranscriptionOn  = true
	defaultSinglePassDecode = true
)

// Alignment policies.
const (
	AlignmentTruncate = "truncate"
	AlignmentStrict   = "strict"
)

// Window failure policies.
const (
	WindowFailureAbort = "abort"
	WindowFailureSkip  = "skip"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Extraction: Extraction{
			FPS:             defaultFPS,
			WindowSeconds:   defaultWindowSeconds,
			ImageFormat:     defaultImageFormat,
			Workers:         defaultWorkers,
			SinglePass:      defaultSinglePassDecode,
			AlignmentPolicy: defaultAlignmentPolicy,
			WindowFailure:   defaultWindowFailure,
		},
		Tools: Tools{
			FFmpeg:         defaultFFmpeg,
			FFprobe:        defaultFFprobe,
			TimeoutSeconds: defaultToolTimeoutSecs,
		},
		Transcription: Transcription{
			Enabled:     defaultTranscriptionOn,
			ModelDir:    defaultModelDir,
			Language:    defaultLanguage,
			BlockFrames: defaultBlockFrames,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

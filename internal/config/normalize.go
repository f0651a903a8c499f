package config

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeTools()
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeLogging()
	return c.normalizeMetrics()
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	c.Extraction.ImageFormat = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Extraction.ImageFormat)), ".")
	if c.Extraction.ImageFormat == "" {
		c.Extraction.ImageFormat = defaultImageFormat
	}
	if c.Extraction.Workers == 0 {
		c.Extraction.Workers = defaultWorkers
	}
	c.Extraction.AlignmentPolicy = strings.ToLower(strings.TrimSpace(c.Extraction.AlignmentPolicy))
	if c.Extraction.AlignmentPolicy == "" {
		c.Extraction.AlignmentPolicy = defaultAlignmentPolicy
	}
	c.Extraction.WindowFailure = strings.ToLower(strings.TrimSpace(c.Extraction.WindowFailure))
	if c.Extraction.WindowFailure == "" {
		c.Extraction.WindowFailure = defaultWindowFailure
	}
}

func (c *Config) normalizeTools() {
	if value, ok := os.LookupEnv("VIDCHUNK_FFMPEG"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFmpeg = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("VIDCHUNK_FFPROBE"); ok && strings.TrimSpace(value) != "" {
		c.Tools.FFprobe = strings.TrimSpace(value)
	}
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	if c.Tools.FFmpeg == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	if c.Tools.FFprobe == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
}

func (c *Config) normalizeTranscription() error {
	if value, ok := os.LookupEnv("VIDCHUNK_MODEL_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Transcription.ModelDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Transcription.ModelDir) == "" {
		c.Transcription.ModelDir = defaultModelDir
	}
	var err error
	if c.Transcription.ModelDir, err = expandPath(c.Transcription.ModelDir); err != nil {
		return fmt.Errorf("transcription.model_dir: %w", err)
	}

	lang := strings.TrimSpace(c.Transcription.Language)
	if lang == "" {
		lang = defaultLanguage
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("transcription.language: invalid tag %q: %w", lang, err)
	}
	c.Transcription.Language = tag.String()

	if c.Transcription.BlockFrames == 0 {
		c.Transcription.BlockFrames = defaultBlockFrames
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	if strings.TrimSpace(c.Metrics.Textfile) == "" {
		c.Metrics.Textfile = ""
		return nil
	}
	var err error
	if c.Metrics.Textfile, err = expandPath(c.Metrics.Textfile); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateExtraction() error {
	e := c.Extraction
	if math.IsNaN(e.FPS) || math.IsInf(e.FPS, 0) || e.FPS <= 0 {
		return fmt.Errorf("extraction.fps must be positive, got %v", e.FPS)
	}
	if math.IsNaN(e.WindowSeconds) || e.WindowSeconds <= 0 {
		return fmt.Errorf("extraction.window_seconds must be positive, got %v", e.WindowSeconds)
	}
	if e.WindowSeconds > maxWindowSeconds {
		return fmt.Errorf("extraction.window_seconds must be at most %v, got %v", maxWindowSeconds, e.WindowSeconds)
	}
	if e.Workers < 1 || e.Workers > maxWorkers {
		return fmt.Errorf("extraction.workers must be between 1 and %d, got %d", maxWorkers, e.Workers)
	}
	switch e.ImageFormat {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("extraction.image_format: unsupported value %q", e.ImageFormat)
	}
	switch e.AlignmentPolicy {
	case AlignmentTruncate, AlignmentStrict:
	default:
		return fmt.Errorf("extraction.alignment_policy must be %q or %q, got %q", AlignmentTruncate, AlignmentStrict, e.AlignmentPolicy)
	}
	switch e.WindowFailure {
	case WindowFailureAbort, WindowFailureSkip:
	default:
		return fmt.Errorf("extraction.window_failure must be %q or %q, got %q", WindowFailureAbort, WindowFailureSkip, e.WindowFailure)
	}
	return nil
}

func (c *Config) validateTools() error {
	if c.Tools.TimeoutSeconds < 0 {
		return errors.New("tools.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	if c.Transcription.BlockFrames <= 0 {
		return errors.New("transcription.block_frames must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

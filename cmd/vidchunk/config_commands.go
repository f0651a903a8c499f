package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vidchunk/internal/config"
	"vidchunk/internal/services"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand(ctx))

	return configCmd
}

func newConfigInitCommand(ctx *commandContext) *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		Long: "Write the annotated sample configuration. The destination is --path, then the\n" +
			"global --config, then ~/.config/vidchunk/config.toml.",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := configInitTarget(targetPath, ctx.explicitConfigPath())
			if err != nil {
				return err
			}

			_, statErr := os.Stat(target)
			switch {
			case statErr == nil && !overwrite:
				return services.Wrap(services.ErrConfiguration, "config", "init",
					fmt.Sprintf("%s already exists (use --overwrite to replace it)", target), nil)
			case statErr != nil && !errors.Is(statErr, fs.ErrNotExist):
				return fmt.Errorf("check config path: %w", statErr)
			}

			if err := config.CreateSample(target); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set transcription.model_dir to an unpacked Vosk model before running vidchunk.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

// configInitTarget picks where `config init` writes, expanding ~.
func configInitTarget(pathFlag, globalConfig string) (string, error) {
	for _, candidate := range []string{pathFlag, globalConfig} {
		if candidate = strings.TrimSpace(candidate); candidate == "" {
			continue
		}
		expanded, err := config.ExpandPath(candidate)
		if err != nil {
			return "", fmt.Errorf("resolve config path: %w", err)
		}
		return expanded, nil
	}
	target, err := config.DefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("determine default config path: %w", err)
	}
	return target, nil
}

type configSetting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// effectiveSettings lists the values a run would use after defaults and
// environment overrides are applied.
func effectiveSettings(cfg *config.Config) []configSetting {
	ftoa := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	textfile := cfg.Metrics.Textfile
	if textfile == "" {
		textfile = "(disabled)"
	}
	return []configSetting{
		{"paths.work_dir", cfg.Paths.WorkDir},
		{"paths.state_dir", cfg.Paths.StateDir},
		{"paths.log_dir", cfg.Paths.LogDir},
		{"extraction.fps", ftoa(cfg.Extraction.FPS)},
		{"extraction.window_seconds", ftoa(cfg.Extraction.WindowSeconds)},
		{"extraction.image_format", cfg.Extraction.ImageFormat},
		{"extraction.workers", strconv.Itoa(cfg.Extraction.Workers)},
		{"extraction.single_pass", strconv.FormatBool(cfg.Extraction.SinglePass)},
		{"extraction.alignment_policy", cfg.Extraction.AlignmentPolicy},
		{"extraction.window_failure", cfg.Extraction.WindowFailure},
		{"tools.ffmpeg", cfg.FFmpegBinary()},
		{"tools.ffprobe", cfg.FFprobeBinary()},
		{"tools.timeout", cfg.ToolTimeout().String()},
		{"transcription.enabled", strconv.FormatBool(cfg.Transcription.Enabled)},
		{"transcription.model_dir", cfg.Transcription.ModelDir},
		{"transcription.language", cfg.Transcription.Language},
		{"logging.level", cfg.Logging.Level},
		{"metrics.textfile", textfile},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration and print the effective settings",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, resolved, exists, err := config.Load(ctx.explicitConfigPath())
			if err != nil {
				if !errors.Is(err, services.ErrConfiguration) && !errors.Is(err, services.ErrValidation) {
					err = services.Wrap(services.ErrConfiguration, "config", "validate", "", err)
				}
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			settings := effectiveSettings(cfg)
			if jsonOut {
				return writeJSON(cmd, "config", struct {
					Path     string          `json:"path"`
					Exists   bool            `json:"exists"`
					Settings []configSetting `json:"settings"`
				}{resolved, exists, settings})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			rows := make([][]string, 0, len(settings))
			for _, s := range settings {
				rows = append(rows, []string{s.Key, s.Value})
			}
			fmt.Fprintln(out, renderTable([]tableColumn{col("Setting"), col("Value")}, rows))
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the effective settings as JSON")
	return cmd
}

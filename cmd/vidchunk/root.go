package main

import (
	"github.com/spf13/cobra"

	"vidchunk/internal/extraction"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWith()
}

// newRootCommandWith builds the command tree with extra engine options
// applied to every extraction.
func newRootCommandWith(engineOpts ...extraction.Option) *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)
	ctx.engineOpts = engineOpts

	rootCmd := &cobra.Command{
		Use:           "vidchunk",
		Short:         "Extract timestamped frame, audio and transcript chunks from video",
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
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newExtractCommand(ctx))
	rootCmd.AddCommand(newRunsCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newCheckCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))

	return rootCmd
}

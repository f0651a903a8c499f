package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vidchunk/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, directories and the speech model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			if ctx.configPath != "" {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			}
			lines, failed := preflightLines(preflight.RunAll(cmd.Context(), cfg), colorize)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if failed {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
}

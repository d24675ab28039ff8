package main

import (
	"github.com/spf13/cobra"

	"github.com/KeiShiba/tiktok-sound-video-analytics/internal/logger"
)

func newRootCommand() *cobra.Command {
	return newRootCommandWith(&commandContext{})
}

func newRootCommandWith(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "soundctl",
		Short:         "Fetch and inspect the videos that use a sound",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger.Configure(cfg.LogLevel, cfg.Environment)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newFetchCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	return rootCmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xiaot623/hati/internal/service"
)

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "hati",
		Short:         "Hati: a mood-aware conversational companion",
		Long:          "hati routes each message to a music, entertainment, relaxation or reflection specialist and answers in a warm, personalized voice.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to a config file (yaml, json or toml)")

	open := func(cmd *cobra.Command) (*app, error) {
		return newApp(cmd.Context(), configFile)
	}

	rootCmd.AddCommand(
		newServeCmd(open),
		newSweepCmd(open),
		newAnalyticsCmd(open),
		newModelsCmd(open),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), service.Version)
			return err
		},
	}
}

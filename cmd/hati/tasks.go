package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSweepCmd(open func(*cobra.Command) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired cache entries once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			deleted, err := a.svc.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired cache entries\n", deleted)
			return err
		},
	}
}

func newAnalyticsCmd(open func(*cobra.Command) (*app, error)) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "analytics <session-id>",
		Short: "Print a session's mood analytics as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.svc.Analytics(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "look-back window in days")
	return cmd
}

func newModelsCmd(open func(*cobra.Command) (*app, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the completion backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			models, err := a.backend.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), m.ID); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

package main

import (
	"github.com/okian/datemaker/internal/simulation"
	"github.com/okian/datemaker/pkg/logger"
	"github.com/spf13/cobra"
)

func newSimulateCommand(root *rootOptions) *cobra.Command {
	cfg := simulation.DefaultConfig()
	var verbose bool

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play one event end to end in process",
		Long: `Create an event with generated participants and run it through
confirmation, pairing and every dating round on an accelerated clock.
A bot answers the commands: it confirms, reports ready and likes partners.

Example:
  datemaker simulate --participants 40 --capacity 10
  datemaker simulate --speed 1200 --output reports/run.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(); err != nil {
				return err
			}
			level := "info"
			if verbose || root.debug {
				level = "debug"
			}
			_ = logger.SetLevelString(level)
			cfg.Logger = logger.Named("simulation")

			_, err := simulation.Run(cmd.Context(), cfg)
			return err
		},
	}

	cmd.Flags().IntVar(&cfg.Participants, "participants", cfg.Participants, "number of registered users")
	cmd.Flags().IntVar(&cfg.GroupCapacity, "capacity", cfg.GroupCapacity, "group size limit")
	cmd.Flags().Float64Var(&cfg.ConfirmRate, "confirm-rate", cfg.ConfirmRate, "probability a user confirms")
	cmd.Flags().Float64Var(&cfg.LikeRate, "like-rate", cfg.LikeRate, "probability a user likes a partner")
	cmd.Flags().Float64Var(&cfg.Speed, "speed", cfg.Speed, "clock speed-up over wall time")
	cmd.Flags().IntVar(&cfg.Consumers, "consumers", cfg.Consumers, "concurrent bot consumers")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "upper bound on the run")
	cmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", "", "write a JSON report to this file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")

	return cmd
}

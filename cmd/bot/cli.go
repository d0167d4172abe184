package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tweetbot/internal/app"
	"tweetbot/internal/config"
)

func newCLI(version string) *cobra.Command {
	var opts app.Options

	run := &cobra.Command{
		Use:   "run",
		Short: "Publish the next message now and then on every interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.New(opts)
			if err != nil {
				return err
			}
			return a.Run(cmd.Context())
		},
	}

	root := &cobra.Command{
		Use:           "tweetbot",
		Short:         "Post a rotating list of messages to X/Twitter",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          run.RunE,
	}
	root.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to config (.json, .yaml or .yml); defaults only when empty")
	root.PersistentFlags().StringVar(&opts.EnvFile, "env-file", config.DefaultEnvFile, "file with TWITTER_* credentials, loaded when present")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the content list, the stored cursor and the next message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := app.Inspect(cmd.Context(), opts)
			if err != nil {
				return err
			}
			app.WriteReport(cmd.OutOrStdout(), r)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset [index]",
		Short: "Store a new cursor (default 0) so the next tick posts that message",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("index %q: %w", args[0], err)
				}
				idx = n
			}
			if err := app.Reset(cmd.Context(), opts, idx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cursor set to %d\n", idx)
			return nil
		},
	}

	root.AddCommand(run, status, reset)
	return root
}

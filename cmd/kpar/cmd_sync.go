package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "sync [path]",
		Short: "Install the project's missing dependencies into the environment",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			e, err := openEnv(envPath)
			if err != nil {
				return err
			}
			builder, err := newBuilder(envPath)
			if err != nil {
				return err
			}
			builder.Env = e
			if err := builder.Sync(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "environment up to date")
			return nil
		},
	}
	cmd.Flags().StringVar(&envPath, "env", "", "environment root (defaults to the configured one)")
	return cmd
}

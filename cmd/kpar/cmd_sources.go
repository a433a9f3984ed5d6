package main

import (
	"fmt"

	"github.com/kparproject/kpar/pkg/resolve"
	"github.com/spf13/cobra"
)

func newSourcesCmd() *cobra.Command {
	var (
		includeDeps bool
		includeStd  bool
		envPath     string
	)
	cmd := &cobra.Command{
		Use:   "sources [path]",
		Short: "List the project's source files in resolution order",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			builder, err := newBuilder(envPath)
			if err != nil {
				return err
			}
			sources, err := builder.Sources(cmd.Context(), path, resolve.SourceOptions{
				IncludeDeps: includeDeps,
				IncludeStd:  includeStd,
			})
			if err != nil {
				return err
			}
			for _, s := range sources {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&includeDeps, "deps", false, "include dependency sources")
	cmd.Flags().BoolVar(&includeStd, "std", false, "include the standard library sources")
	cmd.Flags().StringVar(&envPath, "env", "", "environment root (defaults to the configured one)")
	return cmd
}

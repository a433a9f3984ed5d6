package main

import (
	"fmt"

	"github.com/kparproject/kpar/pkg/project"
	"github.com/spf13/cobra"
)

func newIncludeCmd() *cobra.Command {
	var (
		noChecksum   bool
		indexSymbols bool
	)
	cmd := &cobra.Command{
		Use:   "include <files...>",
		Short: "Record source files in the project metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := project.IncludeOptions{
				Checksum:     !noChecksum,
				IndexSymbols: indexSymbols,
			}
			for _, path := range args {
				if err := project.Include(".", path, opts); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "included %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noChecksum, "no-checksum", false, "skip checksum computation")
	cmd.Flags().BoolVar(&indexSymbols, "index", false, "index top-level package symbols")
	return cmd
}

func newExcludeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <files...>",
		Short: "Remove source files from the project metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := project.Exclude(".", path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "excluded %s\n", path)
			}
			return nil
		},
	}
}

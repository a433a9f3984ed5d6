package main

import (
	"fmt"

	"github.com/kparproject/kpar/pkg/project"
	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "add <iri> [constraint]",
		Short: "Add a dependency to the project manifest",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			constraint := ""
			if len(args) > 1 {
				constraint = args[1]
			}
			if err := project.AddUsage(".", args[0], constraint, replace); err != nil {
				return err
			}
			if constraint == "" {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "added %s %s\n", args[0], constraint)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "replace the constraint of an existing dependency")
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <iri>",
		Short: "Remove a dependency from the project manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := project.RemoveUsage(".", args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

package main

import (
	"fmt"
	"path/filepath"

	"github.com/kparproject/kpar/pkg/project"
	"github.com/spf13/cobra"
)

func newNewCmd() *cobra.Command {
	var (
		name    string
		version string
	)
	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create a project directory with a fresh manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if name == "" {
				name = filepath.Base(abs)
			}
			if err := project.New(abs, name, version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %s %s in %s\n", name, version, abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to the directory name)")
	cmd.Flags().StringVar(&version, "project-version", "0.1.0", "initial project version")
	return cmd
}

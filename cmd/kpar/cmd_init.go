package main

import (
	"fmt"
	"path/filepath"

	"github.com/kparproject/kpar/pkg/project"
	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var (
		name    string
		version string
		force   bool
	)
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a project manifest in an existing directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			abs, err := filepath.Abs(path)
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			if name == "" {
				name = filepath.Base(abs)
			}
			if err := project.Init(abs, name, version, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized project %s %s in %s\n", name, version, abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "project name (defaults to the directory name)")
	cmd.Flags().StringVar(&version, "project-version", "0.1.0", "initial project version")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing manifest")
	return cmd
}

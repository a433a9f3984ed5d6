package main

import (
	"fmt"

	"github.com/kparproject/kpar/pkg/project"
	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info [path]",
		Short: "Print a summary of the project manifest",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			manifest, metadata, err := project.Load(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:    %s\n", manifest.Name)
			fmt.Fprintf(out, "version: %s\n", manifest.Version)
			if manifest.Description != "" {
				fmt.Fprintf(out, "about:   %s\n", manifest.Description)
			}
			if manifest.License != "" {
				fmt.Fprintf(out, "license: %s\n", manifest.License)
			}
			fmt.Fprintf(out, "created: %s\n", metadata.Created)
			if len(manifest.Usage) > 0 {
				fmt.Fprintln(out, "usage:")
				for _, u := range manifest.Usage {
					if u.VersionConstraint != "" {
						fmt.Fprintf(out, "  %s %s\n", u.Resource, u.VersionConstraint)
					} else {
						fmt.Fprintf(out, "  %s\n", u.Resource)
					}
				}
			}
			if sources := metadata.SourcePaths(true); len(sources) > 0 {
				fmt.Fprintln(out, "sources:")
				for _, s := range sources {
					fmt.Fprintf(out, "  %s\n", s)
				}
			}
			return nil
		},
	}
}

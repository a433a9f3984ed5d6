package main

import (
	"fmt"
	"strings"

	"github.com/kparproject/kpar/pkg/kpar"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var (
		output string
		method string
	)
	cmd := &cobra.Command{
		Use:   "build [path]",
		Short: "Pack the project into a .kpar archive",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			m, err := kpar.ParseMethod(method)
			if err != nil {
				return fmt.Errorf("%w (one of %s)", err, strings.Join(methodNames(), ", "))
			}
			archive, err := kpar.Pack(path, output, m)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packed %d entries into %s (%s)\n",
				len(archive.Entries), archive.Path, archive.Method)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "project.kpar", "archive output path")
	cmd.Flags().StringVar(&method, "method", kpar.Zstd.String(), "compression method")
	return cmd
}

func methodNames() []string {
	methods := kpar.Methods()
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.String()
	}
	return out
}

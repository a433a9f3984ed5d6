package main

import (
	"fmt"
	"path/filepath"

	"github.com/kparproject/kpar/pkg/resolve"
	"github.com/spf13/cobra"
)

func newLockCmd() *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "lock [path]",
		Short: "Pin the resolved dependency graph to a lockfile",
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
			lock, err := builder.Lock(cmd.Context(), path)
			if err != nil {
				return err
			}
			lockPath := filepath.Join(path, resolve.LockFileName)
			if err := resolve.WriteLockfile(lockPath, lock); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "locked %d projects in %s\n", len(lock.Projects), lockPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&envPath, "env", "", "environment root (defaults to the configured one)")
	return cmd
}

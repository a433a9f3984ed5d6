package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var verbose bool

func main() {
	root := &cobra.Command{
		Use:   "kpar",
		Short: "Package manager for model interchange projects",
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newNewCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newIncludeCmd())
	root.AddCommand(newExcludeCmd())
	root.AddCommand(newSourcesCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newLockCmd())
	root.AddCommand(newBuildCmd())
	root.AddCommand(newEnvCmd())
	root.AddCommand(newInfoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// cliLogger builds the logger used by commands. Quiet unless --verbose.
func cliLogger() *log.Logger {
	if !verbose {
		return log.New(io.Discard)
	}
	logger := log.New(os.Stderr)
	logger.SetLevel(log.DebugLevel)
	return logger
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "kpar 0.1.0-dev")
		},
	}
}

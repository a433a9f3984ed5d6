package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kparproject/kpar/pkg/config"
	"github.com/kparproject/kpar/pkg/env"
	"github.com/kparproject/kpar/pkg/index"
	"github.com/spf13/cobra"
)

func newEnvCmd() *cobra.Command {
	var envPath string
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Manage local project environments",
	}
	cmd.PersistentFlags().StringVar(&envPath, "env", "", "environment root (defaults to the configured one)")

	cmd.AddCommand(newEnvInitCmd(&envPath))
	cmd.AddCommand(newEnvInstallCmd(&envPath))
	cmd.AddCommand(newEnvUninstallCmd(&envPath))
	cmd.AddCommand(newEnvListCmd(&envPath))
	return cmd
}

func resolveEnvPath(envPath string) (string, error) {
	if envPath != "" {
		return envPath, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return "", err
	}
	return cfg.Environment, nil
}

func openEnv(envPath string) (*env.Environment, error) {
	path, err := resolveEnvPath(envPath)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("environment %s: %w (run `kpar env init` first)", path, env.ErrNotFound)
	}
	return env.Open(path, env.WithLogger(cliLogger())), nil
}

func newEnvInitCmd(envPath *string) *cobra.Command {
	var idempotent bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveEnvPath(*envPath)
			if err != nil {
				return err
			}
			if _, err := env.Init(path, idempotent, env.WithLogger(cliLogger())); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "initialized environment in %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&idempotent, "exists-ok", false, "succeed when the environment already exists")
	return cmd
}

func newEnvInstallCmd(envPath *string) *cobra.Command {
	var constraint string
	cmd := &cobra.Command{
		Use:   "install <iri> [source]",
		Short: "Install a project into the environment",
		Long: `Install a project into the environment.

With a source argument the project is taken from a local directory or
.kpar archive. Without one it is resolved against the configured
indexes and downloaded.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*envPath)
			if err != nil {
				return err
			}
			iri := args[0]

			if len(args) > 1 {
				dir, err := e.Install(iri, args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "installed %s in %s\n", iri, dir)
				return nil
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := index.NewClient(cfg.Indexes, index.Options{Logger: cliLogger()})
			if err != nil {
				return err
			}
			loc, err := client.Resolve(cmd.Context(), iri, constraint)
			if err != nil {
				return err
			}
			staging, err := os.MkdirTemp("", "kpar-install-*")
			if err != nil {
				return err
			}
			defer os.RemoveAll(staging)
			if err := client.Download(cmd.Context(), loc, staging); err != nil {
				return err
			}
			dir, err := e.Install(iri, staging)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "installed %s %s in %s\n", iri, loc.Version, dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&constraint, "constraint", "", "version constraint for index resolution")
	return cmd
}

func newEnvUninstallCmd(envPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <iri> <version>",
		Short: "Remove an installed project version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*envPath)
			if err != nil {
				return err
			}
			if err := e.Uninstall(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uninstalled %s %s\n", args[0], args[1])
			return nil
		},
	}
}

func newEnvListCmd(envPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*envPath)
			if err != nil {
				return err
			}
			entries, err := e.List()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, entry := range entries {
				fmt.Fprintf(w, "%s\t%s\n", entry.IRI, entry.Version)
			}
			return w.Flush()
		},
	}
}

package main

import (
	"os"

	"github.com/kparproject/kpar/pkg/config"
	"github.com/kparproject/kpar/pkg/env"
	"github.com/kparproject/kpar/pkg/index"
	"github.com/kparproject/kpar/pkg/resolve"
)

// newBuilder assembles a dependency resolver from the configuration.
// The environment is attached only when its root exists on disk, so
// commands keep working against bare indexes before `env init`.
func newBuilder(envPath string) (*resolve.Builder, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if envPath == "" {
		envPath = cfg.Environment
	}

	logger := cliLogger()
	builder := &resolve.Builder{Logger: logger}

	if _, err := os.Stat(envPath); err == nil {
		builder.Env = env.Open(envPath, env.WithLogger(logger))
	}

	client, err := index.NewClient(cfg.Indexes, index.Options{Logger: logger})
	if err != nil {
		return nil, err
	}
	builder.Index = client
	return builder, nil
}

package resolve

import (
	"context"
	"os"
	"path/filepath"

	"github.com/kparproject/kpar/pkg/project"
	"github.com/kparproject/kpar/pkg/stdlib"
)

// SourceOptions controls Sources.
type SourceOptions struct {
	// IncludeDeps walks the dependency graph and appends each
	// dependency's included files after the project's own.
	IncludeDeps bool
	// IncludeStd prepends the standard library sources.
	IncludeStd bool
	// StdRoot is where the standard library trees are materialized
	// when IncludeStd is set. A temp directory is used when empty.
	StdRoot string
}

// Sources lists the absolute paths of every source file of the project
// in projectDir, in a reproducible order: standard library sources (if
// requested), then the project's own included files in declared order,
// then dependency files depth-first in usage order. A dependency
// reached through several paths contributes its files once, at the
// position of its first visit.
func (b *Builder) Sources(ctx context.Context, projectDir string, opts SourceOptions) ([]string, error) {
	var out []string

	if opts.IncludeStd {
		stdSources, provided, err := stdSources(opts.StdRoot)
		if err != nil {
			return nil, err
		}
		out = append(out, stdSources...)
		if b.Provided == nil {
			b.Provided = make(map[string]bool, len(provided))
		}
		for _, iri := range provided {
			b.Provided[iri] = true
		}
	}

	if !opts.IncludeDeps {
		_, metadata, err := project.Load(projectDir)
		if err != nil {
			return nil, err
		}
		return append(out, nodeSources(&Node{Dir: projectDir, Metadata: metadata})...), nil
	}

	root, err := b.Build(ctx, projectDir)
	if err != nil {
		return nil, err
	}
	visited := make(map[*Node]bool)
	var walk func(n *Node)
	walk = func(n *Node) {
		if visited[n] {
			return
		}
		visited[n] = true
		out = append(out, nodeSources(n)...)
		for _, dep := range n.Deps {
			walk(dep)
		}
	}
	walk(root)
	return out, nil
}

// nodeSources returns the absolute paths of a node's included files in
// declared order.
func nodeSources(n *Node) []string {
	rels := n.Metadata.SourcePaths(true)
	out := make([]string, 0, len(rels))
	for _, rel := range rels {
		out = append(out, filepath.Join(n.Dir, filepath.FromSlash(rel)))
	}
	return out
}

// stdSources materializes the embedded standard library and returns its
// source paths plus the IRIs now satisfied locally.
func stdSources(root string) ([]string, []string, error) {
	if root == "" {
		dir, err := os.MkdirTemp("", "kpar-std-*")
		if err != nil {
			return nil, nil, err
		}
		root = dir
	}
	dirs, err := stdlib.Materialize(root)
	if err != nil {
		return nil, nil, err
	}
	projects, err := stdlib.Projects()
	if err != nil {
		return nil, nil, err
	}
	var sources []string
	provided := make([]string, 0, len(projects))
	for _, p := range projects {
		provided = append(provided, p.IRI)
		for _, rel := range p.Metadata.SourcePaths(true) {
			sources = append(sources, filepath.Join(dirs[p.IRI], filepath.FromSlash(rel)))
		}
	}
	return sources, provided, nil
}

// Sync installs every missing dependency of the project in projectDir
// into the builder's environment by building the full graph.
func (b *Builder) Sync(ctx context.Context, projectDir string) error {
	_, err := b.Build(ctx, projectDir)
	return err
}

// Package resolve builds dependency graphs over interchange projects
// and flattens them into ordered source file lists.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/kparproject/kpar/pkg/env"
	"github.com/kparproject/kpar/pkg/index"
	"github.com/kparproject/kpar/pkg/project"
)

// Node is one resolved project version in a dependency graph.
type Node struct {
	IRI      string // empty for the root project
	Version  string
	Dir      string
	Manifest *project.Manifest
	Metadata *project.Metadata
	Deps     []*Node
}

// Key identifies the node within a graph build.
func (n *Node) Key() string {
	return n.IRI + "@" + n.Version
}

// Builder resolves dependency graphs. The environment, when present, is
// consulted before any index; projects resolved via an index are
// installed into the environment when one is configured, otherwise they
// land in a builder-private cache directory. Concurrent fetches of the
// same (iri, constraint) pair are deduplicated.
type Builder struct {
	Env      *env.Environment
	Index    *index.Client
	Logger   *log.Logger
	Provided map[string]bool // IRIs treated as pre-resolved, contributing no node

	fetchGroup singleflight.Group

	mu       sync.Mutex
	nodes    map[string]*Node
	cacheDir string
}

func (b *Builder) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.New(io.Discard)
}

// Build resolves the dependency graph rooted at the project in
// projectDir. Diamond dependencies share a single node; a dependency
// path that revisits a project version currently being resolved fails
// with ErrCyclicDependency.
func (b *Builder) Build(ctx context.Context, projectDir string) (*Node, error) {
	manifest, metadata, err := project.Load(projectDir)
	if err != nil {
		return nil, err
	}
	root := &Node{
		Version:  manifest.Version,
		Dir:      projectDir,
		Manifest: manifest,
		Metadata: metadata,
	}
	active := map[string]bool{root.Key(): true}
	root.Deps, err = b.resolveUsages(ctx, manifest.Usage, active)
	if err != nil {
		return nil, err
	}
	return root, nil
}

func (b *Builder) resolveUsages(ctx context.Context, usages []project.Usage, active map[string]bool) ([]*Node, error) {
	var deps []*Node
	for _, u := range usages {
		if b.Provided[u.Resource] {
			b.logger().Debug("dependency pre-resolved", "iri", u.Resource)
			continue
		}
		dep, err := b.resolve(ctx, u.Resource, u.VersionConstraint, active)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

func (b *Builder) resolve(ctx context.Context, iri, constraint string, active map[string]bool) (*Node, error) {
	dir, err := b.locate(ctx, iri, constraint)
	if err != nil {
		return nil, err
	}
	manifest, metadata, err := project.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("dependency %s: %w", iri, err)
	}

	node := &Node{
		IRI:      iri,
		Version:  manifest.Version,
		Dir:      dir,
		Manifest: manifest,
		Metadata: metadata,
	}
	key := node.Key()
	if active[key] {
		return nil, fmt.Errorf("%w: %s", ErrCyclicDependency, key)
	}
	b.mu.Lock()
	if memo, ok := b.nodes[key]; ok {
		b.mu.Unlock()
		return memo, nil
	}
	b.mu.Unlock()

	childActive := make(map[string]bool, len(active)+1)
	for k := range active {
		childActive[k] = true
	}
	childActive[key] = true
	node.Deps, err = b.resolveUsages(ctx, manifest.Usage, childActive)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if memo, ok := b.nodes[key]; ok {
		node = memo
	} else {
		if b.nodes == nil {
			b.nodes = make(map[string]*Node)
		}
		b.nodes[key] = node
	}
	b.mu.Unlock()
	return node, nil
}

// locate finds (fetching if necessary) the directory holding the
// project for iri under constraint. At most one fetch per
// (iri, constraint) pair runs at a time; concurrent callers share its
// result.
func (b *Builder) locate(ctx context.Context, iri, constraint string) (string, error) {
	v, err, _ := b.fetchGroup.Do(iri+"\x00"+constraint, func() (any, error) {
		return b.locateOnce(ctx, iri, constraint)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (b *Builder) locateOnce(ctx context.Context, iri, constraint string) (string, error) {
	if dir, ok := localProjectDir(iri); ok {
		return dir, nil
	}

	if b.Env != nil {
		dir, err := b.Env.Lookup(iri, constraint)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, env.ErrNotFound) {
			return "", err
		}
	}

	if b.Index == nil {
		return "", fmt.Errorf("%w: %s not installed and no index configured", index.ErrResolutionFailed, iri)
	}
	loc, err := b.Index.Resolve(ctx, iri, constraint)
	if err != nil {
		return "", err
	}

	if b.Env != nil {
		staging, err := os.MkdirTemp("", "kpar-fetch-*")
		if err != nil {
			return "", err
		}
		defer os.RemoveAll(staging)
		if err := b.Index.Download(ctx, loc, staging); err != nil {
			return "", err
		}
		return b.Env.Install(iri, staging)
	}

	dir := filepath.Join(b.ensureCacheDir(), string(loc.Address), loc.Version+".kpar")
	if _, err := os.Stat(dir); err == nil {
		return dir, nil
	}
	if err := b.Index.Download(ctx, loc, dir); err != nil {
		return "", err
	}
	return dir, nil
}

func (b *Builder) ensureCacheDir() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cacheDir == "" {
		dir, err := os.MkdirTemp("", "kpar-cache-*")
		if err != nil {
			dir = filepath.Join(os.TempDir(), "kpar-cache")
		}
		b.cacheDir = dir
	}
	return b.cacheDir
}

// localProjectDir maps file IRIs onto filesystem project directories.
func localProjectDir(iri string) (string, bool) {
	if !strings.HasPrefix(iri, "file://") {
		return "", false
	}
	u, err := url.Parse(iri)
	if err != nil {
		return "", false
	}
	return filepath.FromSlash(u.Path), true
}

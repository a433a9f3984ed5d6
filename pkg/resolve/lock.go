package resolve

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/kparproject/kpar/pkg/env"
	"github.com/kparproject/kpar/pkg/project"
)

// LockFileName is the lockfile written next to the project manifest.
const LockFileName = "KparLock.toml"

// lockVersion is the lockfile schema version this build writes.
const lockVersion = "0.1"

// Lockfile pins a resolved dependency graph: every dependency with its
// exact version and content hash, so a later sync can reproduce the
// same set byte-for-byte.
type Lockfile struct {
	LockVersion string          `toml:"lock_version"`
	Projects    []LockedProject `toml:"project"`
}

// LockedProject is one pinned dependency.
type LockedProject struct {
	IRIs     []string `toml:"iris"`
	Version  string   `toml:"version"`
	Checksum string   `toml:"checksum"`
}

// Lock resolves the dependency graph of the project in projectDir and
// pins every dependency. Entries appear in first-visit depth-first
// order, the same order Sources lists them in, so the output is
// reproducible for identical inputs.
func (b *Builder) Lock(ctx context.Context, projectDir string) (*Lockfile, error) {
	root, err := b.Build(ctx, projectDir)
	if err != nil {
		return nil, err
	}

	lock := &Lockfile{LockVersion: lockVersion}
	visited := map[*Node]bool{root: true}
	var walk func(n *Node) error
	walk = func(n *Node) error {
		for _, dep := range n.Deps {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			sum, err := project.Hash(dep.Manifest, dep.Metadata)
			if err != nil {
				return fmt.Errorf("lock %s: %w", dep.IRI, err)
			}
			lock.Projects = append(lock.Projects, LockedProject{
				IRIs:     []string{dep.IRI},
				Version:  dep.Version,
				Checksum: sum,
			})
			if err := walk(dep); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return lock, nil
}

// WriteLockfile writes the lockfile atomically (temp then rename).
func WriteLockfile(path string, l *Lockfile) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(l); err != nil {
		return fmt.Errorf("encode lockfile: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-lock-*")
	if err != nil {
		return fmt.Errorf("write %s: tmpfile: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: close: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: rename: %w", path, err)
	}
	return nil
}

// ReadLockfile reads and validates a lockfile.
func ReadLockfile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var l Lockfile
	if err := toml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("parse lockfile %s: %w", path, err)
	}
	if l.LockVersion != lockVersion {
		return nil, fmt.Errorf("lockfile %s: unsupported lock_version %q", path, l.LockVersion)
	}
	return &l, nil
}

// Verify checks that every pinned project is installed in e with
// matching content.
func (l *Lockfile) Verify(e *env.Environment) error {
	for _, p := range l.Projects {
		var dir string
		var err error
		for _, iri := range p.IRIs {
			dir, err = e.Lookup(iri, p.Version)
			if err == nil {
				break
			}
		}
		if err != nil {
			return fmt.Errorf("locked project %v %s: %w", p.IRIs, p.Version, err)
		}
		manifest, metadata, err := project.Load(dir)
		if err != nil {
			return err
		}
		sum, err := project.Hash(manifest, metadata)
		if err != nil {
			return err
		}
		if sum != p.Checksum {
			return fmt.Errorf("locked project %v %s: installed content does not match lockfile checksum", p.IRIs, p.Version)
		}
	}
	return nil
}

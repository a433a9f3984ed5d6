package env

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kparproject/kpar/pkg/address"
	"github.com/kparproject/kpar/pkg/kpar"
	"github.com/kparproject/kpar/pkg/project"
)

// Install installs the project at source under iri. Source is either a
// project directory or a .kpar archive (archives are unpacked first).
// The installed tree lands at <address>/<version>.kpar/ and one ledger
// record is appended as the final step.
//
// Installing an (iri, version) pair that is already present with
// identical content is a no-op; with different content it fails with
// ErrVersionConflict. Returns the installed project directory.
func (e *Environment) Install(iri, source string) (string, error) {
	srcDir := source
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("install %s: source %s: %w", iri, source, err)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(source, ".kpar") {
			return "", fmt.Errorf("install %s: source %s is neither a directory nor a .kpar archive", iri, source)
		}
		staging, err := os.MkdirTemp("", "kpar-install-*")
		if err != nil {
			return "", fmt.Errorf("install %s: %w", iri, err)
		}
		defer os.RemoveAll(staging)
		srcDir = filepath.Join(staging, "project")
		if err := kpar.Unpack(source, srcDir); err != nil {
			return "", fmt.Errorf("install %s: %w", iri, err)
		}
	}

	manifest, meta, err := project.Load(srcDir)
	if err != nil {
		return "", fmt.Errorf("install %s: %w", iri, err)
	}
	ver := manifest.Version
	addr := address.ForIRI(iri)
	dest := e.ProjectDir(iri, ver)

	release, err := e.acquireLock()
	if err != nil {
		return "", fmt.Errorf("install %s: %w", iri, err)
	}
	defer release()

	// Idempotence / conflict check against an existing install.
	if installed, lookupErr := e.installedEntry(iri, ver); lookupErr == nil && installed {
		existingManifest, existingMeta, loadErr := project.Load(dest)
		if loadErr != nil {
			return "", fmt.Errorf("install %s@%s: existing install unreadable: %w", iri, ver, loadErr)
		}
		newHash, err := project.Hash(manifest, meta)
		if err != nil {
			return "", fmt.Errorf("install %s@%s: %w", iri, ver, err)
		}
		oldHash, err := project.Hash(existingManifest, existingMeta)
		if err != nil {
			return "", fmt.Errorf("install %s@%s: %w", iri, ver, err)
		}
		if newHash != oldHash {
			return "", fmt.Errorf("install %s@%s: already installed with different content: %w",
				iri, ver, ErrVersionConflict)
		}
		e.logger.Debug("already installed", "iri", iri, "version", ver)
		return dest, nil
	} else if lookupErr != nil {
		return "", fmt.Errorf("install %s@%s: %w", iri, ver, lookupErr)
	}

	e.logger.Info("installing", "iri", iri, "version", ver, "address", addr)

	// Copy the project tree: the two records plus included sources.
	paths := append([]string{project.ManifestName, project.MetadataName}, meta.SourcePaths(true)...)
	for _, rel := range paths {
		if err := copyFile(
			filepath.Join(srcDir, filepath.FromSlash(rel)),
			filepath.Join(dest, filepath.FromSlash(rel)),
		); err != nil {
			return "", fmt.Errorf("install %s@%s: %w", iri, ver, err)
		}
	}

	if err := e.appendVersion(addr, ver); err != nil {
		return "", fmt.Errorf("install %s@%s: %w", iri, ver, err)
	}
	if err := e.appendLedger(Entry{IRI: iri, Version: ver, Address: addr}); err != nil {
		return "", fmt.Errorf("install %s@%s: %w", iri, ver, err)
	}
	return dest, nil
}

// installedEntry reports whether the ledger records (iri, version).
func (e *Environment) installedEntry(iri, ver string) (bool, error) {
	entries, err := e.readLedger()
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.IRI == iri && entry.Version == ver {
			return true, nil
		}
	}
	return false, nil
}

// appendVersion records ver in the per-address versions.txt unless
// already present.
func (e *Environment) appendVersion(addr address.Key, ver string) error {
	existing, err := e.installedVersions(addr)
	if err != nil {
		return err
	}
	for _, v := range existing {
		if v == ver {
			return nil
		}
	}
	if err := os.MkdirAll(e.addressDir(addr), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(e.versionsPath(addr), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, ver); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

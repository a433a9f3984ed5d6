package env

import (
	"fmt"
	"os"

	"github.com/kparproject/kpar/pkg/address"
)

// Uninstall removes one installed (iri, version) pair: its extracted
// tree, its versions.txt line, and its ledger records. Fails with
// ErrNotFound when the pair is not installed. Uninstall is the only
// operation that rewrites rather than appends, and it holds the install
// lock while doing so.
func (e *Environment) Uninstall(iri, ver string) error {
	release, err := e.acquireLock()
	if err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}
	defer release()

	installed, err := e.installedEntry(iri, ver)
	if err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}
	if !installed {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, ErrNotFound)
	}

	addr := address.ForIRI(iri)
	e.logger.Info("uninstalling", "iri", iri, "version", ver)

	// Remove the cached tree first: if this is interrupted the ledger
	// still names the version, and a re-run can finish the job.
	if err := os.RemoveAll(e.ProjectDir(iri, ver)); err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}

	remaining, err := e.installedVersions(addr)
	if err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}
	kept := remaining[:0]
	for _, v := range remaining {
		if v != ver {
			kept = append(kept, v)
		}
	}
	if err := e.rewriteVersions(addr, kept); err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}

	entries, err := e.readLedger()
	if err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}
	keptEntries := entries[:0]
	for _, entry := range entries {
		if entry.IRI == iri && entry.Version == ver {
			continue
		}
		keptEntries = append(keptEntries, entry)
	}
	if err := e.rewriteLedger(keptEntries); err != nil {
		return fmt.Errorf("uninstall %s@%s: %w", iri, ver, err)
	}

	if len(kept) == 0 {
		os.Remove(e.versionsPath(addr))
		os.Remove(e.addressDir(addr)) // fails harmlessly if non-empty
	}
	return nil
}

// rewriteVersions replaces versions.txt atomically; an empty list
// leaves an empty file for the caller to remove.
func (e *Environment) rewriteVersions(addr address.Key, versions []string) error {
	tmp, err := os.CreateTemp(e.addressDir(addr), ".versions-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	for _, v := range versions {
		if _, err := fmt.Fprintln(tmp, v); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, e.versionsPath(addr)); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

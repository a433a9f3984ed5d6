// Package env implements a local environment: a content-addressed cache
// of installed Interchange Projects plus the append-only ledger that is
// the authoritative record of what is installed.
//
// Layout under the environment root:
//
//	entries.txt                     the ledger, one record per line
//	<address>/versions.txt          installed versions of one IRI
//	<address>/<version>.kpar/       the extracted project tree
//
// The directory layout mirrors the index path convention, so an
// environment directory can be served over HTTP as an index without
// transformation. The layout is a cache: it is always reconcilable from
// the ledger alone.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/kparproject/kpar/pkg/address"
)

// LedgerName is the ledger file at the environment root.
const LedgerName = "entries.txt"

// VersionsName is the per-address version list file.
const VersionsName = "versions.txt"

var (
	// ErrNotFound indicates no installed project satisfied a lookup.
	ErrNotFound = errors.New("not installed")

	// ErrAlreadyExists indicates an init over an existing environment.
	ErrAlreadyExists = errors.New("environment already exists")

	// ErrVersionConflict indicates an install of an (iri, version) pair
	// that is already installed with different content.
	ErrVersionConflict = errors.New("version conflict")
)

// Environment is a handle on one environment root. Multiple
// environments can coexist in a process; all state is under Root.
type Environment struct {
	Root   string
	logger *log.Logger
}

// Option configures an Environment handle.
type Option func(*Environment)

// WithLogger sets the logger used for install/uninstall progress.
func WithLogger(l *log.Logger) Option {
	return func(e *Environment) { e.logger = l }
}

// Open returns a handle on an existing environment root. It does not
// validate the root; operations fail individually when the ledger is
// missing.
func Open(root string, opts ...Option) *Environment {
	e := &Environment{Root: root, logger: log.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Init creates the environment root with an empty ledger. It fails with
// ErrAlreadyExists when a ledger is already present, unless idempotent
// is set, in which case the existing environment is returned untouched.
func Init(root string, idempotent bool, opts ...Option) (*Environment, error) {
	e := Open(root, opts...)
	if _, err := os.Stat(e.ledgerPath()); err == nil {
		if idempotent {
			return e, nil
		}
		return nil, fmt.Errorf("init %s: %w", root, ErrAlreadyExists)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("init %s: %w", root, err)
	}
	f, err := os.OpenFile(e.ledgerPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("init %s: %w", root, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("init %s: %w", root, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("init %s: %w", root, err)
	}
	return e, nil
}

func (e *Environment) ledgerPath() string {
	return filepath.Join(e.Root, LedgerName)
}

// addressDir returns the cache directory for one IRI.
func (e *Environment) addressDir(addr address.Key) string {
	return filepath.Join(e.Root, string(addr))
}

func (e *Environment) versionsPath(addr address.Key) string {
	return filepath.Join(e.addressDir(addr), VersionsName)
}

// ProjectDir returns the extracted project tree for one installed
// (iri, version) pair. The directory may not exist.
func (e *Environment) ProjectDir(iri, ver string) string {
	return filepath.Join(e.addressDir(address.ForIRI(iri)), ver+".kpar")
}

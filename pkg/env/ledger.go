package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kparproject/kpar/pkg/address"
)

// Entry is one ledger record: an installed (iri, version) pair and the
// content address it lives under.
type Entry struct {
	IRI     string
	Version string
	Address address.Key
}

// readLedger parses entries.txt. Lines are tab-separated
// iri, version, address; blank lines are ignored. Ledger reads take no
// lock: the file is only ever appended to, so any snapshot is
// consistent.
func (e *Environment) readLedger() ([]Entry, error) {
	f, err := os.Open(e.ledgerPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("environment %s: no ledger: %w", e.Root, ErrNotFound)
		}
		return nil, fmt.Errorf("read ledger %s: %w", e.ledgerPath(), err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, fmt.Errorf("ledger %s line %d: want 3 tab-separated fields, got %d",
				e.ledgerPath(), lineNo, len(fields))
		}
		entries = append(entries, Entry{
			IRI:     fields[0],
			Version: fields[1],
			Address: address.Key(fields[2]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", e.ledgerPath(), err)
	}
	return entries, nil
}

// appendLedger writes one record. The append is the final step of an
// install: a crash before it leaves only inert files, never a corrupt
// ledger.
func (e *Environment) appendLedger(entry Entry) error {
	f, err := os.OpenFile(e.ledgerPath(), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("append ledger %s: %w", e.ledgerPath(), err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%s\t%s\t%s\n", entry.IRI, entry.Version, entry.Address); err != nil {
		return fmt.Errorf("append ledger %s: %w", e.ledgerPath(), err)
	}
	return f.Sync()
}

// rewriteLedger replaces the ledger contents atomically. Used only by
// uninstall, which must remove records; installs never rewrite.
func (e *Environment) rewriteLedger(entries []Entry) error {
	tmp, err := os.CreateTemp(e.Root, ".entries-*")
	if err != nil {
		return fmt.Errorf("rewrite ledger: %w", err)
	}
	tmpName := tmp.Name()
	for _, entry := range entries {
		if _, err := fmt.Fprintf(tmp, "%s\t%s\t%s\n", entry.IRI, entry.Version, entry.Address); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("rewrite ledger: %w", err)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rewrite ledger: %w", err)
	}
	if err := os.Rename(tmpName, e.ledgerPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rewrite ledger: %w", err)
	}
	return nil
}

// List returns the ledger entries in install order.
func (e *Environment) List() ([]Entry, error) {
	return e.readLedger()
}

package project

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IncludeOptions controls what Include records beyond the bare entry.
type IncludeOptions struct {
	// Checksum computes the SHA-256 of the file and records it. When
	// false the entry is recorded with algorithm NONE and an empty
	// value, which marks the file as included without requiring a
	// recompute on every change.
	Checksum bool

	// IndexSymbols lexes the file for top-level symbol declarations and
	// records them in the metadata index. Only .sysml files are
	// understood; requesting indexing for anything else is an error.
	IndexSymbols bool
}

// Include adds srcPath (a '/'-separated path relative to the project
// root) to the project's included-files list. It fails with ErrNotFound
// when the file does not exist under the project root.
func Include(dir, srcPath string, opts IncludeOptions) error {
	m, meta, err := Load(dir)
	if err != nil {
		return err
	}

	srcPath = normalizeRel(srcPath)
	abs := filepath.Join(dir, filepath.FromSlash(srcPath))
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("include %q: %w", srcPath, ErrNotFound)
		}
		return fmt.Errorf("include %q: %w", srcPath, err)
	}

	entry := Checksum{Algorithm: AlgorithmNone}
	if opts.Checksum {
		sum := sha256.Sum256(data)
		entry = Checksum{Value: hex.EncodeToString(sum[:]), Algorithm: AlgorithmSHA256}
	}
	if meta.Checksum == nil {
		meta.Checksum = NewOrderedMap[Checksum]()
	}
	meta.Checksum.Set(srcPath, entry)

	if opts.IndexSymbols {
		if !strings.HasSuffix(srcPath, ".sysml") {
			return fmt.Errorf("include %q: symbol indexing supports only .sysml files", srcPath)
		}
		symbols, err := TopLevelSymbols(data)
		if err != nil {
			return fmt.Errorf("include %q: extract symbols: %w", srcPath, err)
		}
		for _, sym := range symbols {
			meta.Index.Set(sym, srcPath)
		}
	}

	return Save(dir, m, meta)
}

// Exclude removes srcPath from the included-files list, dropping its
// checksum entry and any index entries pointing at it. It fails with
// ErrNotFound when the path is not currently included.
func Exclude(dir, srcPath string) error {
	m, meta, err := Load(dir)
	if err != nil {
		return err
	}

	srcPath = normalizeRel(srcPath)
	if !meta.Includes(srcPath) {
		return fmt.Errorf("exclude %q: not included: %w", srcPath, ErrNotFound)
	}

	if meta.Checksum != nil {
		meta.Checksum.Delete(srcPath)
		if meta.Checksum.Len() == 0 {
			meta.Checksum = nil
		}
	}
	for _, sym := range append([]string(nil), meta.Index.Keys()...) {
		if p, _ := meta.Index.Get(sym); p == srcPath {
			meta.Index.Delete(sym)
		}
	}

	return Save(dir, m, meta)
}

// normalizeRel converts a possibly OS-specific relative path to the
// '/'-separated form stored in metadata.
func normalizeRel(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "./")
}

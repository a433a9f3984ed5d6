package kpar

import (
	"bufio"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Unpack extracts every entry of the archive at archivePath into
// destDir, recreating directory structure. It fails with
// ErrCorruptArchive on structural or checksum mismatch and with
// ErrUnsupportedCodec when an entry uses a method this build cannot
// decode. Extraction is staged through a temporary directory so destDir
// never holds a partially-extracted project.
func Unpack(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", archivePath, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	head := make([]byte, headerSize)
	if _, err := io.ReadFull(r, head); err != nil {
		return fmt.Errorf("unpack %s: %v: %w", archivePath, err, ErrCorruptArchive)
	}
	header, err := UnmarshalHeader(head)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", archivePath, err)
	}

	if err := os.MkdirAll(filepath.Dir(destDir), 0o755); err != nil {
		return fmt.Errorf("unpack %s: %w", archivePath, err)
	}
	staging, err := os.MkdirTemp(filepath.Dir(destDir), ".unpack-*")
	if err != nil {
		return fmt.Errorf("unpack %s: staging dir: %w", archivePath, err)
	}
	defer os.RemoveAll(staging)

	for i := uint32(0); i < header.NumEntries; i++ {
		e, err := readEntryHeader(r)
		if err != nil {
			return fmt.Errorf("unpack %s: entry %d: %w", archivePath, i, err)
		}
		if err := checkEntryName(e.Name); err != nil {
			return fmt.Errorf("unpack %s: entry %q: %v: %w", archivePath, e.Name, err, ErrCorruptArchive)
		}

		payload := make([]byte, e.Stored)
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("unpack %s: entry %q payload: %v: %w", archivePath, e.Name, err, ErrCorruptArchive)
		}

		data, err := decompress(e.Method, payload, e.Size)
		if err != nil {
			if errors.Is(err, ErrUnsupportedCodec) || errors.Is(err, ErrCorruptArchive) {
				return fmt.Errorf("unpack %s: entry %q: %w", archivePath, e.Name, err)
			}
			return fmt.Errorf("unpack %s: entry %q: %v: %w", archivePath, e.Name, err, ErrCorruptArchive)
		}
		if uint64(len(data)) != e.Size {
			return fmt.Errorf("unpack %s: entry %q: size mismatch (header=%d, actual=%d): %w",
				archivePath, e.Name, e.Size, len(data), ErrCorruptArchive)
		}
		if sha256.Sum256(data) != e.Checksum {
			return fmt.Errorf("unpack %s: entry %q: checksum mismatch: %w", archivePath, e.Name, ErrCorruptArchive)
		}

		dest := filepath.Join(staging, filepath.FromSlash(e.Name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return fmt.Errorf("unpack %s: entry %q: %w", archivePath, e.Name, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("unpack %s: entry %q: %w", archivePath, e.Name, err)
		}
	}

	// Trailing garbage after the declared entries is a structural error.
	if _, err := r.ReadByte(); err != io.EOF {
		return fmt.Errorf("unpack %s: trailing data after last entry: %w", archivePath, ErrCorruptArchive)
	}

	if err := os.Rename(staging, destDir); err != nil {
		// destDir may exist already; merge by moving entries over.
		return moveTree(staging, destDir)
	}
	return nil
}

// checkEntryName rejects absolute and escaping paths.
func checkEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("invalid path separator")
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	if clean != name || strings.HasPrefix(clean, "../") || clean == ".." {
		return fmt.Errorf("path escapes archive root")
	}
	return nil
}

// moveTree moves every file under src into dst, creating directories as
// needed. Used when dst already exists and a plain rename fails.
func moveTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return os.Rename(path, target)
	})
}

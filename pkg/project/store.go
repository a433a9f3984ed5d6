package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Load reads the manifest and metadata of the project rooted at dir.
// It fails with ErrNotFound when neither record exists, and with
// ErrMalformed when a record is present but violates the schema. A
// missing metadata record alongside a present manifest yields a blank
// metadata record (the converse is not allowed).
func Load(dir string) (*Manifest, *Metadata, error) {
	manifest, merr := loadManifest(filepath.Join(dir, ManifestName))
	metadata, derr := loadMetadata(filepath.Join(dir, MetadataName))

	switch {
	case merr == nil && derr == nil:
	case errors.Is(merr, ErrNotFound) && errors.Is(derr, ErrNotFound):
		return nil, nil, fmt.Errorf("project at %s: no %s or %s: %w", dir, ManifestName, MetadataName, ErrNotFound)
	case merr != nil:
		return nil, nil, merr
	case errors.Is(derr, ErrNotFound):
		metadata = MinimalMetadata(time.Now())
	default:
		return nil, nil, derr
	}

	if metadata.Index == nil {
		metadata.Index = NewOrderedMap[string]()
	}
	return manifest, metadata, nil
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

func loadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("metadata %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	m, err := ParseMetadata(data)
	if err != nil {
		return nil, fmt.Errorf("metadata %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates a raw manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// ParseMetadata decodes and validates a raw metadata document.
func ParseMetadata(data []byte) (*Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrMalformed)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.Index == nil {
		m.Index = NewOrderedMap[string]()
	}
	return &m, nil
}

// Save writes both records atomically (write-temp-then-rename) so an
// interrupted save never leaves a partial manifest behind. Output is
// two-space-indented, newline-terminated JSON, produced deterministically
// for byte-for-byte comparison by downstream consumers.
func Save(dir string, m *Manifest, meta *Metadata) error {
	if m.Usage == nil {
		m.Usage = []Usage{}
	}
	if meta.Index == nil {
		meta.Index = NewOrderedMap[string]()
	}
	if err := writeJSONFile(filepath.Join(dir, ManifestName), m); err != nil {
		return err
	}
	return writeJSONFile(filepath.Join(dir, MetadataName), meta)
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: tmpfile: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
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

// Init creates a minimal manifest and metadata record in dir. It fails
// with ErrAlreadyExists when a manifest is already present, unless force
// is set.
func Init(dir, name, version string, force bool) error {
	manifestPath := filepath.Join(dir, ManifestName)
	if !force {
		if _, err := os.Stat(manifestPath); err == nil {
			return fmt.Errorf("init %s: manifest: %w", dir, ErrAlreadyExists)
		}
	}
	m := MinimalManifest(name, version)
	if err := m.Validate(); err != nil {
		return err
	}
	return Save(dir, m, MinimalMetadata(time.Now()))
}

// New creates the project directory itself and then initializes it.
// The directory must not already contain a manifest.
func New(dir, name, version string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("new project %s: %w", dir, err)
	}
	return Init(dir, name, version, false)
}

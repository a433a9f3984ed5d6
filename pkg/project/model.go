// Package project implements the on-disk model of an Interchange
// Project: the manifest (.project.json), the metadata record
// (.meta.json), and the mutation operations the tooling performs on
// them (usage declarations, file inclusion, symbol indexing).
package project

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// File names of the two project records, fixed by the interchange format.
const (
	ManifestName = ".project.json"
	MetadataName = ".meta.json"
)

// createdLayout is the RFC3339 UTC nanosecond layout used for the
// metadata created timestamp. Consumers compare output byte-for-byte,
// so the fractional width is fixed.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Usage declares a dependency edge: a resource IRI plus an optional
// version constraint. An absent constraint means any version.
type Usage struct {
	Resource          string `json:"resource"`
	VersionConstraint string `json:"versionConstraint,omitempty"`
}

// Manifest is the .project.json record. The (Name, Version) pair is the
// external identity of a project within an environment.
type Manifest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Version     string   `json:"version"`
	License     string   `json:"license,omitempty"`
	Maintainer  []string `json:"maintainer,omitempty"`
	Website     string   `json:"website,omitempty"`
	Topic       []string `json:"topic,omitempty"`
	Usage       []Usage  `json:"usage"`
}

// Checksum is one entry of the metadata checksum table.
type Checksum struct {
	Value     string `json:"value"`
	Algorithm string `json:"algorithm"`
}

// Metadata is the .meta.json record. It is generated, never
// hand-authored, and is regenerated whenever the included-source set
// changes. Index maps symbol names to the source file declaring them;
// Checksum maps included source paths to their checksums. Both preserve
// insertion order.
type Metadata struct {
	Index           *OrderedMap[string]   `json:"index"`
	Created         string                `json:"created"`
	Metamodel       string                `json:"metamodel,omitempty"`
	IncludesDerived *bool                 `json:"includesDerived,omitempty"`
	IncludesImplied *bool                 `json:"includesImplied,omitempty"`
	Checksum        *OrderedMap[Checksum] `json:"checksum,omitempty"`
}

// MinimalManifest returns a manifest with only name, version, and an
// empty usage list.
func MinimalManifest(name, version string) *Manifest {
	return &Manifest{Name: name, Version: version, Usage: []Usage{}}
}

// MinimalMetadata returns a metadata record with an empty index and the
// given creation time (truncated to UTC nanoseconds).
func MinimalMetadata(created time.Time) *Metadata {
	return &Metadata{
		Index:   NewOrderedMap[string](),
		Created: created.UTC().Format(createdLayout),
	}
}

// checksumHexLen gives the expected hex length per KerML checksum
// algorithm. Zero means no length requirement (NONE).
var checksumHexLen = map[string]int{
	"NONE":        0,
	"SHA1":        40,
	"SHA224":      56,
	"SHA256":      64,
	"SHA-384":     96,
	"SHA3-256":    64,
	"SHA3-384":    96,
	"SHA3-512":    128,
	"BLAKE2b-256": 64,
	"BLAKE2b-384": 96,
	"BLAKE2b-512": 128,
	"BLAKE3":      64,
	"MD2":         32,
	"MD4":         32,
	"MD5":         32,
	"MD6":         0,
	"ADLER32":     8,
}

// AlgorithmSHA256 is the only checksum algorithm this implementation
// computes. AlgorithmNone marks files included without a checksum; it
// must not appear in published projects.
const (
	AlgorithmSHA256 = "SHA256"
	AlgorithmNone   = "NONE"
)

// Validate checks the manifest against the schema: name and version are
// required, the version must parse as a semantic version, and every
// usage resource must be a parseable IRI.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest: missing name: %w", ErrMalformed)
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("manifest: missing version: %w", ErrMalformed)
	}
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("manifest: version %q is not a semantic version: %w", m.Version, ErrMalformed)
	}
	for _, u := range m.Usage {
		if err := validateIRI(u.Resource); err != nil {
			return fmt.Errorf("manifest: usage resource %q: %v: %w", u.Resource, err, ErrMalformed)
		}
		if u.VersionConstraint != "" {
			if _, err := semver.NewConstraint(u.VersionConstraint); err != nil {
				return fmt.Errorf("manifest: usage %q: constraint %q: %w", u.Resource, u.VersionConstraint, ErrMalformed)
			}
		}
	}
	return nil
}

// Validate checks the metadata record: the created timestamp must be
// RFC3339 and every checksum entry must use a known algorithm with a
// value of the expected hex length.
func (m *Metadata) Validate() error {
	if _, err := time.Parse(time.RFC3339Nano, m.Created); err != nil {
		return fmt.Errorf("metadata: created %q is not RFC3339: %w", m.Created, ErrMalformed)
	}
	if m.Checksum != nil {
		for _, path := range m.Checksum.Keys() {
			c, _ := m.Checksum.Get(path)
			want, known := checksumHexLen[c.Algorithm]
			if !known {
				return fmt.Errorf("metadata: checksum for %q: unknown algorithm %q: %w", path, c.Algorithm, ErrMalformed)
			}
			if want > 0 && len(c.Value) != want {
				return fmt.Errorf("metadata: checksum for %q: %s value has %d hex chars, want %d: %w",
					path, c.Algorithm, len(c.Value), want, ErrMalformed)
			}
		}
	}
	return nil
}

func validateIRI(iri string) error {
	if strings.TrimSpace(iri) == "" {
		return fmt.Errorf("empty IRI")
	}
	u, err := url.Parse(iri)
	if err != nil {
		return err
	}
	if u.Scheme == "" {
		return fmt.Errorf("IRI has no scheme")
	}
	return nil
}

// SourcePaths returns the included-files list: checksum table keys,
// optionally united with index values, in declared order without
// duplicates. This set defines which files belong to the project.
func (m *Metadata) SourcePaths(includeIndex bool) []string {
	var out []string
	seen := make(map[string]bool)
	if m.Checksum != nil {
		for _, p := range m.Checksum.Keys() {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	if includeIndex && m.Index != nil {
		for _, sym := range m.Index.Keys() {
			p, _ := m.Index.Get(sym)
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// Includes reports whether path is currently in the included-files list.
func (m *Metadata) Includes(path string) bool {
	for _, p := range m.SourcePaths(true) {
		if p == path {
			return true
		}
	}
	return false
}

// Hash computes the identity hash of a project: the SHA-256 of the
// compact manifest JSON concatenated with the compact metadata JSON.
// Equal (manifest, metadata) pairs hash equal regardless of on-disk
// formatting, which is what install conflict detection compares.
func Hash(m *Manifest, meta *Metadata) (string, error) {
	info, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	md, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write(info)
	h.Write(md)
	return hex.EncodeToString(h.Sum(nil)), nil
}

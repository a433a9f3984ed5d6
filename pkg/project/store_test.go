package project

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestInitThenLoad(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "P", "1.0.0", false); err != nil {
		t.Fatalf("Init: %v", err)
	}

	m, meta, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "P" || m.Version != "1.0.0" {
		t.Errorf("manifest = %q@%q, want P@1.0.0", m.Name, m.Version)
	}
	if len(m.Usage) != 0 {
		t.Errorf("usage should be empty, got %v", m.Usage)
	}
	if meta.Index.Len() != 0 {
		t.Errorf("index should be empty, got %v", meta.Index.Keys())
	}
	created, err := time.Parse(time.RFC3339Nano, meta.Created)
	if err != nil {
		t.Fatalf("created %q not RFC3339: %v", meta.Created, err)
	}
	if created.Location() != time.UTC && !strings.HasSuffix(meta.Created, "Z") {
		t.Errorf("created %q is not UTC", meta.Created)
	}
}

func TestInitAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "P", "1.0.0", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	err := Init(dir, "Q", "2.0.0", false)
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Init: got %v, want ErrAlreadyExists", err)
	}
	if err := Init(dir, "Q", "2.0.0", true); err != nil {
		t.Fatalf("forced Init: %v", err)
	}
	m, _, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "Q" {
		t.Errorf("forced init kept old manifest: %q", m.Name)
	}
}

func TestLoadMissing(t *testing.T) {
	_, _, err := Load(t.TempDir())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load empty dir: got %v, want ErrNotFound", err)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(`{"name": 7}`), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load(dir)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Load: got %v, want ErrMalformed", err)
	}
}

func TestLoadRejectsNonSemverVersion(t *testing.T) {
	dir := t.TempDir()
	body := `{"name": "P", "version": "not-a-version", "usage": []}`
	if err := os.WriteFile(filepath.Join(dir, ManifestName), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := Load(dir)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Load: got %v, want ErrMalformed", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	desc := "A test project"
	m := &Manifest{
		Name:        "round",
		Description: desc,
		Version:     "2.1.3",
		License:     "MIT",
		Maintainer:  []string{"a@example.com", "b@example.com"},
		Website:     "https://example.com",
		Topic:       []string{"testing", "models"},
		Usage: []Usage{
			{Resource: "urn:kpar:dep-one", VersionConstraint: "^1.0.0"},
			{Resource: "urn:kpar:dep-two"},
		},
	}
	meta := MinimalMetadata(time.Now())
	meta.Checksum = NewOrderedMap[Checksum]()
	meta.Checksum.Set("z.sysml", Checksum{Value: strings.Repeat("ab", 32), Algorithm: AlgorithmSHA256})
	meta.Checksum.Set("a.sysml", Checksum{Algorithm: AlgorithmNone})
	meta.Index.Set("Pkg", "z.sysml")

	if err := Save(dir, m, meta); err != nil {
		t.Fatalf("Save: %v", err)
	}
	m2, meta2, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if m2.Name != m.Name || m2.Description != m.Description || m2.Version != m.Version ||
		m2.License != m.License || m2.Website != m.Website {
		t.Errorf("manifest fields changed across round trip: %+v", m2)
	}
	if len(m2.Usage) != 2 || m2.Usage[0].Resource != "urn:kpar:dep-one" ||
		m2.Usage[0].VersionConstraint != "^1.0.0" || m2.Usage[1].VersionConstraint != "" {
		t.Errorf("usage changed across round trip: %+v", m2.Usage)
	}

	// Checksum order must be preserved, not sorted.
	keys := meta2.Checksum.Keys()
	if len(keys) != 2 || keys[0] != "z.sysml" || keys[1] != "a.sysml" {
		t.Errorf("checksum order = %v, want [z.sysml a.sysml]", keys)
	}
}

func TestSaveOutputShape(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "shape", "0.1.0", false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if !strings.HasSuffix(text, "\n") {
		t.Error("manifest is not newline-terminated")
	}
	if !strings.Contains(text, "  \"name\": \"shape\"") {
		t.Errorf("manifest is not two-space indented:\n%s", text)
	}
	// Optional fields must be omitted entirely.
	if strings.Contains(text, "description") || strings.Contains(text, "license") {
		t.Errorf("empty optional fields serialized:\n%s", text)
	}
}

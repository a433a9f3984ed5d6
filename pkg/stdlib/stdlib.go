// Package stdlib embeds the standard model library projects that ship
// with the tool. They are pre-resolved: dependency resolution treats
// their IRIs as already satisfied instead of consulting an environment
// or index.
package stdlib

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kparproject/kpar/pkg/project"
)

//go:embed all:assets
var assets embed.FS

// IRIScheme prefixes every standard library IRI.
const IRIScheme = "urn:kpar:"

// Project is one embedded standard library project.
type Project struct {
	IRI      string
	Slug     string // directory name under assets/
	Manifest *project.Manifest
	Metadata *project.Metadata
}

var (
	loadOnce sync.Once
	loadErr  error
	projects []Project
	byIRI    map[string]*Project
)

func load() {
	entries, err := assets.ReadDir("assets")
	if err != nil {
		loadErr = fmt.Errorf("read embedded library set: %w", err)
		return
	}
	byIRI = make(map[string]*Project, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		slug := e.Name()
		manifestData, err := assets.ReadFile(path.Join("assets", slug, project.ManifestName))
		if err != nil {
			loadErr = fmt.Errorf("embedded library %s: %w", slug, err)
			return
		}
		manifest, err := project.ParseManifest(manifestData)
		if err != nil {
			loadErr = fmt.Errorf("embedded library %s: %w", slug, err)
			return
		}
		metadataData, err := assets.ReadFile(path.Join("assets", slug, project.MetadataName))
		if err != nil {
			loadErr = fmt.Errorf("embedded library %s: %w", slug, err)
			return
		}
		metadata, err := project.ParseMetadata(metadataData)
		if err != nil {
			loadErr = fmt.Errorf("embedded library %s: %w", slug, err)
			return
		}
		projects = append(projects, Project{
			IRI:      IRIScheme + slug,
			Slug:     slug,
			Manifest: manifest,
			Metadata: metadata,
		})
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].Slug < projects[j].Slug })
	for i := range projects {
		byIRI[projects[i].IRI] = &projects[i]
	}
}

// Projects returns every embedded standard library project in stable
// (slug) order.
func Projects() ([]Project, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}
	out := make([]Project, len(projects))
	copy(out, projects)
	return out, nil
}

// IRIs returns the IRIs of the embedded projects in stable order.
func IRIs() ([]string, error) {
	ps, err := Projects()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.IRI
	}
	return out, nil
}

// Lookup finds an embedded project by IRI.
func Lookup(iri string) (*Project, bool) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, false
	}
	p, ok := byIRI[iri]
	return p, ok
}

// Materialize writes every embedded project tree under destRoot, one
// directory per project, and returns a map from IRI to the project
// directory on disk. Existing files are overwritten.
func Materialize(destRoot string) (map[string]string, error) {
	ps, err := Projects()
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]string, len(ps))
	for _, p := range ps {
		destDir := filepath.Join(destRoot, p.Slug)
		srcDir := path.Join("assets", p.Slug)
		err := fs.WalkDir(assets, srcDir, func(name string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(srcDir, filepath.FromSlash(name))
			if relErr != nil {
				return relErr
			}
			target := filepath.Join(destDir, rel)
			if d.IsDir() {
				return os.MkdirAll(target, 0o755)
			}
			data, readErr := assets.ReadFile(name)
			if readErr != nil {
				return readErr
			}
			return os.WriteFile(target, data, 0o644)
		})
		if err != nil {
			return nil, fmt.Errorf("materialize %s: %w", p.IRI, err)
		}
		dirs[p.IRI] = destDir
	}
	return dirs, nil
}

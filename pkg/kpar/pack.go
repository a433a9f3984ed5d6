package kpar

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kparproject/kpar/pkg/project"
)

// Archive summarizes a written container.
type Archive struct {
	Path    string
	Method  Method
	Entries []string
}

// Pack walks the project rooted at projectDir and writes its manifest,
// metadata, and included files to a kpar container at outputPath,
// compressing every entry with method. Entry order is fixed: manifest
// first, metadata second, then included files in declared order, so
// repeated builds of unchanged input are byte-identical.
func Pack(projectDir, outputPath string, method Method) (*Archive, error) {
	_, meta, err := project.Load(projectDir)
	if err != nil {
		return nil, err
	}

	names := []string{project.ManifestName, project.MetadataName}
	names = append(names, meta.SourcePaths(true)...)

	tmp, err := os.CreateTemp(filepath.Dir(outputPath), ".kpar-*")
	if err != nil {
		return nil, fmt.Errorf("pack %s: tmpfile: %w", outputPath, err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	header := Header{Version: supportedVersion, NumEntries: uint32(len(names))}
	if _, err := w.Write(header.Marshal()); err != nil {
		return nil, fmt.Errorf("pack %s: header: %w", outputPath, err)
	}

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(projectDir, filepath.FromSlash(name)))
		if err != nil {
			return nil, fmt.Errorf("pack %s: read %s: %w", outputPath, name, err)
		}
		payload, err := compress(method, data)
		if err != nil {
			return nil, fmt.Errorf("pack %s: compress %s: %w", outputPath, name, err)
		}
		e := entryHeader{
			Method:   method,
			Name:     name,
			Size:     uint64(len(data)),
			Stored:   uint64(len(payload)),
			Checksum: sha256.Sum256(data),
		}
		if err := e.write(w); err != nil {
			return nil, fmt.Errorf("pack %s: entry %s: %w", outputPath, name, err)
		}
		if _, err := w.Write(payload); err != nil {
			return nil, fmt.Errorf("pack %s: entry %s: %w", outputPath, name, err)
		}
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("pack %s: flush: %w", outputPath, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("pack %s: close: %w", outputPath, err)
	}
	if err := os.Rename(tmpName, outputPath); err != nil {
		return nil, fmt.Errorf("pack %s: rename: %w", outputPath, err)
	}
	ok = true

	return &Archive{Path: outputPath, Method: method, Entries: names}, nil
}

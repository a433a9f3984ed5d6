package env

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/kparproject/kpar/pkg/address"
	"github.com/kparproject/kpar/pkg/version"
)

// Lookup finds the best installed version of iri satisfying constraint
// and returns its project directory. With an empty constraint the
// highest installed version wins; ties and ordering follow
// pkg/version's documented total order. Fails with ErrNotFound when no
// installed version satisfies.
func (e *Environment) Lookup(iri, constraint string) (string, error) {
	addr := address.ForIRI(iri)
	versions, err := e.installedVersions(addr)
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", iri, err)
	}
	best, ok := version.Select(versions, constraint)
	if !ok {
		return "", fmt.Errorf("lookup %s (constraint %q): %w", iri, constraint, ErrNotFound)
	}
	dir := e.ProjectDir(iri, best)
	if _, err := os.Stat(dir); err != nil {
		return "", fmt.Errorf("lookup %s@%s: cache missing at %s: %w", iri, best, dir, ErrNotFound)
	}
	return dir, nil
}

// Versions returns the installed versions of iri in install order. A
// never-installed IRI yields an empty slice, not an error.
func (e *Environment) Versions(iri string) ([]string, error) {
	return e.installedVersions(address.ForIRI(iri))
}

func (e *Environment) installedVersions(addr address.Key) ([]string, error) {
	f, err := os.Open(e.versionsPath(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", e.versionsPath(addr), err)
	}
	defer f.Close()

	var versions []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			versions = append(versions, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", e.versionsPath(addr), err)
	}
	return versions, nil
}

package resolve

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kparproject/kpar/pkg/env"
	"github.com/kparproject/kpar/pkg/project"
)

// makeProject creates a project directory with one included source file
// and the given dependencies.
func makeProject(t *testing.T, name, ver, srcName string, deps map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	if err := project.Init(dir, name, ver, false); err != nil {
		t.Fatalf("Init %s: %v", name, err)
	}
	if srcName != "" {
		if err := os.WriteFile(filepath.Join(dir, srcName), []byte("content of "+srcName+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := project.Include(dir, srcName, project.IncludeOptions{Checksum: true}); err != nil {
			t.Fatalf("Include %s: %v", srcName, err)
		}
	}
	for iri, constraint := range deps {
		if err := project.AddUsage(dir, iri, constraint, false); err != nil {
			t.Fatalf("AddUsage %s: %v", iri, err)
		}
	}
	return dir
}

func newEnv(t *testing.T) *env.Environment {
	t.Helper()
	e, err := env.Init(filepath.Join(t.TempDir(), "env"), false)
	if err != nil {
		t.Fatalf("env Init: %v", err)
	}
	return e
}

func TestSourcesOwnFilesThenDeps(t *testing.T) {
	e := newEnv(t)
	depDir := makeProject(t, "D", "1.0.0", "d.src", nil)
	if _, err := e.Install("urn:kpar:D", depDir); err != nil {
		t.Fatalf("Install D: %v", err)
	}
	rootDir := makeProject(t, "A", "1.0.0", "a.src", map[string]string{"urn:kpar:D": ""})

	b := &Builder{Env: e}
	got, err := b.Sources(context.Background(), rootDir, SourceOptions{IncludeDeps: true})
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	names := baseNames(got)
	if !reflect.DeepEqual(names, []string{"a.src", "d.src"}) {
		t.Errorf("Sources = %v, want [a.src d.src]", names)
	}

	if err := project.Exclude(rootDir, "a.src"); err != nil {
		t.Fatalf("Exclude: %v", err)
	}
	got, err = (&Builder{Env: e}).Sources(context.Background(), rootDir, SourceOptions{IncludeDeps: true})
	if err != nil {
		t.Fatalf("Sources after exclude: %v", err)
	}
	names = baseNames(got)
	if !reflect.DeepEqual(names, []string{"d.src"}) {
		t.Errorf("Sources after exclude = %v, want [d.src]", names)
	}
}

func TestSourcesIdempotent(t *testing.T) {
	e := newEnv(t)
	depDir := makeProject(t, "D", "1.0.0", "d.src", nil)
	if _, err := e.Install("urn:kpar:D", depDir); err != nil {
		t.Fatal(err)
	}
	rootDir := makeProject(t, "A", "1.0.0", "a.src", map[string]string{"urn:kpar:D": ""})

	b := &Builder{Env: e}
	first, err := b.Sources(context.Background(), rootDir, SourceOptions{IncludeDeps: true})
	if err != nil {
		t.Fatalf("first Sources: %v", err)
	}
	second, err := b.Sources(context.Background(), rootDir, SourceOptions{IncludeDeps: true})
	if err != nil {
		t.Fatalf("second Sources: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Sources not idempotent:\n%v\n%v", first, second)
	}
}

func TestDiamondContributesOnce(t *testing.T) {
	e := newEnv(t)
	dDir := makeProject(t, "D", "1.0.0", "d.src", nil)
	if _, err := e.Install("urn:kpar:D", dDir); err != nil {
		t.Fatal(err)
	}
	bDir := makeProject(t, "B", "1.0.0", "b.src", map[string]string{"urn:kpar:D": "1.0.0"})
	if _, err := e.Install("urn:kpar:B", bDir); err != nil {
		t.Fatal(err)
	}
	cDir := makeProject(t, "C", "1.0.0", "c.src", map[string]string{"urn:kpar:D": "1.0.0"})
	if _, err := e.Install("urn:kpar:C", cDir); err != nil {
		t.Fatal(err)
	}
	rootDir := makeProject(t, "A", "1.0.0", "a.src", nil)
	if err := project.AddUsage(rootDir, "urn:kpar:B", "", false); err != nil {
		t.Fatal(err)
	}
	if err := project.AddUsage(rootDir, "urn:kpar:C", "", false); err != nil {
		t.Fatal(err)
	}

	builder := &Builder{Env: e}
	root, err := builder.Build(context.Background(), rootDir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(root.Deps) != 2 {
		t.Fatalf("root has %d deps, want 2", len(root.Deps))
	}
	dViaB := root.Deps[0].Deps[0]
	dViaC := root.Deps[1].Deps[0]
	if dViaB != dViaC {
		t.Error("diamond dependency resolved to two distinct nodes")
	}

	sources, err := builder.Sources(context.Background(), rootDir, SourceOptions{IncludeDeps: true})
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	count := 0
	for _, s := range sources {
		if filepath.Base(s) == "d.src" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("d.src appears %d times, want 1 (sources %v)", count, baseNames(sources))
	}
}

func TestCyclicDependency(t *testing.T) {
	e := newEnv(t)
	aDir := makeProject(t, "A", "1.0.0", "", map[string]string{"urn:kpar:B": ""})
	bDir := makeProject(t, "B", "1.0.0", "", map[string]string{"urn:kpar:A": ""})
	if _, err := e.Install("urn:kpar:A", aDir); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Install("urn:kpar:B", bDir); err != nil {
		t.Fatal(err)
	}

	builder := &Builder{Env: e}
	_, err := builder.Build(context.Background(), aDir)
	if !errors.Is(err, ErrCyclicDependency) {
		t.Fatalf("Build: got %v, want ErrCyclicDependency", err)
	}
}

func TestMissingDependencyWithoutIndex(t *testing.T) {
	e := newEnv(t)
	rootDir := makeProject(t, "A", "1.0.0", "a.src", map[string]string{"urn:kpar:missing": ""})

	builder := &Builder{Env: e}
	if _, err := builder.Build(context.Background(), rootDir); err == nil {
		t.Fatal("Build succeeded with unresolvable dependency")
	}
}

func TestIncludeStd(t *testing.T) {
	rootDir := makeProject(t, "A", "1.0.0", "a.src", map[string]string{"urn:kpar:kernel-library": ""})

	builder := &Builder{}
	stdRoot := t.TempDir()
	sources, err := builder.Sources(context.Background(), rootDir, SourceOptions{
		IncludeDeps: true,
		IncludeStd:  true,
		StdRoot:     stdRoot,
	})
	if err != nil {
		t.Fatalf("Sources: %v", err)
	}
	if len(sources) < 2 {
		t.Fatalf("sources = %v", sources)
	}
	if !strings.HasPrefix(sources[0], stdRoot) {
		t.Errorf("standard library sources not first: %v", sources[0])
	}
	last := sources[len(sources)-1]
	if filepath.Base(last) != "a.src" {
		t.Errorf("own sources not after standard library: last = %s", last)
	}
}

func baseNames(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = filepath.Base(p)
	}
	return out
}

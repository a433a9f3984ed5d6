package resolve

import (
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/kparproject/kpar/pkg/project"
)

func TestLockPinsDependencies(t *testing.T) {
	e := newEnv(t)
	dDir := makeProject(t, "D", "1.0.0", "d.src", nil)
	installed, err := e.Install("urn:kpar:D", dDir)
	if err != nil {
		t.Fatal(err)
	}
	rootDir := makeProject(t, "A", "1.0.0", "a.src", map[string]string{"urn:kpar:D": "1.0.0"})

	b := &Builder{Env: e}
	lock, err := b.Lock(context.Background(), rootDir)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if len(lock.Projects) != 1 {
		t.Fatalf("lock has %d projects, want 1", len(lock.Projects))
	}
	p := lock.Projects[0]
	if !reflect.DeepEqual(p.IRIs, []string{"urn:kpar:D"}) || p.Version != "1.0.0" {
		t.Errorf("locked project = %+v", p)
	}

	manifest, metadata, err := project.Load(installed)
	if err != nil {
		t.Fatal(err)
	}
	want, err := project.Hash(manifest, metadata)
	if err != nil {
		t.Fatal(err)
	}
	if p.Checksum != want {
		t.Errorf("checksum = %s, want %s", p.Checksum, want)
	}
}

func TestLockfileRoundTrip(t *testing.T) {
	lock := &Lockfile{
		LockVersion: lockVersion,
		Projects: []LockedProject{
			{IRIs: []string{"urn:kpar:D"}, Version: "1.0.0", Checksum: strings.Repeat("ab", 32)},
			{IRIs: []string{"urn:kpar:E"}, Version: "2.1.0", Checksum: strings.Repeat("cd", 32)},
		},
	}
	path := filepath.Join(t.TempDir(), LockFileName)
	if err := WriteLockfile(path, lock); err != nil {
		t.Fatalf("WriteLockfile: %v", err)
	}
	got, err := ReadLockfile(path)
	if err != nil {
		t.Fatalf("ReadLockfile: %v", err)
	}
	if !reflect.DeepEqual(got, lock) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", got, lock)
	}
}

func TestReadLockfileRejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), LockFileName)
	if err := WriteLockfile(path, &Lockfile{LockVersion: "99.0"}); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadLockfile(path); err == nil {
		t.Fatal("ReadLockfile accepted unknown lock_version")
	}
}

func TestLockfileVerify(t *testing.T) {
	e := newEnv(t)
	dDir := makeProject(t, "D", "1.0.0", "d.src", nil)
	if _, err := e.Install("urn:kpar:D", dDir); err != nil {
		t.Fatal(err)
	}
	rootDir := makeProject(t, "A", "1.0.0", "a.src", map[string]string{"urn:kpar:D": "1.0.0"})

	lock, err := (&Builder{Env: e}).Lock(context.Background(), rootDir)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := lock.Verify(e); err != nil {
		t.Errorf("Verify on intact environment: %v", err)
	}

	lock.Projects[0].Checksum = strings.Repeat("00", 32)
	if err := lock.Verify(e); err == nil {
		t.Error("Verify passed with wrong checksum")
	}

	if err := e.Uninstall("urn:kpar:D", "1.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := lock.Verify(e); err == nil {
		t.Error("Verify passed with project uninstalled")
	}
}

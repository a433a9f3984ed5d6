package index

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kparproject/kpar/pkg/address"
	"github.com/kparproject/kpar/pkg/project"
)

// fakeIndex serves an index file tree from an in-memory map keyed by
// URL path (e.g. "/<address>/versions.txt").
func fakeIndex(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// publish renders the index file tree for one project version.
func publish(t *testing.T, files map[string]string, iri, ver string, sources map[string]string) {
	t.Helper()
	dir := t.TempDir()
	if err := project.Init(dir, "P", ver, false); err != nil {
		t.Fatalf("Init: %v", err)
	}
	for rel, content := range sources {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := project.Include(dir, rel, project.IncludeOptions{Checksum: true}); err != nil {
			t.Fatalf("Include %s: %v", rel, err)
		}
	}

	addr := address.ForIRI(iri)
	base := fmt.Sprintf("/%s/%s.kpar", addr, ver)
	for _, name := range []string{project.ManifestName, project.MetadataName} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatal(err)
		}
		files[base+"/"+name] = string(data)
	}
	for rel, content := range sources {
		files[base+"/"+rel] = content
	}

	versionsPath := fmt.Sprintf("/%s/versions.txt", addr)
	files[versionsPath] += ver + "\n"
}

func TestResolvePicksGreatestMatch(t *testing.T) {
	files := map[string]string{}
	publish(t, files, "urn:kpar:P", "1.0.0", nil)
	publish(t, files, "urn:kpar:P", "1.4.2", nil)
	publish(t, files, "urn:kpar:P", "2.0.0", nil)
	srv := fakeIndex(t, files)

	c, err := NewClient([]string{srv.URL}, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	loc, err := c.Resolve(context.Background(), "urn:kpar:P", "^1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.Version != "1.4.2" {
		t.Errorf("Resolve chose %s, want 1.4.2", loc.Version)
	}
	if loc.IndexURL != srv.URL {
		t.Errorf("Resolve IndexURL = %s, want %s", loc.IndexURL, srv.URL)
	}
}

func TestResolveFallsBackToSecondIndex(t *testing.T) {
	first := fakeIndex(t, map[string]string{})
	files := map[string]string{}
	publish(t, files, "urn:kpar:P", "1.0.0", nil)
	second := fakeIndex(t, files)

	c, err := NewClient([]string{first.URL, second.URL}, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	loc, err := c.Resolve(context.Background(), "urn:kpar:P", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.IndexURL != second.URL {
		t.Errorf("Resolve IndexURL = %s, want second index %s", loc.IndexURL, second.URL)
	}
	if loc.Version != "1.0.0" {
		t.Errorf("Resolve version = %s, want 1.0.0", loc.Version)
	}
}

func TestResolveFallsBackWhenDocumentsMissing(t *testing.T) {
	// The first index lists a satisfying version but serves nothing
	// else; resolution must fall through to the second index.
	addr := address.ForIRI("urn:kpar:P")
	first := fakeIndex(t, map[string]string{
		fmt.Sprintf("/%s/versions.txt", addr): "1.0.0\n",
	})
	files := map[string]string{}
	publish(t, files, "urn:kpar:P", "1.0.0", map[string]string{"p.sysml": "package P;\n"})
	second := fakeIndex(t, files)

	c, err := NewClient([]string{first.URL, second.URL}, Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	loc, err := c.Resolve(context.Background(), "urn:kpar:P", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loc.IndexURL != second.URL {
		t.Errorf("Resolve IndexURL = %s, want second index %s", loc.IndexURL, second.URL)
	}
	if loc.Manifest == nil || loc.Manifest.Version != "1.0.0" {
		t.Errorf("Resolve manifest = %+v", loc.Manifest)
	}

	dest := filepath.Join(t.TempDir(), "p")
	if err := c.Download(context.Background(), loc, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "p.sysml")); err != nil {
		t.Errorf("downloaded source missing: %v", err)
	}
}

func TestResolveExhaustsAllIndexes(t *testing.T) {
	first := fakeIndex(t, map[string]string{})
	second := fakeIndex(t, map[string]string{})

	c, _ := NewClient([]string{first.URL, second.URL}, Options{})
	_, err := c.Resolve(context.Background(), "urn:kpar:missing", "")
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("Resolve: got %v, want ErrResolutionFailed", err)
	}
}

func TestResolveConstraintUnsatisfied(t *testing.T) {
	files := map[string]string{}
	publish(t, files, "urn:kpar:P", "1.0.0", nil)
	srv := fakeIndex(t, files)

	c, _ := NewClient([]string{srv.URL}, Options{})
	_, err := c.Resolve(context.Background(), "urn:kpar:P", "^2.0.0")
	if !errors.Is(err, ErrResolutionFailed) {
		t.Fatalf("Resolve: got %v, want ErrResolutionFailed", err)
	}
}

func TestDownload(t *testing.T) {
	files := map[string]string{}
	publish(t, files, "urn:kpar:P", "1.0.0", map[string]string{
		"model/a.sysml": "package A;\n",
		"b.sysml":       "package B;\n",
	})
	srv := fakeIndex(t, files)

	c, _ := NewClient([]string{srv.URL}, Options{})
	loc, err := c.Resolve(context.Background(), "urn:kpar:P", "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "p")
	if err := c.Download(context.Background(), loc, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}
	manifest, _, err := project.Load(dest)
	if err != nil {
		t.Fatalf("Load downloaded project: %v", err)
	}
	if manifest.Version != "1.0.0" {
		t.Errorf("downloaded version = %s", manifest.Version)
	}
	data, err := os.ReadFile(filepath.Join(dest, "model", "a.sysml"))
	if err != nil {
		t.Fatalf("downloaded source: %v", err)
	}
	if string(data) != "package A;\n" {
		t.Errorf("downloaded source = %q", data)
	}
}

func TestRetryDoRecoversFromServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, "1.0.0\n")
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	start := time.Now()
	resp, err := retryDo(srv.Client(), req, 5)
	if err != nil {
		t.Fatalf("retryDo: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("no backoff observed (elapsed %v)", elapsed)
	}
}

func TestRetryDoExhaustedReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := retryDo(srv.Client(), req, 1)
	if err == nil {
		resp.Body.Close()
		t.Fatal("retryDo succeeded on a persistent 503")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error does not name the status: %v", err)
	}
}

func TestRetryDoDoesNotRetryNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := retryDo(srv.Client(), req, 3)
	if err != nil {
		t.Fatalf("retryDo: %v", err)
	}
	resp.Body.Close()
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient(nil, Options{}); err == nil {
		t.Error("NewClient(nil) succeeded")
	}
	if _, err := NewClient([]string{"not a url"}, Options{}); err == nil {
		t.Error("NewClient with relative URL succeeded")
	}
}

// Package index resolves project IRIs against remote package indexes.
//
// An index is a plain HTTP file tree that mirrors the local environment
// layout: <base>/<address>/versions.txt lists the published versions for
// a project address, and <base>/<address>/<version>.kpar/ holds the
// project's interchange files. Resolution walks the configured indexes
// in order and takes the first one that can satisfy the constraint.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kparproject/kpar/pkg/address"
	"github.com/kparproject/kpar/pkg/project"
	"github.com/kparproject/kpar/pkg/version"
)

// ErrResolutionFailed indicates that no configured index could supply a
// version of the project satisfying the constraint.
var ErrResolutionFailed = errors.New("resolution failed")

// Response limits per request type.
const (
	responseLimitVersions = 1 << 20  // 1MB
	responseLimitManifest = 4 << 20  // 4MB
	responseLimitSource   = 64 << 20 // 64MB
)

// Options configures the index client.
type Options struct {
	Timeout     time.Duration // HTTP client timeout (default 30s)
	MaxAttempts int           // retry attempts per request (default 3)
	Logger      *log.Logger
}

// Client queries one or more package indexes over HTTP.
type Client struct {
	indexes     []string
	httpClient  *http.Client
	maxAttempts int
	logger      *log.Logger
}

// NewClient creates an index client. Each index URL must be absolute;
// trailing slashes are stripped. Zero-value fields in opts receive
// defaults (30s timeout, 3 attempts, discarded logs).
func NewClient(indexes []string, opts Options) (*Client, error) {
	if len(indexes) == 0 {
		return nil, fmt.Errorf("at least one index URL is required")
	}
	normalized := make([]string, 0, len(indexes))
	for _, raw := range indexes {
		raw = strings.TrimSpace(raw)
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse index URL %q: %w", raw, err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("index URL %q must include scheme and host", raw)
		}
		normalized = append(normalized, strings.TrimRight(raw, "/"))
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	return &Client{
		indexes:     normalized,
		httpClient:  &http.Client{Timeout: opts.Timeout},
		maxAttempts: opts.MaxAttempts,
		logger:      logger,
	}, nil
}

// Indexes returns the normalized index URLs in query order.
func (c *Client) Indexes() []string {
	out := make([]string, len(c.indexes))
	copy(out, c.indexes)
	return out
}

// Location identifies a resolved project version on a specific index.
// Manifest and Metadata are the documents fetched during resolution.
type Location struct {
	IndexURL string
	IRI      string
	Address  address.Key
	Version  string
	Manifest *project.Manifest
	Metadata *project.Metadata
}

// projectURL returns the base URL of the project tree for this location.
func (l Location) projectURL() string {
	return fmt.Sprintf("%s/%s/%s.kpar", l.IndexURL, l.Address, l.Version)
}

// SourceURL returns the URL of a file inside the resolved project tree.
func (l Location) SourceURL(rel string) string {
	return l.projectURL() + "/" + strings.TrimPrefix(rel, "/")
}

// Resolve finds the greatest published version of iri satisfying
// constraint, trying each configured index in order. An index that
// cannot be reached, does not know the project, or fails to serve the
// manifest and metadata of the selected version is skipped; only when
// every index has been exhausted does Resolve return
// ErrResolutionFailed.
func (c *Client) Resolve(ctx context.Context, iri, constraint string) (*Location, error) {
	addr := address.ForIRI(iri)
	for _, indexURL := range c.indexes {
		versions, err := c.fetchVersions(ctx, indexURL, addr)
		if err != nil {
			c.logger.Debug("index skipped", "index", indexURL, "iri", iri, "err", err)
			continue
		}
		ver, ok := version.Select(versions, constraint)
		if !ok {
			c.logger.Debug("no matching version", "index", indexURL, "iri", iri, "constraint", constraint)
			continue
		}
		loc := &Location{
			IndexURL: indexURL,
			IRI:      iri,
			Address:  addr,
			Version:  ver,
		}
		loc.Manifest, loc.Metadata, err = c.Project(ctx, loc)
		if err != nil {
			c.logger.Debug("index skipped", "index", indexURL, "iri", iri, "err", err)
			continue
		}
		c.logger.Debug("resolved", "index", indexURL, "iri", iri, "version", ver)
		return loc, nil
	}
	if constraint == "" {
		return nil, fmt.Errorf("%w: no index provides %s", ErrResolutionFailed, iri)
	}
	return nil, fmt.Errorf("%w: no index provides %s matching %q", ErrResolutionFailed, iri, constraint)
}

// fetchVersions retrieves and parses <index>/<address>/versions.txt.
func (c *Client) fetchVersions(ctx context.Context, indexURL string, addr address.Key) ([]string, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/versions.txt", indexURL, addr), responseLimitVersions)
	if err != nil {
		return nil, err
	}
	var versions []string
	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			versions = append(versions, line)
		}
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("empty version list")
	}
	return versions, nil
}

// Project fetches and validates the manifest and metadata of a resolved
// location.
func (c *Client) Project(ctx context.Context, loc *Location) (*project.Manifest, *project.Metadata, error) {
	manifestBody, err := c.get(ctx, loc.SourceURL(project.ManifestName), responseLimitManifest)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch manifest for %s@%s: %w", loc.IRI, loc.Version, err)
	}
	manifest, err := project.ParseManifest(manifestBody)
	if err != nil {
		return nil, nil, fmt.Errorf("manifest for %s@%s: %w", loc.IRI, loc.Version, err)
	}
	metadataBody, err := c.get(ctx, loc.SourceURL(project.MetadataName), responseLimitManifest)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch metadata for %s@%s: %w", loc.IRI, loc.Version, err)
	}
	metadata, err := project.ParseMetadata(metadataBody)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata for %s@%s: %w", loc.IRI, loc.Version, err)
	}
	return manifest, metadata, nil
}

// FetchSource retrieves a single file from the resolved project tree.
func (c *Client) FetchSource(ctx context.Context, loc *Location, rel string) ([]byte, error) {
	return c.get(ctx, loc.SourceURL(rel), responseLimitSource)
}

// Download fetches the full project tree of a resolved location into
// destDir: the manifest, the metadata, and every file either of them
// names. destDir is created if needed.
func (c *Client) Download(ctx context.Context, loc *Location, destDir string) error {
	manifest, metadata := loc.Manifest, loc.Metadata
	if manifest == nil || metadata == nil {
		var err error
		manifest, metadata, err = c.Project(ctx, loc)
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return err
	}
	if err := project.Save(destDir, manifest, metadata); err != nil {
		return err
	}
	for _, rel := range metadata.SourcePaths(true) {
		data, err := c.FetchSource(ctx, loc, rel)
		if err != nil {
			return fmt.Errorf("fetch %s for %s@%s: %w", rel, loc.IRI, loc.Version, err)
		}
		path := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
	}
	c.logger.Info("downloaded", "iri", loc.IRI, "version", loc.Version, "index", loc.IndexURL)
	return nil
}

// get performs a GET with retry and reads at most maxBytes of the body.
func (c *Client) get(ctx context.Context, rawURL string, maxBytes int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := retryDo(c.httpClient, req, c.maxAttempts)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if readErr != nil {
		return nil, readErr
	}
	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("index request failed (GET %s): %s", req.URL.Path, msg)
	}
	return body, nil
}

package manifest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/hlsprobe/pkg/models"
)

// Fetcher retrieves raw manifest text over HTTP
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a manifest fetcher with the given request timeout
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the manifest at manifestURL and returns its text together
// with the base URL that relative segment URIs resolve against.
func (f *Fetcher) Fetch(ctx context.Context, manifestURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("invalid manifest URL: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("manifest fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read manifest body: %w", err)
	}

	return string(body), BaseURL(manifestURL), nil
}

// BaseURL returns the URL that relative references inside the manifest
// resolve against. Manifests fetched through a rewriting proxy carry the
// original URL in the proxy's "url" query parameter; relative references
// must resolve against that original, not the proxy itself.
func BaseURL(manifestURL string) string {
	parsed, err := url.Parse(manifestURL)
	if err != nil {
		return manifestURL
	}

	if original := parsed.Query().Get("url"); original != "" {
		if origParsed, err := url.Parse(original); err == nil && origParsed.IsAbs() {
			return original
		}
	}
	return manifestURL
}

// ResolveURI resolves a possibly-relative manifest reference against the
// playlist's base URL. Absolute references pass through unchanged.
func ResolveURI(baseURL, ref string) string {
	if ref == "" {
		return baseURL
	}
	if strings.Contains(ref, "://") {
		return ref
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}

// ResolvePlaylist rewrites every reference in the playlist to an absolute URL
// against its base, so callers can probe segments without re-deriving the
// proxy-aware base themselves.
func ResolvePlaylist(p *models.Playlist) {
	if p == nil || p.BaseURI == "" {
		return
	}

	for i := range p.QualityLevels {
		p.QualityLevels[i].URI = ResolveURI(p.BaseURI, p.QualityLevels[i].URI)
	}
	for i := range p.Segments {
		p.Segments[i].URI = ResolveURI(p.BaseURI, p.Segments[i].URI)
	}
	if p.InitSegmentURI != "" {
		p.InitSegmentURI = ResolveURI(p.BaseURI, p.InitSegmentURI)
	}
}

// Package fetch downloads catalog assets into a content-addressed disk cache.
//
// Cached files are named by the SHA-256 of their source URL so that repeated
// runs over the same region reuse earlier downloads. Writes go through a
// temporary file and a rename, which keeps concurrent fetches of the same
// asset from observing partial content.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/martibosch/swisstopopy/internal/observability"
)

// Cache implements domain.Fetcher backed by a local directory.
type Cache struct {
	dir        string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewCache creates a download cache rooted at dir, creating it if needed.
func NewCache(dir string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir: dir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Fetch returns a local path holding the content of rawURL, downloading it
// on first use and serving the cached copy afterwards.
func (c *Cache) Fetch(ctx context.Context, rawURL string) (string, error) {
	dst := c.path(rawURL)

	if _, err := os.Stat(dst); err == nil {
		c.metrics.FetchRequests.WithLabelValues("hit").Inc()
		c.logger.Debug("cache hit", "url", rawURL, "path", dst)
		return dst, nil
	}

	if err := c.download(ctx, rawURL, dst); err != nil {
		c.metrics.FetchRequests.WithLabelValues("error").Inc()
		return "", err
	}

	c.metrics.FetchRequests.WithLabelValues("miss").Inc()
	c.logger.Debug("cache miss", "url", rawURL, "path", dst)
	return dst, nil
}

// path maps a URL to its cache file. The asset's extension is kept so that
// raster tooling can sniff the format from the name.
func (c *Cache) path(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	name := hex.EncodeToString(sum[:])
	if u, err := url.Parse(rawURL); err == nil {
		name += path.Ext(u.Path)
	}
	return filepath.Join(c.dir, name)
}

func (c *Cache) download(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", rawURL, resp.StatusCode, body)
	}

	tmp, err := os.CreateTemp(c.dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}

	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("store %s: %w", dst, err)
	}

	c.metrics.FetchBytes.Add(float64(n))
	return nil
}

// Package download fetches generated CSV files from the conversion service.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// fallbackName is used when neither the response nor the URL names the file.
const fallbackName = "download.csv"

// maxAttempts bounds the search for a free "name (n).ext" variant.
const maxAttempts = 1000

// StatusError reports a non-2xx download response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s: HTTP %d", e.URL, e.Code)
}

// Result describes a saved file.
type Result struct {
	URL   string
	Path  string
	Bytes int64
}

// Client downloads artifacts into a directory.
type Client struct {
	HTTP   *http.Client
	Logger *slog.Logger
}

// New returns a Client using http.DefaultClient when hc is nil.
func New(hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{HTTP: hc, Logger: logger}
}

// Fetch GETs rawURL and saves the body under dir. The file name comes from
// the Content-Disposition header, falling back to the last URL segment.
// Existing files are never overwritten; a " (n)" suffix is added instead.
func (c *Client) Fetch(ctx context.Context, rawURL, dir string) (*Result, error) {
	if dir == "" {
		dir = "."
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid download url: %w", err)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".hiconvert-*.part")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save download: %w", err)
	}

	dest, err := claim(dir, FileName(resp.Header.Get("Content-Disposition"), rawURL), tmp.Name())
	if err != nil {
		return nil, err
	}

	c.Logger.Info("download saved", "url", rawURL, "path", dest, "bytes", n)
	return &Result{URL: rawURL, Path: dest, Bytes: n}, nil
}

// FileName picks a safe local base name for a download.
func FileName(disposition, rawURL string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			if name := sanitize(params["filename"]); name != "" {
				return name
			}
		}
	}

	if u, err := url.Parse(rawURL); err == nil {
		if name := sanitize(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return fallbackName
}

// sanitize strips directories and control characters from a server-supplied name.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

// claim moves src to the first free variant of dir/name. os.Link fails when
// the target exists, so two concurrent downloads never clobber each other.
func claim(dir, name, src string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 0; i < maxAttempts; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		dest := filepath.Join(dir, candidate)
		err := os.Link(src, dest)
		if err == nil {
			return dest, nil
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to save %s: %w", dest, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

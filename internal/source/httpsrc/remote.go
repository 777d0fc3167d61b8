package httpsrc

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
)

// Remote is a source backed by a single URL.
type Remote struct {
	client *Client
	url    string
	name   string
}

// NewRemote validates rawURL and binds it to c.
func NewRemote(c *Client, rawURL string) (*Remote, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("httpsrc: parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("httpsrc: unsupported scheme %q", u.Scheme)
	}
	return &Remote{client: c, url: rawURL, name: FilenameFromURL(u)}, nil
}

func (r *Remote) Name() string { return r.name }

// Open issues the GET. Any non-2xx final status is an error.
func (r *Remote) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := r.client.Get(ctx, r.url, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("httpsrc: GET %s: %s", r.url, resp.Status)
	}
	return resp.Body, nil
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// FilenameFromURL picks the last path segment ("exports/patients.csv" gives
// "patients.csv"). Without one it falls back to the cleaned query string, or
// a SHA-1 of the URL.
func FilenameFromURL(u *url.URL) string {
	if base := path.Base(u.Path); base != "/" && base != "." && base != "" {
		return base
	}
	if q := unsafeChars.ReplaceAllString(u.RawQuery, "_"); q != "" {
		return q
	}
	sum := sha1.Sum([]byte(u.String()))
	return hex.EncodeToString(sum[:])
}

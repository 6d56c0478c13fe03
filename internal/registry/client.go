package registry

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/npmyap/yap/internal/yaperr"
)

// Client fetches registry documents and tarballs over HTTPS, coalescing
// concurrent first-fetches of the same package name onto one round trip and
// caching documents to disk indefinitely.
type Client struct {
	base  string
	token string

	http  *http.Client
	cache *Cache
	sf    singleflight.Group
}

// NewClient constructs a Client. base is the registry root URL (trailing
// slashes are trimmed) and token, if non-empty, is sent as a Bearer
// credential.
func NewClient(base, token string, cache *Cache) *Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        256,
		MaxIdleConnsPerHost: 128,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: strings.TrimSpace(token),
		http:  &http.Client{Transport: tr, Timeout: 30 * time.Second},
		cache: cache,
	}
}

func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		resp, err := c.http.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		time.Sleep(time.Duration(100*(1<<attempt)) * time.Millisecond)
	}
	return nil, lastErr
}

// FetchMetadata returns the registry document for name, consulting the
// on-disk cache first and coalescing concurrent misses for the same name
// onto a single HTTP request.
func (c *Client) FetchMetadata(ctx context.Context, name string) (Document, error) {
	if doc, ok, err := c.cache.Get(name); err != nil {
		return Document{}, err
	} else if ok {
		return doc, nil
	}

	v, err, _ := c.sf.Do(name, func() (any, error) {
		// Re-check the cache: another goroutine may have populated it while
		// this one waited to be admitted to the singleflight call.
		if doc, ok, err := c.cache.Get(name); err != nil {
			return nil, err
		} else if ok {
			return doc, nil
		}

		u := c.base + "/" + name
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8, */*")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.doWithRetry(req)
		if err != nil {
			return nil, &yaperr.NetworkError{URL: u, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &yaperr.NetworkError{URL: u, Status: resp.StatusCode, Reason: resp.Status}
		}

		var doc Document
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, &yaperr.MetadataError{Package: name, Reason: "malformed registry document", Err: err}
		}

		if err := c.cache.Put(name, doc); err != nil {
			return nil, err
		}
		return doc, nil
	})
	if err != nil {
		return Document{}, err
	}
	return v.(Document), nil
}

// FetchTarball streams the gzip-compressed tarball at url. The caller is
// responsible for closing the returned reader.
func (c *Client) FetchTarball(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.doWithRetry(req)
	if err != nil {
		return nil, &yaperr.NetworkError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &yaperr.NetworkError{URL: url, Status: resp.StatusCode, Reason: resp.Status}
	}
	return resp.Body, nil
}

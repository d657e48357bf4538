package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// wireEntry is Entry's JSON wire form; []byte marshals as base64
// automatically via encoding/json.
type wireEntry struct {
	Payload     []byte    `json:"payload"`
	IsBinary    bool      `json:"isBinary"`
	ContentType string    `json:"contentType"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

func (w wireEntry) toEntry() Entry {
	return Entry{Payload: w.Payload, IsBinary: w.IsBinary, ContentType: w.ContentType, FetchedAt: w.FetchedAt}
}

func fromEntry(e Entry) wireEntry {
	return wireEntry{Payload: e.Payload, IsBinary: e.IsBinary, ContentType: e.ContentType, FetchedAt: e.FetchedAt}
}

// HTTPBackend is a Backend that stores entries in a REST key-value
// service, addressed by <baseURL>/<key>. This is deliberately a plain
// net/http client: no REST client library appears anywhere in the
// retrieved example pack.
type HTTPBackend struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPBackend returns an HTTPBackend against baseURL, authenticating
// with token via a bearer Authorization header when non-empty.
func NewHTTPBackend(baseURL, token string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (b *HTTPBackend) keyURL(key string) string {
	return b.baseURL + "/" + url.PathEscape(key)
}

func (b *HTTPBackend) authorize(req *http.Request) {
	if b.token != "" {
		req.Header.Set("Authorization", "Bearer "+b.token)
	}
}

// Get fetches key from the remote store. A 404 is a clean miss, not an
// error.
func (b *HTTPBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.keyURL(key), nil)
	if err != nil {
		return Entry{}, false, err
	}
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return Entry{}, false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Entry{}, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Entry{}, false, fmt.Errorf("remote cache: unexpected status %d", resp.StatusCode)
	}

	var wire wireEntry
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return Entry{}, false, err
	}
	return wire.toEntry(), true, nil
}

// Set upserts key by full overwrite; there is no partial-update path.
func (b *HTTPBackend) Set(ctx context.Context, key string, e Entry) error {
	body, err := json.Marshal(fromEntry(e))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, b.keyURL(key), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	b.authorize(req)

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("remote cache: unexpected status %d", resp.StatusCode)
	}
	return nil
}

package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"hlsproxy/internal/apierr"
)

// Client is a thin HTTP client to the external origin-discovery
// collaborator: the upstream service that actually knows how to scrape
// an anime site for episode sources, servers, search results and the
// home page listing. This package never scrapes anything itself.
type Client struct {
	baseURL string
	http    *http.Client

	initOnce int32
	initErr  error
	initFlt  singleflight.Group
}

// NewClient returns a Client bound to baseURL. Initialization (e.g. a
// warm-up ping) is deferred to the first call via Ready, not done here,
// so constructing a Client never fails.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Ready lazily performs one-time initialization the first time it is
// called, de-duplicating concurrent callers with single-flight so a
// stampede of simultaneous first requests only probes upstream once.
// A failed attempt is not cached as fatal: the next call retries.
func (c *Client) Ready(ctx context.Context) error {
	if atomic.LoadInt32(&c.initOnce) == 1 {
		return nil
	}
	_, err, _ := c.initFlt.Do("init", func() (interface{}, error) {
		if atomic.LoadInt32(&c.initOnce) == 1 {
			return nil, nil
		}
		if pingErr := c.ping(ctx); pingErr != nil {
			return nil, apierr.Wrap(apierr.Unavailable, pingErr)
		}
		atomic.StoreInt32(&c.initOnce, 1)
		return nil, nil
	})
	return err
}

func (c *Client) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("scraper collaborator unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// Servers fetches the list of available servers for an episode.
func (c *Client) Servers(ctx context.Context, animeEpisodeID string) (json.RawMessage, error) {
	return c.getJSON(ctx, "/episode/servers", url.Values{"animeEpisodeId": {animeEpisodeID}})
}

// Sources fetches the playable sources descriptor for one
// (episode, category, server) combination.
func (c *Client) Sources(ctx context.Context, animeEpisodeID string, category Category, server string) (json.RawMessage, error) {
	q := url.Values{
		"animeEpisodeId": {animeEpisodeID},
		"category":       {string(category)},
		"server":         {server},
	}
	return c.getJSON(ctx, "/episode/sources", q)
}

// Anime fetches metadata for one anime id.
func (c *Client) Anime(ctx context.Context, animeID string) (json.RawMessage, error) {
	return c.getJSON(ctx, "/anime/"+url.PathEscape(animeID), nil)
}

// Search fetches search results for a free-text query.
func (c *Client) Search(ctx context.Context, query string) (json.RawMessage, error) {
	return c.getJSON(ctx, "/search", url.Values{"q": {query}})
}

// Home fetches the home page listing (trending, recently added, etc).
func (c *Client) Home(ctx context.Context) (json.RawMessage, error) {
	return c.getJSON(ctx, "/home", nil)
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	if err := c.Ready(ctx); err != nil {
		return nil, err
	}

	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.BadGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apierr.New(apierr.NotFound, "not found")
	}
	if resp.StatusCode >= 400 {
		return nil, apierr.UpstreamStatus(resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apierr.Wrap(apierr.BadGateway, err)
	}
	return raw, nil
}

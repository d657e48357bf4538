package proxy

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"hlsproxy/internal/cache"
)

// permissiveGuard lets every request through, standing in for the real
// SSRF guard in tests that exercise httptest servers, which listen on
// loopback addresses the real guard would reject.
type permissiveGuard struct{}

func (permissiveGuard) Check(ctx context.Context, u *url.URL) error { return nil }

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	tier := cache.New(cache.Config{
		PlaylistCapacity: 100,
		PlaylistTTL:      time.Minute,
		SegmentCapacity:  100,
		SegmentTTL:       time.Minute,
	}, nil, nil, nil)

	return &Pipeline{
		Guard:   permissiveGuard{},
		Fetcher: NewFetcher(nil, ""),
		Cache:   tier,
		Builder: PassthroughBuilder{Endpoint: "/m3u8"},
	}
}

func TestPipeline_playlistCacheHitOnSecondRequest(t *testing.T) {
	var hits int
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = w.Write([]byte("#EXTM3U\nseg-0.ts\n"))
	}))
	defer origin.Close()

	p := newTestPipeline(t)
	u, _ := url.Parse(origin.URL + "/master.m3u8")
	ref := OriginRef{URL: u}

	first, err := p.Serve(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("first Serve: %v", err)
	}
	second, err := p.Serve(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("second Serve: %v", err)
	}

	if hits != 1 {
		t.Errorf("expected exactly one origin fetch, got %d", hits)
	}
	if string(first.Body) != string(second.Body) {
		t.Error("expected byte-identical bodies from cache")
	}
	if second.CacheStatus != "hit" {
		t.Errorf("expected second request to be a cache hit, got %q", second.CacheStatus)
	}
}

func TestPipeline_ssrfRejection(t *testing.T) {
	p := newTestPipeline(t)
	p.Guard = NewGuard("")
	u, _ := url.Parse("http://127.0.0.1/admin")

	_, err := p.Serve(context.Background(), OriginRef{URL: u}, "")
	if err == nil {
		t.Fatal("expected SSRF rejection")
	}
}

func TestPipeline_suffixlessPlaylistReclassifiedByContentType(t *testing.T) {
	var hits int
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		_, _ = w.Write([]byte("#EXTM3U\nseg-0.ts\n"))
	}))
	defer origin.Close()

	p := newTestPipeline(t)
	u, _ := url.Parse(origin.URL + "/deliver/abc123")
	ref := OriginRef{URL: u}

	res, err := p.Serve(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if res.Stream != nil {
		t.Fatal("expected a rewritten body, not a raw stream, for a content-type-revealed playlist")
	}
	if res.ContentType != "application/vnd.apple.mpegurl" {
		t.Errorf("ContentType = %q, want application/vnd.apple.mpegurl", res.ContentType)
	}
	if !bytes.Contains(res.Body, []byte("/m3u8?")) {
		t.Errorf("expected segment URI to be rewritten through the proxy endpoint, got %q", res.Body)
	}

	second, err := p.Serve(context.Background(), ref, "")
	if err != nil {
		t.Fatalf("second Serve: %v", err)
	}
	if second.CacheStatus != "hit" {
		t.Errorf("expected reclassified playlist to be cached, got %q", second.CacheStatus)
	}
	if hits != 2 {
		t.Errorf("suffix-less URLs always re-fetch to reclassify; expected 2 origin hits, got %d", hits)
	}
}

func TestPipeline_rangeRequestBypassesCache(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-1023/2048")
		w.Header().Set("Content-Type", "video/mp2t")
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer origin.Close()

	p := newTestPipeline(t)
	u, _ := url.Parse(origin.URL + "/seg-001.ts")

	res, err := p.Serve(context.Background(), OriginRef{URL: u}, "bytes=0-1023")
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if res.Stream != nil {
		defer res.Stream.Close()
	}
	if res.CacheStatus != "bypass" {
		t.Errorf("expected range request to bypass cache, got %q", res.CacheStatus)
	}
	if res.ContentRange != "bytes 0-1023/2048" {
		t.Errorf("Content-Range not propagated: %q", res.ContentRange)
	}

	key := OriginRef{URL: u}.CacheKey("seg", false)
	if _, ok := p.Cache.Get(context.Background(), key); ok {
		t.Error("range request must not persist a cache entry")
	}
}

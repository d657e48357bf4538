// Package cache implements the two-level Cache Tier from spec.md §4.F:
// in-process LRUs in front of a remote key-value store, with separate
// TTLs for playlists and segments. The in-process LRUs are bounded by
// entry count (Config's capacities); the total size of the cached
// payloads is not tracked and does not trigger eviction.
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"hlsproxy/internal/platform/metrics"
)

// maxRemoteBytes bounds what is ever written to the remote tier; larger
// segments bypass it but may still hit the in-process cache ephemerally.
const maxRemoteBytes = 10 << 20

// Entry is a stored cache value: the payload plus enough metadata to
// reconstruct response headers.
type Entry struct {
	Payload     []byte
	IsBinary    bool
	ContentType string
	FetchedAt   time.Time
}

// Backend is the remote key-value store's contract. Implementations
// (e.g. a REST client) never need local locking; failures are logged and
// treated as a miss/no-op by Tier.
type Backend interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry) error
}

// Config sizes the two in-process LRUs and their TTLs.
type Config struct {
	PlaylistCapacity int
	PlaylistTTL      time.Duration
	SegmentCapacity  int
	SegmentTTL       time.Duration
}

// Tier composes the in-process and remote caches behind the namespacing
// scheme from spec.md §3/§4.F: "seg:" keys live in the long-TTL segment
// LRU, everything else (chiefly "m3u8:") in the short-TTL playlist LRU.
type Tier struct {
	playlists *lru.LRU[string, Entry]
	segments  *lru.LRU[string, Entry]
	remote    Backend
	log       *slog.Logger
	met       *metrics.Metrics
}

// New returns a Tier. remote may be nil to run with only the in-process
// cache (e.g. in tests, or when no backend is configured).
func New(cfg Config, remote Backend, log *slog.Logger, met *metrics.Metrics) *Tier {
	return &Tier{
		playlists: lru.NewLRU[string, Entry](cfg.PlaylistCapacity, nil, cfg.PlaylistTTL),
		segments:  lru.NewLRU[string, Entry](cfg.SegmentCapacity, nil, cfg.SegmentTTL),
		remote:    remote,
		log:       log,
		met:       met,
	}
}

func (t *Tier) localFor(key string) *lru.LRU[string, Entry] {
	if strings.HasPrefix(key, "seg:") {
		return t.segments
	}
	return t.playlists
}

// Get tries the in-process cache first, then the remote backend on miss,
// warming the in-process cache from a remote hit. Remote I/O failures are
// logged and treated as a miss.
func (t *Tier) Get(ctx context.Context, key string) (Entry, bool) {
	local := t.localFor(key)
	if e, ok := local.Get(key); ok {
		t.incHit("local")
		return e, true
	}

	if t.remote != nil {
		e, ok, err := t.remote.Get(ctx, key)
		if err != nil {
			if t.log != nil {
				t.log.Warn("remote cache get failed", slog.String("key", key), slog.String("error", err.Error()))
			}
			if t.met != nil {
				t.met.IncCacheError()
			}
		} else if ok {
			local.Add(key, e)
			t.incHit("remote")
			return e, true
		}
	}

	if t.met != nil {
		t.met.IncCacheMiss()
	}
	return Entry{}, false
}

// Set writes e to the in-process cache unconditionally and to the remote
// backend when its payload is within the size policy. Cache entries are
// mutable only by full overwrite; the last writer for a key wins.
func (t *Tier) Set(ctx context.Context, key string, e Entry) {
	t.localFor(key).Add(key, e)

	if t.remote == nil || len(e.Payload) > maxRemoteBytes {
		return
	}
	if err := t.remote.Set(ctx, key, e); err != nil {
		if t.log != nil {
			t.log.Warn("remote cache set failed", slog.String("key", key), slog.String("error", err.Error()))
		}
		if t.met != nil {
			t.met.IncCacheError()
		}
	}
}

func (t *Tier) incHit(tier string) {
	if t.met != nil {
		t.met.IncCacheHit(tier)
	}
}

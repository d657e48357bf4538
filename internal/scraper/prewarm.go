package scraper

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"hlsproxy/internal/platform/metrics"
)

// Prewarmer schedules background refreshes of scraper cache entries so a
// user-facing request finds a warm record instead of paying the
// collaborator round trip inline. Concurrent prewarm requests for the
// same composite key collapse into a single in-flight fetch.
type Prewarmer struct {
	client *Client
	cache  *Cache
	log    *slog.Logger
	met    *metrics.Metrics
	flt    singleflight.Group
}

// NewPrewarmer wires a Prewarmer to the given client and cache.
func NewPrewarmer(client *Client, cache *Cache, log *slog.Logger, met *metrics.Metrics) *Prewarmer {
	return &Prewarmer{client: client, cache: cache, log: log, met: met}
}

// Target identifies one composite key to refresh.
type Target struct {
	EpisodeID string
	Category  Category
	Server    string
}

// Schedule fires off a background refresh for each target and returns
// immediately; it does not wait for any of them to complete. Duplicate
// targets already in flight are folded into the existing fetch via
// single-flight and do not count as additional upstream calls.
func (p *Prewarmer) Schedule(ctx context.Context, targets []Target) int {
	for _, t := range targets {
		t := t
		key := CompositeKey(t.EpisodeID, t.Category, t.Server)
		go func() {
			// Detach from the request's context: a prewarm refresh must
			// outlive the HTTP request that triggered it.
			bg := context.Background()
			if _, err, _ := p.flt.Do(key, func() (interface{}, error) {
				return nil, p.refresh(bg, t)
			}); err != nil && p.log != nil {
				p.log.Warn("prewarm refresh failed", slog.String("key", key), slog.String("error", err.Error()))
			}
		}()
	}
	if p.met != nil {
		p.met.IncPrewarmScheduled(len(targets))
	}
	return len(targets)
}

func (p *Prewarmer) refresh(ctx context.Context, t Target) error {
	key := CompositeKey(t.EpisodeID, t.Category, t.Server)
	if rec, ok := p.cache.Get(key); ok && rec.Fresh(time.Now()) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	payload, err := p.client.Sources(ctx, t.EpisodeID, t.Category, t.Server)
	if err != nil {
		return err
	}

	p.cache.Upsert(Record{
		EpisodeID: t.EpisodeID,
		Category:  t.Category,
		Server:    t.Server,
		Payload:   payload,
		FetchedAt: time.Now(),
	})
	return nil
}

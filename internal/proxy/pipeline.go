package proxy

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"hlsproxy/internal/apierr"
	"hlsproxy/internal/cache"
	"hlsproxy/internal/platform/metrics"
)

// maxCacheableBinaryBytes bounds how much of a binary body the pipeline
// will hold in memory in order to populate the cache tier; anything
// larger streams straight through without ever being cached.
const maxCacheableBinaryBytes = 10 << 20

// refererAffectsCache mirrors spec.md §3: two requests for the same
// origin URL but different Referer are treated as distinct cache
// entries only for playlists, where anti-hotlinking origins sometimes
// vary the manifest by Referer. Segment bytes never vary by Referer.
func refererAffectsCache(kind ResourceKind) bool {
	return kind == KindPlaylistM3U8 || kind == KindManifestMPD
}

// Result is what the Pipeline hands back to the HTTP layer: either a
// materialized body (text/small-binary, cacheable) or a live stream
// (opaque/oversized, never cached).
type Result struct {
	StatusCode  int
	ContentType string
	CacheStatus string // "hit", "miss", "bypass"

	Body []byte // set when Stream is nil

	Stream        io.ReadCloser // set for pass-through streaming
	ContentLength int64         // -1 if unknown
	ContentRange  string
	AcceptRanges  bool
}

// OriginGuard is the SSRF check the Pipeline depends on. *Guard is the
// only production implementation; tests substitute a permissive fake so
// they can exercise httptest servers, which listen on loopback.
type OriginGuard interface {
	Check(ctx context.Context, u *url.URL) error
}

// Pipeline is the top-level composition of the SSRF guard, fetcher,
// rewriters, and cache tier: spec.md §4.G's request state machine.
type Pipeline struct {
	Guard   OriginGuard
	Fetcher *Fetcher
	Cache   *cache.Tier
	Builder URLBuilder
	Log     *slog.Logger
	Met     *metrics.Metrics
}

// Serve runs one request through RECEIVE -> VALIDATE -> SSRF_CHECK ->
// CLASSIFY -> ... -> RESPOND. rangeHeader is the client's raw Range
// header value, or "" if absent.
func (p *Pipeline) Serve(ctx context.Context, ref OriginRef, rangeHeader string) (*Result, error) {
	if err := p.Guard.Check(ctx, ref.URL); err != nil {
		if p.Met != nil {
			p.Met.IncSSRFRejection()
		}
		return nil, err
	}

	kind, suffixKnown := classifyBySuffix(ref.URL)

	if suffixKnown && kind.TextRewritable() {
		return p.serveText(ctx, ref, kind)
	}
	if rangeHeader != "" {
		return p.serveRangedBinary(ctx, ref, rangeHeader)
	}
	if suffixKnown {
		return p.serveBinary(ctx, ref)
	}
	// No suffix in extKinds: classification has to wait for a real
	// Content-Type, since guessing Opaque here would permanently hide a
	// mislabeled playlist/manifest behind an unrewritten raw stream.
	return p.serveUnclassified(ctx, ref)
}

func (p *Pipeline) serveText(ctx context.Context, ref OriginRef, kind ResourceKind) (*Result, error) {
	key := ref.CacheKey(kind.String(), refererAffectsCache(kind))

	if e, ok := p.Cache.Get(ctx, key); ok {
		return &Result{
			StatusCode:    200,
			ContentType:   e.ContentType,
			CacheStatus:   "hit",
			Body:          e.Payload,
			ContentLength: int64(len(e.Payload)),
		}, nil
	}

	fr, err := p.Fetcher.Fetch(ctx, ref, "", true)
	if err != nil {
		return nil, err
	}
	return p.cacheText(ctx, ref, key, kind, fr)
}

// cacheText reads a fetched text body to completion, rewrites it, stores it
// under key, and returns the miss Result. fr.Body is always closed.
func (p *Pipeline) cacheText(ctx context.Context, ref OriginRef, key string, kind ResourceKind, fr *FetchResult) (*Result, error) {
	defer fr.Body.Close()

	body, err := io.ReadAll(fr.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.BadGateway, err)
	}

	rewritten, err := p.rewrite(kind, body, ref)
	if err != nil {
		if p.Met != nil {
			p.Met.IncRewriteError()
		}
		return nil, err
	}

	contentType := textContentType(kind)
	p.Cache.Set(ctx, key, cache.Entry{
		Payload:     rewritten,
		IsBinary:    false,
		ContentType: contentType,
		FetchedAt:   time.Now(),
	})

	return &Result{
		StatusCode:    fr.StatusCode,
		ContentType:   contentType,
		CacheStatus:   "miss",
		Body:          rewritten,
		ContentLength: int64(len(rewritten)),
	}, nil
}

func (p *Pipeline) rewrite(kind ResourceKind, body []byte, ref OriginRef) ([]byte, error) {
	switch kind {
	case KindPlaylistM3U8:
		return RewriteM3U8(body, ref.URL, ref.Referer, p.Builder)
	case KindSubtitleVTT:
		return RewriteVTT(body, ref.URL, ref.Referer, p.Builder)
	case KindManifestMPD:
		return RewriteMPD(body, ref.URL, ref.Referer, p.Builder)
	default:
		return body, nil
	}
}

func (p *Pipeline) serveBinary(ctx context.Context, ref OriginRef) (*Result, error) {
	key := ref.CacheKey("seg", false)

	if e, ok := p.Cache.Get(ctx, key); ok {
		return &Result{
			StatusCode:    200,
			ContentType:   e.ContentType,
			CacheStatus:   "hit",
			Body:          e.Payload,
			ContentLength: int64(len(e.Payload)),
		}, nil
	}

	fr, err := p.Fetcher.Fetch(ctx, ref, "", false)
	if err != nil {
		return nil, err
	}
	return p.cacheBinary(ctx, key, fr)
}

// cacheBinary peeks up to the cache size cap; beyond that it streams the
// rest through uncached rather than buffering unboundedly. fr.Body is
// closed unless the result carries a Stream.
func (p *Pipeline) cacheBinary(ctx context.Context, key string, fr *FetchResult) (*Result, error) {
	limited := io.LimitReader(fr.Body, maxCacheableBinaryBytes+1)
	buf, err := io.ReadAll(limited)
	if err != nil {
		fr.Body.Close()
		return nil, apierr.Wrap(apierr.BadGateway, err)
	}

	if int64(len(buf)) > maxCacheableBinaryBytes {
		return &Result{
			StatusCode:    fr.StatusCode,
			ContentType:   fr.Header.Get("Content-Type"),
			CacheStatus:   "bypass",
			Stream:        &prefixedBody{prefix: buf, rest: fr.Body},
			ContentLength: parseContentLength(fr.Header),
		}, nil
	}
	fr.Body.Close()

	contentType := fr.Header.Get("Content-Type")
	p.Cache.Set(ctx, key, cache.Entry{
		Payload:     buf,
		IsBinary:    true,
		ContentType: contentType,
		FetchedAt:   time.Now(),
	})

	return &Result{
		StatusCode:    fr.StatusCode,
		ContentType:   contentType,
		CacheStatus:   "miss",
		Body:          buf,
		ContentLength: int64(len(buf)),
	}, nil
}

// serveUnclassified handles URLs whose path suffix isn't in extKinds: the
// only way to tell a mislabeled playlist/manifest from a genuinely opaque
// resource is the origin's real Content-Type, so this always fetches
// before deciding, and therefore never serves from cache on the way in.
// Once the real kind is known it caches and responds exactly as the
// suffix-classified paths do.
func (p *Pipeline) serveUnclassified(ctx context.Context, ref OriginRef) (*Result, error) {
	fr, err := p.Fetcher.Fetch(ctx, ref, "", false)
	if err != nil {
		return nil, err
	}

	kind := classifyByContentType(fr.Header.Get("Content-Type"))

	if kind.TextRewritable() {
		key := ref.CacheKey(kind.String(), refererAffectsCache(kind))
		return p.cacheText(ctx, ref, key, kind, fr)
	}

	if kind == KindOpaque {
		return &Result{
			StatusCode:    fr.StatusCode,
			ContentType:   fr.Header.Get("Content-Type"),
			CacheStatus:   "bypass",
			Stream:        fr.Body,
			ContentLength: parseContentLength(fr.Header),
		}, nil
	}

	key := ref.CacheKey("seg", false)
	return p.cacheBinary(ctx, key, fr)
}

// serveRangedBinary always bypasses the cache: spec.md §4.F forbids
// persisting partial bodies.
func (p *Pipeline) serveRangedBinary(ctx context.Context, ref OriginRef, rangeHeader string) (*Result, error) {
	fr, err := p.Fetcher.Fetch(ctx, ref, rangeHeader, false)
	if err != nil {
		return nil, err
	}
	return &Result{
		StatusCode:    fr.StatusCode,
		ContentType:   fr.Header.Get("Content-Type"),
		CacheStatus:   "bypass",
		Stream:        fr.Body,
		ContentLength: parseContentLength(fr.Header),
		ContentRange:  fr.Header.Get("Content-Range"),
		AcceptRanges:  fr.Header.Get("Accept-Ranges") != "" || fr.StatusCode == 206,
	}, nil
}

func textContentType(kind ResourceKind) string {
	switch kind {
	case KindPlaylistM3U8:
		return "application/vnd.apple.mpegurl"
	case KindSubtitleVTT:
		return "text/vtt"
	case KindManifestMPD:
		return "application/dash+xml"
	default:
		return "application/octet-stream"
	}
}

func parseContentLength(h interface{ Get(string) string }) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// prefixedBody replays an already-read prefix before continuing to
// stream the remainder of rest, used when a binary body exceeded the
// cache size cap after some of it was already buffered for peeking.
type prefixedBody struct {
	prefix []byte
	off    int
	rest   io.ReadCloser
}

func (b *prefixedBody) Read(p []byte) (int, error) {
	if b.off < len(b.prefix) {
		n := copy(p, b.prefix[b.off:])
		b.off += n
		return n, nil
	}
	return b.rest.Read(p)
}

func (b *prefixedBody) Close() error {
	return b.rest.Close()
}

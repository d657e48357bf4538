// Package proxy implements the HLS proxy pipeline: classification, SSRF
// checks, origin fetching, manifest rewriting, URL signing, and the
// top-level request handler that composes them.
package proxy

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// ResourceKind is the tagged variant a URL is classified into. The first
// three are text-rewritable; the rest are binary-streamable.
type ResourceKind int

const (
	KindPlaylistM3U8 ResourceKind = iota
	KindSubtitleVTT
	KindManifestMPD
	KindMediaSegment
	KindImage
	KindOpaque
)

// TextRewritable reports whether k requires a manifest rewrite pass
// rather than a byte-for-byte stream.
func (k ResourceKind) TextRewritable() bool {
	switch k {
	case KindPlaylistM3U8, KindSubtitleVTT, KindManifestMPD:
		return true
	default:
		return false
	}
}

// Cacheable reports whether k's payload is a candidate for the segment
// cache tier at all (Opaque bypasses it entirely per the request pipeline
// state machine).
func (k ResourceKind) Cacheable() bool {
	return k != KindOpaque
}

func (k ResourceKind) String() string {
	switch k {
	case KindPlaylistM3U8:
		return "m3u8"
	case KindSubtitleVTT:
		return "vtt"
	case KindManifestMPD:
		return "mpd"
	case KindMediaSegment:
		return "segment"
	case KindImage:
		return "image"
	default:
		return "opaque"
	}
}

// OriginRef is the immutable (absolute URL, optional Referer) tuple that
// identifies a single origin request.
type OriginRef struct {
	URL     *url.URL
	Referer string
}

// hashKey returns the first 16 hex characters of sha256(s), the compact
// cache-key form spec'd for origin URLs and referers alike.
func hashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:16]
}

// CacheKey returns this origin reference's canonical cache key under the
// given namespace (a text kind's String(), e.g. "m3u8", or "seg"),
// suffixed with the referer's hash
// when refererAffectsCache is true.
func (o OriginRef) CacheKey(namespace string, refererAffectsCache bool) string {
	key := namespace + ":" + hashKey(o.URL.String())
	if refererAffectsCache && o.Referer != "" {
		key += "::ref=" + hashKey(o.Referer)
	}
	return key
}

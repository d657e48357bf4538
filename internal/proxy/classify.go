package proxy

import (
	"net/url"
	"path"
	"strings"

	"github.com/elnormous/contenttype"
)

// extKinds maps a lowercase path suffix to its Resource Kind. Suffix
// classification wins over Content-Type because origin hosts frequently
// mislabel playlists as application/octet-stream.
var extKinds = map[string]ResourceKind{
	".m3u8": KindPlaylistM3U8,
	".m3u":  KindPlaylistM3U8,
	".vtt":  KindSubtitleVTT,
	".srt":  KindSubtitleVTT,
	".mpd":  KindManifestMPD,
	".ts":   KindMediaSegment,
	".m4s":  KindMediaSegment,
	".mp4":  KindMediaSegment,
	".m4a":  KindMediaSegment,
	".aac":  KindMediaSegment,
	".key":  KindMediaSegment,
	".bin":  KindMediaSegment,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".webp": KindImage,
}

// ClassifyURL derives a Resource Kind for u. contentType is the response's
// Content-Type header, if known (pass "" before a response exists); the
// function is total and side-effect-free.
func ClassifyURL(u *url.URL, contentType string) ResourceKind {
	if kind, ok := classifyBySuffix(u); ok {
		return kind
	}
	return classifyByContentType(contentType)
}

// classifyBySuffix reports the Resource Kind implied by u's path suffix
// alone, and whether the suffix was recognized at all. Callers that only
// have a suffix to go on (no response yet) use the ok=false case to know
// a real Content-Type is needed before Kind can be decided.
func classifyBySuffix(u *url.URL) (ResourceKind, bool) {
	ext := strings.ToLower(path.Ext(u.Path))
	kind, ok := extKinds[ext]
	return kind, ok
}

func classifyByContentType(header string) ResourceKind {
	if header == "" {
		return KindOpaque
	}
	mt, err := contenttype.ParseMediaType(header)
	if err != nil {
		return KindOpaque
	}
	t := strings.ToLower(mt.Type)
	s := strings.ToLower(mt.Subtype)

	switch {
	case s == "vnd.apple.mpegurl" || s == "x-mpegurl":
		return KindPlaylistM3U8
	case t == "text" && s == "vtt":
		return KindSubtitleVTT
	case s == "dash+xml":
		return KindManifestMPD
	case t == "application" && s == "xml":
		return KindManifestMPD
	case t == "image":
		return KindImage
	case t == "application" && s == "json":
		// Structured data, never manifest text this proxy rewrites.
		return KindOpaque
	case t == "text":
		// Untyped text with no known suffix: in this domain that is
		// overwhelmingly a mislabeled playlist, not prose.
		return KindPlaylistM3U8
	default:
		return KindOpaque
	}
}

package proxy

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"hlsproxy/internal/apierr"
)

// Handler adapts a Pipeline (and, when signed handles are enabled, a
// Signer) to net/http.
type Handler struct {
	Pipeline *Pipeline
	Signer   *Signer // nil when running in pass-through mode
}

// ServeHTTP implements GET/HEAD /m3u8 per spec.md §6. The CORS envelope,
// including OPTIONS preflight, is handled by cors.Middleware upstream of
// this handler, not here.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		apierr.WriteError(w, apierr.New(apierr.BadRequest, "method not allowed"))
		return
	}

	ref, err := h.resolveOriginRef(r)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	result, err := h.Pipeline.Serve(r.Context(), ref, r.Header.Get("Range"))
	if err != nil {
		apierr.WriteError(w, err)
		return
	}
	defer func() {
		if result.Stream != nil {
			result.Stream.Close()
		}
	}()

	writeResult(w, r, result)
}

// resolveOriginRef derives the OriginRef for this request, either from a
// plain "url"/"ref" pass-through pair or by redeeming a signed "h" handle.
func (h *Handler) resolveOriginRef(r *http.Request) (OriginRef, error) {
	q := r.URL.Query()

	if token := q.Get("h"); token != "" {
		if h.Signer == nil {
			return OriginRef{}, apierr.New(apierr.BadRequest, "signed handles are not enabled")
		}
		handle, err := h.Signer.Verify(token)
		if err != nil {
			return OriginRef{}, apierr.New(apierr.NotFound, "handle unknown or expired")
		}
		u, err := url.Parse(handle.OriginURL)
		if err != nil {
			return OriginRef{}, apierr.New(apierr.NotFound, "handle unknown or expired")
		}
		return OriginRef{URL: u, Referer: handle.Referer}, nil
	}

	raw := q.Get("url")
	if raw == "" {
		return OriginRef{}, apierr.New(apierr.BadRequest, "missing url parameter")
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return OriginRef{}, apierr.New(apierr.BadRequest, "url parameter must be absolute")
	}
	return OriginRef{URL: u, Referer: q.Get("ref")}, nil
}

func writeResult(w http.ResponseWriter, r *http.Request, res *Result) {
	h := w.Header()
	if res.ContentType != "" {
		h.Set("Content-Type", res.ContentType)
	}
	if res.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(res.ContentLength, 10))
	}
	if res.ContentRange != "" {
		h.Set("Content-Range", res.ContentRange)
	}
	if res.AcceptRanges {
		h.Set("Accept-Ranges", "bytes")
	}
	h.Set("Cache-Control", cacheControlFor(res))

	status := res.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if r.Method == http.MethodHead {
		return
	}
	if res.Stream != nil {
		_, _ = io.Copy(w, res.Stream)
		return
	}
	_, _ = w.Write(res.Body)
}

// cacheControlFor derives the client-facing Cache-Control directive from
// the resource's ContentType alone. CacheStatus ("hit"/"miss"/"bypass")
// only describes whether this proxy's own storage tier was used and must
// not leak into the header a CDN or player sees: a >10MiB segment that
// bypasses the cache tier (pipeline.go's maxCacheableBinaryBytes cap)
// is still immutable origin content and gets pinned exactly like a
// cached one. Range responses (206) are the one exception — a partial
// body is never safe to cache under the full resource's key.
func cacheControlFor(res *Result) string {
	if res.ContentRange != "" || res.StatusCode == http.StatusPartialContent {
		return "no-store"
	}
	switch res.ContentType {
	case "application/vnd.apple.mpegurl", "application/dash+xml", "text/vtt":
		return "public, max-age=10"
	default:
		return "public, max-age=31536000, immutable"
	}
}

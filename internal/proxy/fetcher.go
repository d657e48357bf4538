package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"hlsproxy/internal/apierr"
)

const (
	textFetchTimeout   = 8 * time.Second
	binaryFetchTimeout = 12 * time.Second
	absoluteCeiling    = 30 * time.Second
	maxRedirects       = 10
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// FetchResult is what a successful Fetch returns: status, headers, and a
// body the caller must Close.
type FetchResult struct {
	StatusCode int
	Header     http.Header
	Body       io.ReadCloser
}

// Fetcher issues outbound HTTP to origins with browser-like headers,
// Referer/Origin forwarding, redirect following re-checked against the
// SSRF guard on every hop, and playlist retry-with-backoff.
type Fetcher struct {
	client         *http.Client
	guard          *Guard
	defaultReferer string
}

// NewFetcher returns a Fetcher whose redirects are checked against guard
// (nil disables the check, useful only in tests) and which falls back to
// defaultReferer when a request carries none.
func NewFetcher(guard *Guard, defaultReferer string) *Fetcher {
	f := &Fetcher{guard: guard, defaultReferer: defaultReferer}
	f.client = &http.Client{
		Timeout: absoluteCeiling,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errors.New("stopped after too many redirects")
			}
			if f.guard != nil {
				if err := f.guard.Check(req.Context(), req.URL); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return f
}

// Fetch issues the request for ref, forwarding rangeHeader if non-empty.
// isText selects the 8s/12s deadline and whether up to two retries with
// 200ms exponential backoff are attempted on timeout (segments fail fast).
func (f *Fetcher) Fetch(ctx context.Context, ref OriginRef, rangeHeader string, isText bool) (*FetchResult, error) {
	perAttempt := binaryFetchTimeout
	maxAttempts := 1
	if isText {
		perAttempt = textFetchTimeout
		maxAttempts = 3
	}

	backoff := 200 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &apierr.Error{Kind: apierr.Timeout, Err: ctx.Err()}
			}
			backoff *= 2
		}

		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		result, err := f.attempt(attemptCtx, ref, rangeHeader, cancel)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, lastErr
		}
	}
	return nil, &apierr.Error{Kind: apierr.Timeout, Message: "origin fetch timed out", Err: lastErr}
}

// attempt performs a single HTTP round trip. On success, cancel is
// deferred to the returned body's Close so the deadline covers the full
// read, not just headers.
func (f *Fetcher) attempt(ctx context.Context, ref OriginRef, rangeHeader string, cancel context.CancelFunc) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.URL.String(), nil)
	if err != nil {
		cancel()
		return nil, apierr.Wrap(apierr.BadRequest, err)
	}
	f.applyHeaders(req, ref.Referer)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		var ae *apierr.Error
		if errors.As(err, &ae) {
			return nil, ae
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, context.DeadlineExceeded
		}
		return nil, apierr.Wrap(apierr.BadGateway, err)
	}

	// 2xx and 3xx (the client already followed 3xx, so we only ever see
	// terminal statuses) plus 206 are success; everything else is an
	// UpstreamError mirroring the origin's status.
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		cancel()
		return nil, apierr.UpstreamStatus(resp.StatusCode)
	}

	return &FetchResult{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel},
	}, nil
}

func (f *Fetcher) applyHeaders(req *http.Request, referer string) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "identity")

	if referer == "" {
		referer = f.defaultReferer
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
		if refURL, err := parseOrigin(referer); err == nil {
			req.Header.Set("Origin", refURL)
		}
	}
}

// cancelOnCloseBody cancels the attempt's context deadline once the
// caller is done reading, rather than the moment headers arrive.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

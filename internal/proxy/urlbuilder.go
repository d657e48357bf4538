package proxy

import (
	"net/url"
	"regexp"
	"strings"
)

// URLBuilder mints the proxy-facing URL a rewriter substitutes for a
// resolved origin reference. Two strategies co-exist per spec.md §9:
// pass-through (origin URL visible in the query string) and signed
// handles (opaque, HMAC-bound). A deployment picks one via PassthroughBuilder
// or SignedBuilder.
type URLBuilder interface {
	// Build mints a proxy URL for a concrete, resolvable origin URL.
	Build(rawURL, referer string) string
	// BuildTemplate mints a proxy URL for an origin URL that still
	// contains unresolved DASH template tokens ($Number$, $Time$, ...),
	// which must survive byte-for-byte in the result.
	BuildTemplate(rawURLWithTokens, referer string) string
}

// PassthroughBuilder embeds the origin URL and referer directly in the
// proxy URL's query string: /<Endpoint>?url=<enc>&ref=<enc>.
type PassthroughBuilder struct {
	Endpoint string
}

func (b PassthroughBuilder) Build(rawURL, referer string) string {
	var q strings.Builder
	q.WriteString(b.Endpoint)
	q.WriteString("?url=")
	q.WriteString(url.QueryEscape(rawURL))
	if referer != "" {
		q.WriteString("&ref=")
		q.WriteString(url.QueryEscape(referer))
	}
	return q.String()
}

var templateTokenRe = regexp.MustCompile(`\$[A-Za-z0-9]+\$`)

func (b PassthroughBuilder) BuildTemplate(raw, referer string) string {
	var q strings.Builder
	q.WriteString(b.Endpoint)
	q.WriteString("?url=")
	q.WriteString(encodePreservingTemplates(raw))
	if referer != "" {
		q.WriteString("&ref=")
		q.WriteString(url.QueryEscape(referer))
	}
	return q.String()
}

// encodePreservingTemplates percent-encodes s for use as a query value
// while leaving any $Token$ substrings byte-for-byte intact, since a
// DASH player looks for those literal substrings after XML-decoding the
// attribute, not after further URL-decoding.
func encodePreservingTemplates(s string) string {
	locs := templateTokenRe.FindAllStringIndex(s, -1)
	if locs == nil {
		return url.QueryEscape(s)
	}
	var b strings.Builder
	last := 0
	for _, loc := range locs {
		b.WriteString(url.QueryEscape(s[last:loc[0]]))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(url.QueryEscape(s[last:]))
	return b.String()
}

// SignedBuilder mints an opaque, HMAC-signed handle instead of exposing
// the origin URL to the client.
type SignedBuilder struct {
	Endpoint string
	Signer   *Signer
}

func (b SignedBuilder) Build(rawURL, referer string) string {
	token := b.Signer.Mint(rawURL, referer)
	q := url.Values{}
	q.Set("h", token)
	return b.Endpoint + "?" + q.Encode()
}

// BuildTemplate falls back to pass-through: a template still containing
// $Number$/$Time$ is not a concrete, redeemable origin URL, so it cannot
// be bound to a single signed handle.
func (b SignedBuilder) BuildTemplate(raw, referer string) string {
	return PassthroughBuilder{Endpoint: b.Endpoint}.BuildTemplate(raw, referer)
}

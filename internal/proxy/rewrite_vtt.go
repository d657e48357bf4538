package proxy

import (
	"net/url"
	"regexp"

	"hlsproxy/internal/apierr"
)

// bareURLRe matches an absolute http(s) URL or a "./"/"../" relative
// reference appearing bare in cue text, the two forms WebVTT files use
// to point at external resources.
var bareURLRe = regexp.MustCompile(`https?://[^\s"'>]+|\.{1,2}/[^\s"'>]+`)

// RewriteVTT replaces every bare URL reference in a WebVTT file with a
// proxy URL, leaving timing cues, styling blocks, and surrounding
// whitespace untouched.
func RewriteVTT(body []byte, base *url.URL, referer string, ub URLBuilder) ([]byte, error) {
	if len(body) == 0 {
		return nil, apierr.Wrap(apierr.BadGateway, ErrEmptyUpstream)
	}

	out := bareURLRe.ReplaceAllFunc(body, func(match []byte) []byte {
		resolved := resolveURI(base, string(match))
		return []byte(ub.Build(resolved, referer))
	})
	return out, nil
}

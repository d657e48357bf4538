package proxy

import (
	"net/url"
	"strings"
)

// parseOrigin returns the scheme+host of rawURL, e.g. for building an
// Origin header from a Referer.
func parseOrigin(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return u.Scheme + "://" + u.Host, nil
}

// resolveURI resolves ref against base per the precedence in spec.md
// §4.C: absolute URLs pass through, protocol-relative and root-relative
// references borrow base's scheme/host, and anything else is resolved as
// a normal relative reference against base.
func resolveURI(base *url.URL, ref string) string {
	switch {
	case hasScheme(ref):
		return ref
	case len(ref) >= 2 && ref[0] == '/' && ref[1] == '/':
		return base.Scheme + ":" + ref
	case len(ref) >= 1 && ref[0] == '/':
		return base.Scheme + "://" + base.Host + ref
	default:
		u, err := base.Parse(ref)
		if err != nil {
			return ref
		}
		return u.String()
	}
}

func hasScheme(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

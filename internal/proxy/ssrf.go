package proxy

import (
	"context"
	"net"
	"net/url"
	"strings"

	"hlsproxy/internal/apierr"
)

// blockedHostnames are rejected regardless of what they resolve to.
var blockedHostnames = map[string]bool{
	"localhost": true,
}

// Guard enforces spec.md §4.D: reject origins that resolve to loopback,
// link-local, private ranges, or the proxy's own host.
type Guard struct {
	// ProxyHost, if set, is compared (case-insensitively, port-stripped)
	// against every candidate host.
	ProxyHost string
	Resolver  *net.Resolver
}

// NewGuard returns a Guard using net.DefaultResolver.
func NewGuard(proxyHost string) *Guard {
	return &Guard{ProxyHost: proxyHost, Resolver: net.DefaultResolver}
}

// Check rejects u if its scheme, hostname, or any resolved address is
// blocked. It is called both at request entry and, via a Fetcher's
// CheckRedirect, after every redirect hop.
func (g *Guard) Check(ctx context.Context, u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return apierr.New(apierr.Forbidden, "scheme not permitted")
	}

	host := u.Hostname()
	if host == "" {
		return apierr.New(apierr.Forbidden, "missing host")
	}
	lowerHost := strings.ToLower(host)

	if blockedHostnames[lowerHost] {
		return apierr.New(apierr.Forbidden, "Forbidden host")
	}
	if g.ProxyHost != "" && lowerHost == strings.ToLower(stripPort(g.ProxyHost)) {
		return apierr.New(apierr.Forbidden, "Forbidden host")
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return apierr.New(apierr.Forbidden, "Forbidden host")
		}
		return nil
	}

	resolver := g.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		// Unresolvable is not itself SSRF; the fetch will fail on its own.
		return nil
	}
	for _, addr := range addrs {
		if isBlockedIP(addr.IP) {
			return apierr.New(apierr.Forbidden, "Forbidden host")
		}
	}
	return nil
}

func stripPort(hostport string) string {
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		return h
	}
	return hostport
}

// isBlockedIP reports whether ip falls in loopback, link-local, private,
// unspecified, or the 0.0.0.0/8 "this network" range.
func isBlockedIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil && ip4[0] == 0 {
		return true
	}
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

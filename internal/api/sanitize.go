// Package api implements the auxiliary episode/anime/search/home
// endpoints that front the scraper cache and its origin-discovery
// collaborator.
package api

import (
	"net/url"
	"regexp"
)

// episodeIDRe matches an animeEpisodeId's base slug and optional
// numeric ?ep= suffix; any other query fragment is discarded.
var episodeIDRe = regexp.MustCompile(`^([^?]+)(\?ep=(\d+))?`)

// SanitizeEpisodeID URL-decodes id once and reduces it to
// "base[?ep=digits]", discarding any other query fragments.
func SanitizeEpisodeID(id string) (string, error) {
	decoded, err := url.QueryUnescape(id)
	if err != nil {
		return "", err
	}
	m := episodeIDRe.FindStringSubmatch(decoded)
	if m == nil || m[1] == "" {
		return "", errInvalidID
	}
	if m[3] == "" {
		return m[1], nil
	}
	return m[1] + "?ep=" + m[3], nil
}

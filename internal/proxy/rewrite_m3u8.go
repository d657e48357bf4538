package proxy

import (
	"net/url"
	"regexp"
	"strings"

	"hlsproxy/internal/apierr"
)

// uriAttrRe finds a quoted URI= attribute value inside a directive line,
// e.g. #EXT-X-KEY:METHOD=AES-128,URI="key.bin",IV=0x0.
var uriAttrRe = regexp.MustCompile(`URI="([^"]*)"`)

// RewriteM3U8 rewrites every URI reference in an M3U8 playlist so it
// resolves back through this proxy, per spec.md §4.C. Comment/directive
// lines without a URI= attribute are preserved byte-for-byte, including
// their original line ending; line count is preserved exactly.
func RewriteM3U8(body []byte, base *url.URL, referer string, ub URLBuilder) ([]byte, error) {
	if len(body) == 0 {
		return nil, apierr.Wrap(apierr.BadGateway, ErrEmptyUpstream)
	}

	lines := strings.Split(string(body), "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		hasCR := strings.HasSuffix(line, "\r")
		content := line
		if hasCR {
			content = line[:len(line)-1]
		}
		trimmed := strings.TrimSpace(content)

		switch {
		case trimmed == "":
			out[i] = line
			continue
		case strings.HasPrefix(trimmed, "#"):
			rewritten := rewriteDirectiveLine(content, base, referer, ub)
			if hasCR {
				rewritten += "\r"
			}
			out[i] = rewritten
		default:
			resolved := resolveURI(base, trimmed)
			rewritten := ub.Build(resolved, referer)
			if hasCR {
				rewritten += "\r"
			}
			out[i] = rewritten
		}
	}

	return []byte(strings.Join(out, "\n")), nil
}

// rewriteDirectiveLine rewrites URI="..." attributes on tag lines such as
// #EXT-X-KEY, #EXT-X-MAP, and #EXT-X-MEDIA. Directive lines carrying no
// such attribute are returned unchanged.
func rewriteDirectiveLine(content string, base *url.URL, referer string, ub URLBuilder) string {
	if !strings.Contains(content, `URI="`) {
		return content
	}
	return uriAttrRe.ReplaceAllStringFunc(content, func(match string) string {
		sub := uriAttrRe.FindStringSubmatch(match)
		if len(sub) != 2 {
			return match
		}
		resolved := resolveURI(base, sub[1])
		return `URI="` + ub.Build(resolved, referer) + `"`
	})
}

package proxy

import (
	"bytes"
	"encoding/xml"
	"io"
	"net/url"
	"strings"

	"hlsproxy/internal/apierr"
)

// mpdAttrTargets maps an element's local name to the attributes on it
// that carry a URL reference. SegmentTemplate's media/initialization
// attributes are included even though they usually still contain
// $Number$/$Time$ tokens; rewriteStartElement routes those through
// URLBuilder.BuildTemplate instead of Build so the tokens survive.
var mpdAttrTargets = map[string][]string{
	"Initialization":  {"sourceURL"},
	"SegmentURL":      {"media", "index"},
	"SegmentTemplate": {"media", "initialization"},
}

// RewriteMPD rewrites URL-bearing text and attributes in a DASH MPD
// manifest: <BaseURL> element text, and the attributes in mpdAttrTargets.
// It is a token-level pass over the XML rather than a regex substitution,
// because attribute values can carry $Number$/$Time$ templates that must
// survive unchanged (spec.md §4.C edge rule).
func RewriteMPD(body []byte, base *url.URL, referer string, ub URLBuilder) ([]byte, error) {
	if len(body) == 0 {
		return nil, apierr.Wrap(apierr.BadGateway, ErrEmptyUpstream)
	}

	dec := xml.NewDecoder(bytes.NewReader(body))
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	var stack []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierr.Wrap(apierr.Internal, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, t.Name.Local)
			rewritten := rewriteStartElement(t.Copy(), base, referer, ub)
			if err := enc.EncodeToken(rewritten); err != nil {
				return nil, apierr.Wrap(apierr.Internal, err)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if err := enc.EncodeToken(t); err != nil {
				return nil, apierr.Wrap(apierr.Internal, err)
			}
		case xml.CharData:
			data := t
			if len(stack) > 0 && stack[len(stack)-1] == "BaseURL" {
				resolved := resolveURI(base, strings.TrimSpace(string(t)))
				data = xml.CharData(ub.Build(resolved, referer))
			}
			if err := enc.EncodeToken(data); err != nil {
				return nil, apierr.Wrap(apierr.Internal, err)
			}
		default:
			if err := enc.EncodeToken(tok); err != nil {
				return nil, apierr.Wrap(apierr.Internal, err)
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return nil, apierr.Wrap(apierr.Internal, err)
	}
	return buf.Bytes(), nil
}

func rewriteStartElement(el xml.StartElement, base *url.URL, referer string, ub URLBuilder) xml.StartElement {
	targets, ok := mpdAttrTargets[el.Name.Local]
	if !ok {
		return el
	}
	for i, attr := range el.Attr {
		if !containsString(targets, attr.Name.Local) || attr.Value == "" {
			continue
		}
		resolved := resolveURI(base, attr.Value)
		if strings.Contains(resolved, "$") {
			el.Attr[i].Value = ub.BuildTemplate(resolved, referer)
		} else {
			el.Attr[i].Value = ub.Build(resolved, referer)
		}
	}
	return el
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

package proxy

import (
	"strings"
	"testing"
)

func TestRewriteMPD_baseURLAndSegmentTemplate(t *testing.T) {
	base := mustParse(t, "https://cdn.example/a/manifest.mpd")
	body := `<?xml version="1.0"?>
<MPD>
  <BaseURL>https://cdn.example/a/</BaseURL>
  <Period>
    <AdaptationSet>
      <SegmentTemplate media="chunk-$Number$.m4s" initialization="init-$RepresentationID$.m4s"/>
    </AdaptationSet>
  </Period>
</MPD>`

	out, err := RewriteMPD([]byte(body), base, "", PassthroughBuilder{Endpoint: "/m3u8"})
	if err != nil {
		t.Fatalf("RewriteMPD: %v", err)
	}
	s := string(out)

	if !strings.Contains(s, "/m3u8?url=") {
		t.Errorf("expected BaseURL rewritten through proxy: %s", s)
	}
	if !strings.Contains(s, "$Number$") {
		t.Errorf("expected $Number$ token to survive: %s", s)
	}
	if !strings.Contains(s, "$RepresentationID$") {
		t.Errorf("expected $RepresentationID$ token to survive: %s", s)
	}
	if strings.Contains(s, "%24Number%24") {
		t.Errorf("template token must not be percent-encoded: %s", s)
	}
}

func TestRewriteMPD_segmentURLAttributes(t *testing.T) {
	base := mustParse(t, "https://cdn.example/a/manifest.mpd")
	body := `<MPD><Period><AdaptationSet><Representation><SegmentList>
<Initialization sourceURL="init.mp4"/>
<SegmentURL media="seg-1.m4s" index="idx-1.sidx"/>
</SegmentList></Representation></AdaptationSet></Period></MPD>`

	out, err := RewriteMPD([]byte(body), base, "", PassthroughBuilder{Endpoint: "/m3u8"})
	if err != nil {
		t.Fatalf("RewriteMPD: %v", err)
	}
	s := string(out)

	if !strings.Contains(s, "sourceURL=\"/m3u8?url=") {
		t.Errorf("Initialization sourceURL not rewritten: %s", s)
	}
	if !strings.Contains(s, "media=\"/m3u8?url=") {
		t.Errorf("SegmentURL media not rewritten: %s", s)
	}
	if !strings.Contains(s, "index=\"/m3u8?url=") {
		t.Errorf("SegmentURL index not rewritten: %s", s)
	}
}

func TestRewriteMPD_rejectsEmptyBody(t *testing.T) {
	base := mustParse(t, "https://cdn.example/a/manifest.mpd")
	if _, err := RewriteMPD(nil, base, "", PassthroughBuilder{Endpoint: "/m3u8"}); err == nil {
		t.Error("expected error for empty body")
	}
}

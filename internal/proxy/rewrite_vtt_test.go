package proxy

import (
	"strings"
	"testing"
)

func TestRewriteVTT_replacesBareURLsOnly(t *testing.T) {
	base := mustParse(t, "https://cdn.example/a/subs.vtt")
	body := "WEBVTT\n\n00:00:01.000 --> 00:00:04.000\nHello <c>world</c> https://cdn.example/img/logo.png\n\n00:00:05.000 --> 00:00:08.000\nSee ../assets/note.png\n"

	out, err := RewriteVTT([]byte(body), base, "", PassthroughBuilder{Endpoint: "/m3u8"})
	if err != nil {
		t.Fatalf("RewriteVTT: %v", err)
	}
	s := string(out)

	if !strings.HasPrefix(s, "WEBVTT\n\n00:00:01.000 --> 00:00:04.000\n") {
		t.Errorf("cue timing/header not preserved: %q", s)
	}
	if strings.Contains(s, "https://cdn.example/img/logo.png") {
		t.Error("bare absolute URL was not rewritten")
	}
	if strings.Contains(s, "../assets/note.png") {
		t.Error("bare relative reference was not rewritten")
	}
	if !strings.Contains(s, "<c>world</c>") {
		t.Error("styling tag should survive untouched")
	}
}

func TestRewriteVTT_rejectsEmptyBody(t *testing.T) {
	base := mustParse(t, "https://cdn.example/a/subs.vtt")
	if _, err := RewriteVTT(nil, base, "", PassthroughBuilder{Endpoint: "/m3u8"}); err == nil {
		t.Error("expected error for empty body")
	}
}

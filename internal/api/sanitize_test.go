package api

import "testing"

func TestSanitizeEpisodeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"one-piece", "one-piece"},
		{"one-piece?ep=42", "one-piece?ep=42"},
		{"one-piece%3Fep%3D42", "one-piece?ep=42"},
		{"one-piece?ep=42&extra=junk", "one-piece?ep=42"},
	}
	for _, c := range cases {
		got, err := SanitizeEpisodeID(c.in)
		if err != nil {
			t.Errorf("SanitizeEpisodeID(%q) error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("SanitizeEpisodeID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeEpisodeID_rejectsEmpty(t *testing.T) {
	if _, err := SanitizeEpisodeID(""); err == nil {
		t.Error("expected error for empty id")
	}
}

package proxy

import "testing"

func TestResolveURI_allPrecedenceForms(t *testing.T) {
	base := mustParse(t, "https://cdn.example/a/b/master.m3u8")

	cases := []struct {
		ref  string
		want string
	}{
		{"https://other.example/x.ts", "https://other.example/x.ts"},
		{"//cdn.example/x.ts", "https://cdn.example/x.ts"},
		{"/root/x.ts", "https://cdn.example/root/x.ts"},
		{"seg.ts", "https://cdn.example/a/b/seg.ts"},
		{"../c/seg.ts", "https://cdn.example/a/c/seg.ts"},
	}
	for _, c := range cases {
		got := resolveURI(base, c.ref)
		if got != c.want {
			t.Errorf("resolveURI(%q) = %q, want %q", c.ref, got, c.want)
		}
	}
}

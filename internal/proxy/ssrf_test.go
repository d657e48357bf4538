package proxy

import (
	"context"
	"testing"
)

func TestGuard_blocksLoopbackAndPrivateRanges(t *testing.T) {
	g := NewGuard("proxy.example:8080")
	blocked := []string{
		"http://127.0.0.1/admin",
		"http://localhost/admin",
		"http://[::1]/admin",
		"http://10.0.0.5/",
		"http://172.16.0.5/",
		"http://192.168.1.5/",
		"http://169.254.169.254/latest/meta-data",
		"http://0.0.0.0/",
		"http://proxy.example/self",
		"ftp://cdn.example/a",
	}
	for _, raw := range blocked {
		u := mustParse(t, raw)
		if err := g.Check(context.Background(), u); err == nil {
			t.Errorf("expected %q to be blocked", raw)
		}
	}
}

func TestGuard_permitsPublicHosts(t *testing.T) {
	g := NewGuard("proxy.example:8080")
	allowed := []string{
		"https://8.8.8.8/",
		"https://cdn.example/a/master.m3u8",
	}
	for _, raw := range allowed {
		u := mustParse(t, raw)
		if err := g.Check(context.Background(), u); err != nil {
			t.Errorf("expected %q to be permitted, got %v", raw, err)
		}
	}
}

package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newFakeCollaborator(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/episode/sources", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"servers":["hd-1"]}`))
	})
	return httptest.NewServer(mux)
}

func TestPrewarmer_scheduleUpsertsCache(t *testing.T) {
	srv := newFakeCollaborator(t)
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	cache := NewCache()
	p := NewPrewarmer(client, cache, nil, nil)

	targets := []Target{
		{EpisodeID: "one-piece?ep=1", Category: CategorySub, Server: "hd-1"},
		{EpisodeID: "one-piece?ep=2", Category: CategorySub, Server: "hd-1"},
	}
	count := p.Schedule(context.Background(), targets)
	if count != 2 {
		t.Fatalf("Schedule returned count=%d, want 2", count)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, ok1 := cache.Get(CompositeKey("one-piece?ep=1", CategorySub, "hd-1"))
		_, ok2 := cache.Get(CompositeKey("one-piece?ep=2", CategorySub, "hd-1"))
		if ok1 && ok2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected both targets to be upserted into the cache within the deadline")
}

func TestPrewarmer_refreshSkipsFreshEntry(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	mux.HandleFunc("/episode/sources", func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"servers":["hd-1"]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewClient(srv.URL, 2*time.Second)
	cache := NewCache()
	target := Target{EpisodeID: "one-piece?ep=1", Category: CategorySub, Server: "hd-1"}
	cache.Upsert(Record{
		EpisodeID: target.EpisodeID,
		Category:  target.Category,
		Server:    target.Server,
		FetchedAt: time.Now(),
	})

	p := NewPrewarmer(client, cache, nil, nil)
	if err := p.refresh(context.Background(), target); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if hits != 0 {
		t.Errorf("expected a fresh entry to skip the collaborator round trip, got %d hits", hits)
	}
}

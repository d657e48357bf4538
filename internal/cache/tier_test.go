package cache

import (
	"context"
	"testing"
	"time"
)

func TestTier_setThenGet_localHit(t *testing.T) {
	tier := New(Config{
		PlaylistCapacity: 10,
		PlaylistTTL:      time.Minute,
		SegmentCapacity:  10,
		SegmentTTL:       time.Minute,
	}, nil, nil, nil)

	ctx := context.Background()
	entry := Entry{Payload: []byte("#EXTM3U\n"), ContentType: "application/vnd.apple.mpegurl", FetchedAt: time.Now()}
	tier.Set(ctx, "m3u8:abc", entry)

	got, ok := tier.Get(ctx, "m3u8:abc")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got.Payload) != string(entry.Payload) {
		t.Errorf("payload mismatch: %q", got.Payload)
	}
}

func TestTier_missReturnsFalse(t *testing.T) {
	tier := New(Config{PlaylistCapacity: 10, PlaylistTTL: time.Minute, SegmentCapacity: 10, SegmentTTL: time.Minute}, nil, nil, nil)
	if _, ok := tier.Get(context.Background(), "m3u8:nope"); ok {
		t.Error("expected miss")
	}
}

func TestTier_segmentAndPlaylistNamespacesAreIndependent(t *testing.T) {
	tier := New(Config{PlaylistCapacity: 10, PlaylistTTL: time.Minute, SegmentCapacity: 10, SegmentTTL: time.Minute}, nil, nil, nil)
	ctx := context.Background()

	tier.Set(ctx, "seg:abc", Entry{Payload: []byte("binary"), IsBinary: true, FetchedAt: time.Now()})
	if _, ok := tier.Get(ctx, "m3u8:abc"); ok {
		t.Error("playlist namespace should not see the segment entry")
	}
	if _, ok := tier.Get(ctx, "seg:abc"); !ok {
		t.Error("expected segment entry to be retrievable under its own key")
	}
}

type fakeBackend struct {
	store map[string]Entry
}

func (f *fakeBackend) Get(ctx context.Context, key string) (Entry, bool, error) {
	e, ok := f.store[key]
	return e, ok, nil
}

func (f *fakeBackend) Set(ctx context.Context, key string, e Entry) error {
	f.store[key] = e
	return nil
}

func TestTier_remoteHitWarmsLocal(t *testing.T) {
	backend := &fakeBackend{store: map[string]Entry{
		"m3u8:remote": {Payload: []byte("remote-body"), FetchedAt: time.Now()},
	}}
	tier := New(Config{PlaylistCapacity: 10, PlaylistTTL: time.Minute, SegmentCapacity: 10, SegmentTTL: time.Minute}, backend, nil, nil)

	got, ok := tier.Get(context.Background(), "m3u8:remote")
	if !ok || string(got.Payload) != "remote-body" {
		t.Fatalf("expected remote hit to surface, got ok=%v payload=%q", ok, got.Payload)
	}

	// Delete from backend; local should still serve since it was warmed.
	delete(backend.store, "m3u8:remote")
	got2, ok2 := tier.Get(context.Background(), "m3u8:remote")
	if !ok2 || string(got2.Payload) != "remote-body" {
		t.Error("expected local cache to have been warmed by the remote hit")
	}
}

func TestTier_oversizedPayloadSkipsRemote(t *testing.T) {
	backend := &fakeBackend{store: map[string]Entry{}}
	tier := New(Config{PlaylistCapacity: 10, PlaylistTTL: time.Minute, SegmentCapacity: 10, SegmentTTL: time.Minute}, backend, nil, nil)

	oversized := make([]byte, maxRemoteBytes+1)
	tier.Set(context.Background(), "seg:big", Entry{Payload: oversized, IsBinary: true, FetchedAt: time.Now()})

	if _, ok := backend.store["seg:big"]; ok {
		t.Error("oversized payload should not have been written to the remote backend")
	}
	if _, ok := tier.Get(context.Background(), "seg:big"); !ok {
		t.Error("oversized payload should still be served from the local cache")
	}
}

package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeFetcher struct {
	name    string
	items   []RawItem
	err     error
	panics  bool
	sources []string
}

func (f *fakeFetcher) Name() string { return f.name }

func (f *fakeFetcher) Fetch(ctx context.Context) ([]RawItem, error) {
	if f.panics {
		panic("adapter exploded")
	}
	return f.items, f.err
}

type listingFetcher struct {
	fakeFetcher
}

func (f *listingFetcher) Sources(ctx context.Context) ([]string, error) {
	return f.sources, f.err
}

type fakeSink struct {
	mu      sync.Mutex
	batches [][]RawItem
	err     error
}

func (s *fakeSink) UpsertBatch(ctx context.Context, items []RawItem) (StoreStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, items)
	if s.err != nil {
		return StoreStats{}, s.err
	}
	return StoreStats{Inserted: len(items)}, nil
}

func makeItems(prefix string, n int) []RawItem {
	out := make([]RawItem, n)
	for i := range out {
		out[i] = RawItem{Title: prefix, URL: prefix + "/" + string(rune('a'+i))}
	}
	return out
}

func TestCollectCycleIsolatesFailingFetchers(t *testing.T) {
	sink := &fakeSink{}
	c := New([]Fetcher{
		&fakeFetcher{name: "ok-1", items: makeItems("one", 3)},
		&fakeFetcher{name: "broken", err: errors.New("network down")},
		&fakeFetcher{name: "panicky", panics: true},
		&fakeFetcher{name: "ok-2", items: makeItems("two", 2)},
	}, sink, nil, 2, time.Second)

	n, err := c.CollectCycle(context.Background())
	if err != nil {
		t.Fatalf("CollectCycle error: %v", err)
	}
	if n != 5 {
		t.Fatalf("inserted = %d, want 5", n)
	}
	if len(sink.batches) != 1 {
		t.Fatalf("expected a single batch, got %d", len(sink.batches))
	}

	// 合并顺序与 fetcher 注册顺序一致
	batch := sink.batches[0]
	if batch[0].Title != "one" || batch[len(batch)-1].Title != "two" {
		t.Fatalf("unexpected batch order: %+v", batch)
	}
}

func TestCollectCycleEmptySkipsStore(t *testing.T) {
	sink := &fakeSink{}
	c := New([]Fetcher{&fakeFetcher{name: "empty"}}, sink, nil, 0, 0)

	n, err := c.CollectCycle(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("CollectCycle = %d, %v; want 0, nil", n, err)
	}
	if len(sink.batches) != 0 {
		t.Fatalf("store should not be called for an empty cycle")
	}
}

func TestCollectCycleStoreError(t *testing.T) {
	sink := &fakeSink{err: errors.New("db unavailable")}
	c := New([]Fetcher{&fakeFetcher{name: "ok", items: makeItems("x", 1)}}, sink, nil, 1, time.Second)

	if _, err := c.CollectCycle(context.Background()); err == nil {
		t.Fatalf("expected store error to propagate")
	}
}

func TestCollectCycleFetchTimeout(t *testing.T) {
	slow := &slowFetcher{}
	sink := &fakeSink{}
	c := New([]Fetcher{slow, &fakeFetcher{name: "fast", items: makeItems("f", 1)}}, sink, nil, 2, 20*time.Millisecond)

	n, err := c.CollectCycle(context.Background())
	if err != nil {
		t.Fatalf("CollectCycle error: %v", err)
	}
	if n != 1 {
		t.Fatalf("slow fetcher should be cut off, inserted = %d", n)
	}
}

type slowFetcher struct{}

func (s *slowFetcher) Name() string { return "slow" }

func (s *slowFetcher) Fetch(ctx context.Context) ([]RawItem, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestListAvailableSources(t *testing.T) {
	c := New([]Fetcher{
		&listingFetcher{fakeFetcher{name: "api", sources: []string{"cnn", "bbc-news"}}},
		&listingFetcher{fakeFetcher{name: "rss", sources: []string{"www.bbc.com", "cnn"}}},
		&listingFetcher{fakeFetcher{name: "down", err: errors.New("boom")}},
		&fakeFetcher{name: "plain"},
	}, &fakeSink{}, nil, 1, time.Second)

	got, err := c.ListAvailableSources(context.Background())
	if err != nil {
		t.Fatalf("ListAvailableSources error: %v", err)
	}
	want := []string{"bbc-news", "cnn", "www.bbc.com"}
	if len(got) != len(want) {
		t.Fatalf("sources = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sources = %v, want %v", got, want)
		}
	}
}

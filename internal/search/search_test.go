package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andrewy1n/platypus-academy/internal/model"
)

func TestBuildQuery(t *testing.T) {
	t.Parallel()
	got := BuildQuery(model.PipelineRequest{Subject: "Biology", Topics: []string{"DNA replication", " ", "mitosis"}})
	want := "Biology DNA replication mitosis textbook practice questions"
	if got != want {
		t.Fatalf("BuildQuery = %q, want %q", got, want)
	}
}

func TestRank_OpenHostsFirstPDFLast(t *testing.T) {
	t.Parallel()
	in := []model.Source{
		{URL: "https://example.com/quiz.pdf"},
		{URL: "https://shop.example.com/biology"},
		{URL: "https://bio.libretexts.org/Bookshelves/Genetics"},
		{URL: "https://shop.example.com/biology"},
		{URL: "https://openstax.org/books/biology-2e"},
		{URL: "https://other.example.org/page"},
	}
	got := Rank(in, 4)
	want := []string{
		"https://bio.libretexts.org/Bookshelves/Genetics",
		"https://openstax.org/books/biology-2e",
		"https://shop.example.com/biology",
		"https://other.example.org/page",
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].URL != want[i] {
			t.Fatalf("rank[%d] = %s, want %s", i, got[i].URL, want[i])
		}
	}
}

func TestBrave_Search(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("q") == "" || r.URL.Query().Get("count") != "6" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"web":{"results":[
			{"title":"","url":"https://example.com/a","description":" first "},
			{"title":"OpenStax","url":"https://openstax.org/b","description":"second"},
			{"title":"skip","url":"","description":""}
		]}}`))
	}))
	defer srv.Close()

	b := NewBrave("key", srv.URL, 2)
	got, err := b.Search(context.Background(), model.PipelineRequest{Subject: "Biology"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	if got[0].URL != "https://openstax.org/b" {
		t.Fatalf("expected open host first, got %s", got[0].URL)
	}
	if got[1].Title != "https://example.com/a" || got[1].Snippet != "first" {
		t.Fatalf("unexpected fallback title or snippet: %+v", got[1])
	}
}

func TestBrave_ClientErrorIsNotRetried(t *testing.T) {
	t.Parallel()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("quota exceeded"))
	}))
	defer srv.Close()

	_, err := NewBrave("key", srv.URL, 4).Search(context.Background(), model.PipelineRequest{Subject: "Math"})
	if err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("expected upstream message, got %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("calls = %d, want 1", n)
	}
}

func TestBrave_MissingKey(t *testing.T) {
	t.Parallel()
	if _, err := NewBrave("", "", 0).Search(context.Background(), model.PipelineRequest{Subject: "Math"}); err == nil {
		t.Fatalf("expected error without api key")
	}
}

type memCache struct {
	mu   sync.Mutex
	data map[string][]model.Source
}

func (m *memCache) Get(_ context.Context, key string) ([]model.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memCache) Set(_ context.Context, key string, s []model.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = s
	return nil
}

type countingSearcher struct {
	calls int32
	delay time.Duration
	err   error
}

func (c *countingSearcher) Search(context.Context, model.PipelineRequest) ([]model.Source, error) {
	atomic.AddInt32(&c.calls, 1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	return []model.Source{{URL: "https://openstax.org/x"}}, nil
}

type hitRecorder struct {
	hits, misses int32
}

func (h *hitRecorder) SearchCache(hit bool) {
	if hit {
		atomic.AddInt32(&h.hits, 1)
		return
	}
	atomic.AddInt32(&h.misses, 1)
}

func TestCached_ServesRepeatsFromCache(t *testing.T) {
	t.Parallel()
	next := &countingSearcher{}
	rec := &hitRecorder{}
	c := NewCached(next, &memCache{data: map[string][]model.Source{}})
	c.SetRecorder(rec)

	req := model.PipelineRequest{Subject: "Biology", Topics: []string{"DNA", "RNA"}}
	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), req); err != nil {
			t.Fatalf("search: %v", err)
		}
	}
	swapped := model.PipelineRequest{Subject: "biology", Topics: []string{"rna", "dna"}}
	if _, err := c.Search(context.Background(), swapped); err != nil {
		t.Fatalf("search: %v", err)
	}
	if n := atomic.LoadInt32(&next.calls); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
	if rec.hits != 3 || rec.misses != 1 {
		t.Fatalf("hits=%d misses=%d", rec.hits, rec.misses)
	}
}

func TestCached_CollapsesConcurrentMisses(t *testing.T) {
	t.Parallel()
	next := &countingSearcher{delay: 50 * time.Millisecond}
	c := NewCached(next, &memCache{data: map[string][]model.Source{}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Search(context.Background(), model.PipelineRequest{Subject: "Chemistry"}); err != nil {
				t.Errorf("search: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(&next.calls); n != 1 {
		t.Fatalf("upstream calls = %d, want 1", n)
	}
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	t.Parallel()
	next := &countingSearcher{err: errors.New("upstream down")}
	cache := &memCache{data: map[string][]model.Source{}}
	c := NewCached(next, cache)
	if _, err := c.Search(context.Background(), model.PipelineRequest{Subject: "Physics"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(cache.data) != 0 {
		t.Fatalf("error result was cached")
	}
}

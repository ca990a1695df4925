package crawler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/urlkey"
)

func newTestFrontier(t *testing.T) (*Frontier, *Ledger) {
	t.Helper()
	norm, err := urlkey.NewNormalizer("https://example.com/")
	if err != nil {
		t.Fatalf("NewNormalizer() error = %v", err)
	}
	ledger := NewLedger()
	return NewFrontier(norm, ledger), ledger
}

func TestLedger_MarkVisitedOnce(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	key := urlkey.Key("https://example.com/")

	var wins atomic.Int32
	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ledger.MarkPageVisited(key) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := wins.Load(); got != 1 {
		t.Errorf("MarkPageVisited returned true %d times, want 1", got)
	}
}

func TestLedger_PartitionsAreExclusive(t *testing.T) {
	t.Parallel()

	ledger := NewLedger()
	key := urlkey.Key("https://example.com/about")

	if !ledger.MarkAssetVisited(key) {
		t.Fatal("first MarkAssetVisited should succeed")
	}
	if ledger.MarkAssetVisited(key) {
		t.Error("second MarkAssetVisited should fail")
	}
	if ledger.MarkPageVisited(key) {
		t.Error("MarkPageVisited of a claimed asset should fail")
	}
	if !ledger.Visited(key) {
		t.Error("Visited() = false, want true")
	}
	if len(ledger.Pages()) != 0 || len(ledger.Assets()) != 1 {
		t.Errorf("Pages() = %v, Assets() = %v", ledger.Pages(), ledger.Assets())
	}
}

func TestFrontier_Seed(t *testing.T) {
	t.Parallel()

	f, ledger := newTestFrontier(t)
	ledger.MarkPageVisited("https://example.com/done.html")

	added := f.Seed([]string{
		"https://example.com/",
		"https://example.com/?utm=1",
		"https://example.com/blog/",
		"https://other.org/",
		"mailto:me@example.com",
		"https://example.com/done.html",
	})
	if added != 2 {
		t.Errorf("Seed() added %d, want 2", added)
	}
	if f.Pending() != 2 {
		t.Errorf("Pending() = %d, want 2", f.Pending())
	}
}

func TestFrontier_EnqueuePagesSkipsPendingAndVisited(t *testing.T) {
	t.Parallel()

	f, ledger := newTestFrontier(t)
	ledger.MarkPageVisited("https://example.com/a.html")

	keys := urlkey.NewKeySet("https://example.com/a.html", "https://example.com/b.html")
	if got := f.EnqueuePages(keys); got != 1 {
		t.Errorf("EnqueuePages() = %d, want 1", got)
	}
	if got := f.EnqueuePages(keys); got != 0 {
		t.Errorf("second EnqueuePages() = %d, want 0", got)
	}
}

func TestFrontier_ClaimNext(t *testing.T) {
	t.Parallel()

	f, _ := newTestFrontier(t)
	if _, ok := f.ClaimNext(); ok {
		t.Fatal("ClaimNext() on empty frontier should report emptiness")
	}

	f.EnqueuePages(urlkey.NewKeySet("https://example.com/a.html"))
	k, ok := f.ClaimNext()
	if !ok || k != "https://example.com/a.html" {
		t.Fatalf("ClaimNext() = %q, %v", k, ok)
	}
	if f.Exhausted() {
		t.Error("frontier should not be exhausted while a claim is in flight")
	}
	f.Done()
	if !f.Exhausted() {
		t.Error("frontier should be exhausted after Done")
	}
}

func TestFrontier_ConcurrentClaimDeliversOnce(t *testing.T) {
	t.Parallel()

	f, _ := newTestFrontier(t)
	keys := urlkey.KeySet{}
	for i := range 200 {
		keys.Add(urlkey.Key(fmt.Sprintf("https://example.com/p%d.html", i)))
	}
	f.EnqueuePages(keys)

	var (
		mu      sync.Mutex
		claimed = urlkey.KeySet{}
		dupes   int
		wg      sync.WaitGroup
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				k, ok := f.ClaimNext()
				if !ok {
					return
				}
				mu.Lock()
				if !claimed.Add(k) {
					dupes++
				}
				mu.Unlock()
				f.Done()
			}
		}()
	}
	wg.Wait()

	if dupes != 0 {
		t.Errorf("%d keys were delivered twice", dupes)
	}
	if claimed.Len() != keys.Len() {
		t.Errorf("claimed %d keys, want %d", claimed.Len(), keys.Len())
	}
}

func TestFrontier_EnqueueAssetsClaimsLedger(t *testing.T) {
	t.Parallel()

	f, ledger := newTestFrontier(t)
	assets := urlkey.NewKeySet("https://example.com/a.png")

	if got := f.EnqueueAssets(assets); got != 1 {
		t.Errorf("EnqueueAssets() = %d, want 1", got)
	}
	if got := f.EnqueueAssets(assets); got != 0 {
		t.Errorf("second EnqueueAssets() = %d, want 0", got)
	}
	if !ledger.Visited("https://example.com/a.png") {
		t.Error("asset should be in the ledger before it is fetched")
	}

	task, ok := f.Next(context.Background())
	if !ok {
		t.Fatal("Next() should return the queued asset")
	}
	if task.Kind != model.KindAsset || task.Key != "https://example.com/a.png" {
		t.Errorf("Next() = %+v", task)
	}
	f.Done()
}

func TestFrontier_NextWaitsForInFlightWork(t *testing.T) {
	t.Parallel()

	f, _ := newTestFrontier(t)
	f.EnqueuePages(urlkey.NewKeySet("https://example.com/"))

	first, ok := f.Next(context.Background())
	if !ok {
		t.Fatal("Next() should return the seed")
	}

	result := make(chan Task, 1)
	go func() {
		task, ok := f.Next(context.Background())
		if ok {
			result <- task
		}
		close(result)
	}()

	// While the first task is in flight the second worker must wait, not exit.
	select {
	case <-result:
		t.Fatal("Next() returned while work was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	f.EnqueuePages(urlkey.NewKeySet("https://example.com/next.html"))
	f.Done()

	task, ok := <-result
	if !ok {
		t.Fatal("second worker exited instead of receiving discovered page")
	}
	if task.Key != "https://example.com/next.html" || first.Key != "https://example.com/" {
		t.Errorf("unexpected tasks: %q then %q", first.Key, task.Key)
	}
	f.Done()

	if _, ok := f.Next(context.Background()); ok {
		t.Error("Next() on exhausted frontier should return false")
	}
}

func TestFrontier_NextStopsOnCancel(t *testing.T) {
	t.Parallel()

	f, _ := newTestFrontier(t)
	f.EnqueuePages(urlkey.NewKeySet("https://example.com/"))
	if _, ok := f.Next(context.Background()); !ok {
		t.Fatal("Next() should return the seed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool, 1)
	go func() {
		_, ok := f.Next(ctx)
		done <- ok
	}()

	cancel()
	select {
	case ok := <-done:
		if ok {
			t.Error("Next() should return false after cancellation")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Next() did not return after cancellation")
	}
}

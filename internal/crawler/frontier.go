package crawler

import (
	"context"
	"sync"

	"github.com/nao1215/sitemirror/internal/model"
	"github.com/nao1215/sitemirror/internal/urlkey"
)

// Ledger records every URL claimed during a crawl, partitioned into pages
// and assets. Entries are never removed.
//
// A key lives in at most one partition: once claimed as a page it cannot be
// claimed as an asset and vice versa, so a URL linked both ways is still
// fetched once.
type Ledger struct {
	mu     sync.Mutex
	pages  urlkey.KeySet
	assets urlkey.KeySet
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		pages:  urlkey.KeySet{},
		assets: urlkey.KeySet{},
	}
}

// MarkPageVisited claims k as a page. Only the call that inserts k returns true.
func (l *Ledger) MarkPageVisited(k urlkey.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.assets.Has(k) {
		return false
	}
	return l.pages.Add(k)
}

// MarkAssetVisited claims k as an asset. Only the call that inserts k returns true.
func (l *Ledger) MarkAssetVisited(k urlkey.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.pages.Has(k) {
		return false
	}
	return l.assets.Add(k)
}

// Visited reports whether k was claimed in either partition.
func (l *Ledger) Visited(k urlkey.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages.Has(k) || l.assets.Has(k)
}

// Pages returns the claimed page keys in lexical order.
func (l *Ledger) Pages() []urlkey.Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pages.Sorted()
}

// Assets returns the claimed asset keys in lexical order.
func (l *Ledger) Assets() []urlkey.Key {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.assets.Sorted()
}

// Task is one unit of work handed to a worker.
type Task struct {
	Key  urlkey.Key
	Kind model.Kind
}

// Frontier holds the pages waiting to be claimed and the asset tasks
// waiting for a worker. Every claimed task counts as in flight until Done
// is called, and the frontier is exhausted only when nothing is pending,
// nothing is queued and nothing is in flight.
type Frontier struct {
	norm   *urlkey.Normalizer
	ledger *Ledger

	mu       sync.Mutex
	cond     *sync.Cond
	pending  []urlkey.Key
	queued   urlkey.KeySet
	assets   []urlkey.Key
	inFlight int
}

// NewFrontier creates an empty frontier that consults ledger for visited state.
func NewFrontier(norm *urlkey.Normalizer, ledger *Ledger) *Frontier {
	f := &Frontier{
		norm:   norm,
		ledger: ledger,
		queued: urlkey.KeySet{},
	}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Seed normalizes urls against the crawl base, keeps the internal ones and
// adds them to the pending pages. It returns how many were added.
func (f *Frontier) Seed(urls []string) int {
	keys := urlkey.KeySet{}
	for _, raw := range urls {
		k, err := f.norm.Internal(raw, "")
		if err != nil {
			continue
		}
		keys.Add(k)
	}
	return f.EnqueuePages(keys)
}

// EnqueuePages adds keys that are neither visited nor already pending.
// It returns how many were added.
func (f *Frontier) EnqueuePages(keys urlkey.KeySet) int {
	if keys.Len() == 0 {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, k := range keys.Sorted() {
		if f.queued.Has(k) || f.ledger.Visited(k) {
			continue
		}
		f.queued.Add(k)
		f.pending = append(f.pending, k)
		added++
	}
	if added > 0 {
		f.cond.Broadcast()
	}
	return added
}

// EnqueueAssets claims each key in the asset ledger and queues a fetch task
// for every key this call claimed. It returns how many tasks were queued.
func (f *Frontier) EnqueueAssets(keys urlkey.KeySet) int {
	if keys.Len() == 0 {
		return 0
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	added := 0
	for _, k := range keys.Sorted() {
		if f.queued.Has(k) || !f.ledger.MarkAssetVisited(k) {
			continue
		}
		f.assets = append(f.assets, k)
		added++
	}
	if added > 0 {
		f.cond.Broadcast()
	}
	return added
}

// ClaimNext removes and returns one pending page without blocking.
// A successful claim counts as in flight until Done is called.
func (f *Frontier) ClaimNext() (urlkey.Key, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		return "", false
	}
	k := f.popPageLocked()
	f.inFlight++
	return k, true
}

// Next blocks until a task is available and claims it. Asset tasks are
// handed out before pages. It returns false once the frontier is exhausted
// or ctx is cancelled.
func (f *Frontier) Next(ctx context.Context) (Task, bool) {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		f.cond.Broadcast()
		f.mu.Unlock()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return Task{}, false
		}
		if len(f.assets) > 0 {
			k := f.assets[0]
			f.assets = f.assets[1:]
			f.inFlight++
			return Task{Key: k, Kind: model.KindAsset}, true
		}
		if len(f.pending) > 0 {
			k := f.popPageLocked()
			f.inFlight++
			return Task{Key: k, Kind: model.KindPage}, true
		}
		if f.inFlight == 0 {
			f.cond.Broadcast()
			return Task{}, false
		}
		f.cond.Wait()
	}
}

// Done marks one claimed task as finished.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight > 0 {
		f.inFlight--
	}
	f.cond.Broadcast()
}

// Pending returns the number of pages waiting to be claimed.
func (f *Frontier) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// InFlight returns the number of claimed tasks not yet marked Done.
func (f *Frontier) InFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Exhausted reports whether no work is pending, queued or in flight.
func (f *Frontier) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending) == 0 && len(f.assets) == 0 && f.inFlight == 0
}

func (f *Frontier) popPageLocked() urlkey.Key {
	k := f.pending[0]
	f.pending = f.pending[1:]
	delete(f.queued, k)
	return k
}

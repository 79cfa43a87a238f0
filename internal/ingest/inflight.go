package ingest

import (
	"sort"
	"sync"
	"time"
)

// Tracker is the advisory in-flight set: which products are being ingested
// right now. It guards against concurrent duplicate runs for the same product
// and feeds the active-ingestions query.
type Tracker struct {
	mu     sync.Mutex
	active map[string]time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{active: make(map[string]time.Time)}
}

// TryAcquire marks a product as ingesting. Returns false when a run for the
// product is already in flight.
func (t *Tracker) TryAcquire(productID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.active[productID]; ok {
		return false
	}
	t.active[productID] = time.Now()
	return true
}

// Release clears the product's in-flight mark.
func (t *Tracker) Release(productID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, productID)
}

// ActiveEntry is one in-flight ingestion.
type ActiveEntry struct {
	ProductID string    `json:"product_id"`
	StartedAt time.Time `json:"started_at"`
}

// Active lists in-flight ingestions ordered by product ID.
func (t *Tracker) Active() []ActiveEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]ActiveEntry, 0, len(t.active))
	for id, started := range t.active {
		entries = append(entries, ActiveEntry{ProductID: id, StartedAt: started})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ProductID < entries[j].ProductID
	})
	return entries
}

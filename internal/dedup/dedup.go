package dedup

import (
	"context"
	"fmt"
	"time"
)

// DefaultLookback is how long a fingerprint counts as seen.
const DefaultLookback = 30 * 24 * time.Hour

// Store answers whether a fingerprint was persisted at or after since.
// Entries older than since are expired for dedup purposes; the store is not
// asked to delete them.
type Store interface {
	SeenSince(ctx context.Context, fp string, since time.Time) (bool, error)
}

// Recorder is implemented by stores that keep fingerprints apart from the
// posting rows and therefore need to be told about new ones.
type Recorder interface {
	Remember(ctx context.Context, fp string, at time.Time) error
}

type Deduplicator struct {
	store    Store
	lookback time.Duration
	now      func() time.Time
}

func New(store Store, lookback time.Duration) *Deduplicator {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	return &Deduplicator{store: store, lookback: lookback, now: time.Now}
}

// WithClock replaces the time source; tests use it to pin the window.
func (d *Deduplicator) WithClock(now func() time.Time) *Deduplicator {
	d.now = now
	return d
}

func (d *Deduplicator) Lookback() time.Duration { return d.lookback }

// Store returns the backing store so callers can record new fingerprints.
func (d *Deduplicator) Store() Store { return d.store }

// NewBatch starts one collection cycle. The window is fixed when the batch
// starts.
func (d *Deduplicator) NewBatch() *Batch {
	return &Batch{
		d:     d,
		since: d.now().Add(-d.lookback),
		seen:  map[string]struct{}{},
	}
}

// Batch is not safe for concurrent use; callers feed it in a fixed order so
// the first of two colliding postings always wins.
type Batch struct {
	d     *Deduplicator
	since time.Time
	seen  map[string]struct{}
}

// IsDuplicate reports whether fp was seen earlier in this batch or in the
// store within the lookback window, then marks it seen for the batch.
// A store error is returned as is; the fingerprint is not marked.
func (b *Batch) IsDuplicate(ctx context.Context, fp string) (bool, error) {
	dup, err := b.Check(ctx, fp)
	if err != nil || dup {
		return dup, err
	}
	b.Mark(fp)
	return false, nil
}

// Check is IsDuplicate without marking a new fingerprint. Callers that
// persist the posting afterwards Mark it only once the write succeeded, so a
// failed save leaves later copies in the batch free to be stored.
func (b *Batch) Check(ctx context.Context, fp string) (bool, error) {
	if _, ok := b.seen[fp]; ok {
		return true, nil
	}
	if b.d.store == nil {
		return false, nil
	}
	found, err := b.d.store.SeenSince(ctx, fp, b.since)
	if err != nil {
		return false, fmt.Errorf("fingerprint lookup: %w", err)
	}
	if found {
		b.seen[fp] = struct{}{}
	}
	return found, nil
}

// Mark records fp as seen for the rest of the batch.
func (b *Batch) Mark(fp string) {
	b.seen[fp] = struct{}{}
}

// Seen returns a copy of the batch-local fingerprint set.
func (b *Batch) Seen() map[string]struct{} {
	out := make(map[string]struct{}, len(b.seen))
	for k := range b.seen {
		out[k] = struct{}{}
	}
	return out
}

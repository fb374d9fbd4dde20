// Package localstate keeps the per-form-type working state that lives
// outside the remote store: the autosaved draft, the pending entries staged
// when a document is rendered, and the history of submitted orders.
package localstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ToshioDev/alimentacion-solicitudes-forms/internal/domain/order"
)

// ErrEmptySearchCode is returned by SavePending for an order with no code to
// key it on.
var ErrEmptySearchCode = errors.New("pending entry requires a search code")

const (
	collDraft     = "draft"
	collPending   = "pending"
	collSubmitted = "submitted"
)

// Key returns the store key of one collection, e.g. "staff:pending".
func Key(kind order.Kind, collection string) string {
	return string(kind) + ":" + collection
}

// Cache serializes read-modify-write access to the three collections of
// every form type. Entries are stored in the persisted field naming and read
// back through order.Normalize, so documents written by older clients in the
// camelCase convention still load.
type Cache struct {
	store  Store
	logger zerolog.Logger
	mu     sync.Mutex
}

func NewCache(store Store, logger zerolog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.With().Str("component", "localstate").Logger(),
	}
}

// SaveDraft overwrites the draft of the order's kind.
func (c *Cache) SaveDraft(ctx context.Context, o order.Order) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeOne(ctx, Key(o.Kind, collDraft), o)
}

// LoadDraft returns the stored draft with its date rehydrated, or ok=false.
func (c *Cache) LoadDraft(ctx context.Context, kind order.Kind) (order.Order, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok, err := c.store.Get(ctx, Key(kind, collDraft))
	if err != nil || !ok {
		return order.Order{}, false, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		c.logger.Warn().Err(err).Str("kind", string(kind)).Msg("discarding unreadable draft")
		return order.Order{}, false, nil
	}
	return order.Normalize(kind, fields), true, nil
}

func (c *Cache) ClearDraft(ctx context.Context, kind order.Kind) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Delete(ctx, Key(kind, collDraft))
}

// SavePending appends o to the pending list unless an entry with the same
// search code and date is already there. It reports whether it inserted.
// Content is not compared: a second render with other fields but the same
// key leaves the first snapshot in place.
func (c *Cache) SavePending(ctx context.Context, o order.Order) (bool, error) {
	key := o.Key()
	if key.Code == "" {
		return false, ErrEmptySearchCode
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := Key(o.Kind, collPending)
	list, err := c.readList(ctx, o.Kind, k)
	if err != nil {
		return false, err
	}
	for _, existing := range list {
		if sameKey(existing.Key(), key) {
			return false, nil
		}
	}
	entry := o.Clone()
	entry.SetLocalID(nextLocalID(list))
	if err := c.writeList(ctx, k, append(list, entry)); err != nil {
		return false, err
	}
	c.logger.Debug().Str("kind", string(o.Kind)).Str("code", key.Code).Str("fecha", key.Date.String()).Msg("pending entry saved")
	return true, nil
}

// RemovePending drops every pending entry sharing o's key and returns how
// many were removed.
func (c *Cache) RemovePending(ctx context.Context, o order.Order) (int, error) {
	key := o.Key()

	c.mu.Lock()
	defer c.mu.Unlock()

	k := Key(o.Kind, collPending)
	list, err := c.readList(ctx, o.Kind, k)
	if err != nil {
		return 0, err
	}
	kept := list[:0]
	for _, existing := range list {
		if !sameKey(existing.Key(), key) {
			kept = append(kept, existing)
		}
	}
	removed := len(list) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, c.writeList(ctx, k, kept)
}

// AppendSubmitted adds o to the history. History is never deduplicated.
func (c *Cache) AppendSubmitted(ctx context.Context, o order.Order) (order.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	k := Key(o.Kind, collSubmitted)
	list, err := c.readList(ctx, o.Kind, k)
	if err != nil {
		return order.Order{}, err
	}
	entry := o.Clone()
	entry.SetLocalID(nextLocalID(list))
	if err := c.writeList(ctx, k, append(list, entry)); err != nil {
		return order.Order{}, err
	}
	return entry, nil
}

func (c *Cache) Pending(ctx context.Context, kind order.Kind) ([]order.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readList(ctx, kind, Key(kind, collPending))
}

func (c *Cache) Submitted(ctx context.Context, kind order.Kind) ([]order.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readList(ctx, kind, Key(kind, collSubmitted))
}

// nextLocalID is one past the highest id in list. Ids are not reused after
// removals.
func nextLocalID(list []order.Order) int {
	next := 1
	for _, o := range list {
		if id := o.LocalID(); id >= next {
			next = id + 1
		}
	}
	return next
}

func sameKey(a, b order.Key) bool {
	return a.Kind == b.Kind && a.Code == b.Code && a.Date.Equal(b.Date)
}

func (c *Cache) readList(ctx context.Context, kind order.Kind, key string) ([]order.Order, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []order.Order{}, nil
	}
	var items []map[string]interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	out := make([]order.Order, 0, len(items))
	for _, fields := range items {
		out = append(out, order.Normalize(kind, fields))
	}
	return out, nil
}

func (c *Cache) writeList(ctx context.Context, key string, list []order.Order) error {
	records := make([]order.Record, len(list))
	for i, o := range list {
		records[i] = o.Record()
	}
	b, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Put(ctx, key, b)
}

func (c *Cache) writeOne(ctx context.Context, key string, o order.Order) error {
	b, err := json.Marshal(o.Record())
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.store.Put(ctx, key, b)
}

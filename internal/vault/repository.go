package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	receiptsKey   = "receipts"
	categoriesKey = "categories"
)

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Repository owns the canonical serialized form of the receipt and
// category collections. Every mutation is a read-modify-write of the
// whole collection, serialized through a per-collection mutex so two
// interleaved saves cannot lose an update.
//
// Read paths degrade: a missing or unparseable collection is logged and
// treated as empty. Write failures always propagate.
type Repository struct {
	kv         KV
	timeSource TimeSource

	receiptsMu   sync.Mutex
	categoriesMu sync.Mutex
}

// NewRepository creates a Repository with the default time source
func NewRepository(kv KV) *Repository {
	return NewRepositoryWithClock(kv, &defaultTimeSource{})
}

// NewRepositoryWithClock creates a Repository with a custom time source for testing
func NewRepositoryWithClock(kv KV, ts TimeSource) *Repository {
	return &Repository{kv: kv, timeSource: ts}
}

// readCollection loads and decodes a whole collection, degrading to empty
func readCollection[T any](kv KV, key string) []T {
	out := make([]T, 0)
	raw, err := kv.Get(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Warn("Failed to read collection, treating as empty", "key", key, "error", err)
		}
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Warn("Corrupt collection, treating as empty", "key", key, "error", err)
		return make([]T, 0)
	}
	return out
}

func writeCollection[T any](kv KV, key string, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	if err := kv.Set(key, string(data)); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Receipts returns all receipts in stored order
func (r *Repository) Receipts() ([]Receipt, error) {
	return readCollection[Receipt](r.kv, receiptsKey), nil
}

// SaveReceipt upserts a receipt by ID. An existing receipt is replaced in
// place, preserving its position; a new one is appended. UpdatedAt is
// stamped on every save. CreatedAt is owned by the repository: stamped
// for new receipts, preserved for existing ones.
func (r *Repository) SaveReceipt(receipt *Receipt) error {
	r.receiptsMu.Lock()
	defer r.receiptsMu.Unlock()

	receipts := readCollection[Receipt](r.kv, receiptsKey)

	now := r.timeSource.Now().Format(time.RFC3339)
	receipt.UpdatedAt = now

	replaced := false
	for i := range receipts {
		if receipts[i].ID == receipt.ID {
			receipt.CreatedAt = receipts[i].CreatedAt
			receipts[i] = *receipt
			replaced = true
			break
		}
	}
	if !replaced {
		receipt.CreatedAt = now
		receipts = append(receipts, *receipt)
	}

	return writeCollection(r.kv, receiptsKey, receipts)
}

// DeleteReceipt removes the receipt with the given ID. Deleting an
// absent ID is a no-op.
func (r *Repository) DeleteReceipt(id string) error {
	r.receiptsMu.Lock()
	defer r.receiptsMu.Unlock()

	receipts := readCollection[Receipt](r.kv, receiptsKey)
	kept := make([]Receipt, 0, len(receipts))
	for _, receipt := range receipts {
		if receipt.ID != id {
			kept = append(kept, receipt)
		}
	}
	return writeCollection(r.kv, receiptsKey, kept)
}

// ReceiptsByTag returns receipts whose tags contain the given name,
// stored order preserved
func (r *Repository) ReceiptsByTag(tag string) ([]Receipt, error) {
	receipts, err := r.Receipts()
	if err != nil {
		return nil, err
	}
	return FilterByTag(receipts, tag), nil
}

// ReceiptsByMonth returns receipts dated within the given year and
// zero-based month
func (r *Repository) ReceiptsByMonth(year, monthIndex int) ([]Receipt, error) {
	receipts, err := r.Receipts()
	if err != nil {
		return nil, err
	}
	return FilterByMonth(receipts, year, monthIndex), nil
}

// RemoveReceiptsMatching deletes every receipt the predicate selects and
// returns the removed ones. Read, partition and write all happen under
// the collection's writer lock, so a save issued mid-removal waits
// instead of being overwritten. Nothing is written when nothing matches.
// The predicate must not call back into the repository.
func (r *Repository) RemoveReceiptsMatching(pred func(Receipt) bool) ([]Receipt, error) {
	r.receiptsMu.Lock()
	defer r.receiptsMu.Unlock()

	receipts := readCollection[Receipt](r.kv, receiptsKey)
	removed := make([]Receipt, 0)
	kept := make([]Receipt, 0, len(receipts))
	for _, receipt := range receipts {
		if pred(receipt) {
			removed = append(removed, receipt)
		} else {
			kept = append(kept, receipt)
		}
	}

	if len(removed) == 0 {
		return removed, nil
	}
	if err := writeCollection(r.kv, receiptsKey, kept); err != nil {
		return nil, err
	}
	return removed, nil
}

// Categories returns all categories in stored order
func (r *Repository) Categories() ([]Category, error) {
	return readCollection[Category](r.kv, categoriesKey), nil
}

// SaveCategory upserts a category by ID, same semantics as SaveReceipt
func (r *Repository) SaveCategory(category *Category) error {
	r.categoriesMu.Lock()
	defer r.categoriesMu.Unlock()

	categories := readCollection[Category](r.kv, categoriesKey)

	replaced := false
	for i := range categories {
		if categories[i].ID == category.ID {
			category.CreatedAt = categories[i].CreatedAt
			categories[i] = *category
			replaced = true
			break
		}
	}
	if !replaced {
		category.CreatedAt = r.timeSource.Now().Format(time.RFC3339)
		categories = append(categories, *category)
	}

	return writeCollection(r.kv, categoriesKey, categories)
}

// DeleteCategory removes the category with the given ID. Receipt tags
// referencing the category's name are left alone.
func (r *Repository) DeleteCategory(id string) error {
	r.categoriesMu.Lock()
	defer r.categoriesMu.Unlock()

	categories := readCollection[Category](r.kv, categoriesKey)
	kept := make([]Category, 0, len(categories))
	for _, category := range categories {
		if category.ID != id {
			kept = append(kept, category)
		}
	}
	return writeCollection(r.kv, categoriesKey, kept)
}

// ClearAll removes both collections from storage
func (r *Repository) ClearAll() error {
	r.receiptsMu.Lock()
	defer r.receiptsMu.Unlock()
	r.categoriesMu.Lock()
	defer r.categoriesMu.Unlock()

	if err := r.kv.RemoveMany([]string{receiptsKey, categoriesKey}); err != nil {
		return fmt.Errorf("clearing collections: %w", err)
	}
	return nil
}

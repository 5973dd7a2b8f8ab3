package boltstore

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-transfer"
	"github.com/goliatone/go-transfer/pkg/lifecycle"
)

// Tank is a single-resource storage whose level lives in a bolt record.
// Writes go through to the database immediately; the lifecycle commit signal
// fires only when a root commit leaves the level different from the last
// durable one. Rollback rewrites the record, and fails fatally when the
// record has been deleted underneath the transaction.
type Tank[T transfer.Resource] struct {
	store    *Store
	location string
	resource T
	capacity int64

	// level mirrors the persisted amount; refreshed from the database at the
	// top of every transfer operation.
	level        int64
	lastReleased int64

	part  *transfer.Participant[int64]
	guard transfer.ViewGuard
}

// NewTank attaches a tank to the record at location, creating an empty record
// when none exists, and announces the location as available.
func NewTank[T transfer.Resource](store *Store, location string, resource T, capacity int64) (*Tank[T], error) {
	if resource.IsEmpty() {
		return nil, transfer.ErrEmptyResource
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("boltstore: tank %q: capacity must be positive, got %d", location, capacity)
	}

	rec, found, err := store.readRecord(location)
	if err != nil {
		return nil, fmt.Errorf("boltstore: read %q: %w", location, err)
	}
	if !found {
		rec = record{Amount: 0, UpdatedAt: time.Now().UTC()}
		if err := store.writeRecord(location, rec); err != nil {
			return nil, fmt.Errorf("boltstore: create %q: %w", location, err)
		}
	}

	t := &Tank[T]{
		store:        store,
		location:     location,
		resource:     resource,
		capacity:     capacity,
		level:        rec.Amount,
		lastReleased: rec.Amount,
	}
	t.part = transfer.NewParticipant[int64](t)
	store.emitter.Emit(context.Background(), lifecycle.NewEvent(lifecycle.KindAvailable, location))
	return t, nil
}

// Location returns the record key this tank is attached to.
func (t *Tank[T]) Location() string { return t.location }

// Refresh reloads the mirrored level from the database. It is how a caller
// resynchronizes after the record changed outside the transaction model, and
// is refused while a transaction is open.
func (t *Tank[T]) Refresh() error {
	if t.store.mgr.IsOpen() {
		return transfer.ErrTransactionOpen
	}
	rec, found, err := t.store.readRecord(t.location)
	if err != nil {
		return fmt.Errorf("boltstore: read %q: %w", t.location, err)
	}
	if !found {
		return fmt.Errorf("%w: %q", ErrBackingGone, t.location)
	}
	t.level = rec.Amount
	t.lastReleased = rec.Amount
	return nil
}

// SupportsInsertion implements transfer.Storage.
func (t *Tank[T]) SupportsInsertion() bool { return true }

// SupportsExtraction implements transfer.Storage.
func (t *Tank[T]) SupportsExtraction() bool { return true }

// Insert implements transfer.Storage. A tank whose record has been deleted
// accepts nothing; it does not error, matching how storages refuse resources
// they cannot take.
func (t *Tank[T]) Insert(resource T, maxAmount int64, tx *transfer.Transaction) (int64, error) {
	if err := transfer.CheckTransfer(resource, maxAmount, tx); err != nil {
		return 0, err
	}
	if resource != t.resource {
		return 0, nil
	}
	amount, ok, err := t.syncLevel()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	inserted := min(maxAmount, t.capacity-amount)
	if inserted <= 0 {
		return 0, nil
	}
	if err := t.part.UpdateSnapshot(tx); err != nil {
		return 0, err
	}
	if err := t.persist(amount + inserted); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Extract implements transfer.Storage.
func (t *Tank[T]) Extract(resource T, maxAmount int64, tx *transfer.Transaction) (int64, error) {
	if err := transfer.CheckTransfer(resource, maxAmount, tx); err != nil {
		return 0, err
	}
	if resource != t.resource {
		return 0, nil
	}
	amount, ok, err := t.syncLevel()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	extracted := min(maxAmount, amount)
	if extracted <= 0 {
		return 0, nil
	}
	if err := t.part.UpdateSnapshot(tx); err != nil {
		return 0, err
	}
	if err := t.persist(amount - extracted); err != nil {
		return 0, err
	}
	return extracted, nil
}

// syncLevel refreshes the mirror from the database, ok == false when the
// record no longer exists.
func (t *Tank[T]) syncLevel() (int64, bool, error) {
	rec, found, err := t.store.readRecord(t.location)
	if err != nil {
		return 0, false, fmt.Errorf("boltstore: read %q: %w", t.location, err)
	}
	if !found {
		return 0, false, nil
	}
	t.level = rec.Amount
	return rec.Amount, true, nil
}

// persist writes amount through to the database and updates the mirror.
func (t *Tank[T]) persist(amount int64) error {
	if err := t.store.writeExisting(t.location, record{Amount: amount, UpdatedAt: time.Now().UTC()}); err != nil {
		return err
	}
	t.level = amount
	return nil
}

// Iterator implements transfer.Storage.
func (t *Tank[T]) Iterator(tx *transfer.Transaction) (*transfer.ViewIterator[T], error) {
	if err := t.guard.Acquire(tx); err != nil {
		return nil, err
	}
	return transfer.NewViewIterator[T](tx, t), nil
}

// AnyView implements transfer.Storage.
func (t *Tank[T]) AnyView(tx *transfer.Transaction) (transfer.StorageView[T], error) {
	if err := t.guard.Acquire(tx); err != nil {
		return nil, err
	}
	return t, nil
}

// ExactView implements transfer.Storage.
func (t *Tank[T]) ExactView(tx *transfer.Transaction, resource T) (transfer.StorageView[T], error) {
	if err := t.guard.Acquire(tx); err != nil {
		return nil, err
	}
	if resource != t.resource {
		return nil, nil
	}
	return t, nil
}

// Version implements transfer.Storage.
func (t *Tank[T]) Version() (transfer.Version, error) {
	if t.store.mgr.IsOpen() {
		return 0, transfer.ErrVersionDuringTransaction
	}
	return t.store.counter.Next(), nil
}

// Resource implements transfer.StorageView. A drained tank still reports its
// bound resource; emptiness is carried by the amount.
func (t *Tank[T]) Resource() T {
	if t.level == 0 {
		var empty T
		return empty
	}
	return t.resource
}

// Amount implements transfer.StorageView.
func (t *Tank[T]) Amount() int64 { return t.level }

// Capacity implements transfer.StorageView.
func (t *Tank[T]) Capacity() int64 { return t.capacity }

// IsEmpty implements transfer.StorageView.
func (t *Tank[T]) IsEmpty() bool { return t.level == 0 }

// CreateSnapshot implements transfer.Snapshotter.
func (t *Tank[T]) CreateSnapshot() int64 { return t.level }

// ReadSnapshot implements transfer.Snapshotter. Restoring rewrites the
// database record; when the record is gone there is nothing to restore into
// and the rollback fails.
func (t *Tank[T]) ReadSnapshot(level int64) error {
	return t.persist(level)
}

// ReleaseSnapshot records the level made durable by the enclosing commit.
func (t *Tank[T]) ReleaseSnapshot(level int64) {
	t.lastReleased = level
}

// OnFinalCommit announces the committed level change. A root commit whose net
// effect is zero stays silent.
func (t *Tank[T]) OnFinalCommit() {
	if t.level == t.lastReleased {
		return
	}
	event := lifecycle.NewEvent(lifecycle.KindCommitted, t.location)
	event.Metadata = map[string]any{
		"from": t.lastReleased,
		"to":   t.level,
	}
	t.store.emitter.Emit(context.Background(), event)
	t.lastReleased = t.level
}

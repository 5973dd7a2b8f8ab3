package transfer

import (
	"errors"
	"testing"
)

func newTestSlot(t *testing.T, capacity int64, opts ...SingleSlotOption[fluid]) (*Manager, *SingleSlot[fluid]) {
	t.Helper()
	mgr := NewManager()
	return mgr, NewSingleSlot[fluid](mgr, NewVersionCounter(), capacity, opts...)
}

func TestInsertExtractRoundTrip(t *testing.T) {
	mgr, slot := newTestSlot(t, 100)

	tx, _ := mgr.OpenRoot()
	inserted, err := slot.Insert(water, 40, tx)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	extracted, err := slot.Extract(water, inserted, tx)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if extracted != inserted {
		t.Fatalf("round trip mismatch: inserted %d, extracted %d", inserted, extracted)
	}
	if slot.Amount() != 0 {
		t.Fatalf("amount should be back to 0, got %d", slot.Amount())
	}
	tx.Commit()
}

func TestAbortRestoresExactly(t *testing.T) {
	mgr, slot := newTestSlot(t, 100, WithContents(water, 25))

	tx, _ := mgr.OpenRoot()
	slot.Insert(water, 30, tx)
	slot.Extract(water, 10, tx)
	slot.Insert(water, 5, tx)
	if err := tx.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if slot.Amount() != 25 || slot.Resource() != water {
		t.Fatalf("abort must restore exactly: got %d of %q", slot.Amount(), slot.Resource())
	}
}

func TestNestedCommitAccumulatesNestedAbortIsolates(t *testing.T) {
	mgr := NewManager()
	finalCommits := 0
	slot := NewSingleSlot[fluid](mgr, NewVersionCounter(), 100)
	// observe final commit through a second participant sharing the root
	watcher := &journalState{}
	watcherPart := NewParticipant[int64](watcher)

	t1, _ := mgr.OpenRoot()
	watcherPart.UpdateSnapshot(t1)
	if _, err := slot.Insert(water, 5, t1); err != nil {
		t.Fatalf("insert at t1: %v", err)
	}

	t2, _ := t1.OpenNested()
	if _, err := slot.Insert(water, 3, t2); err != nil {
		t.Fatalf("insert at t2: %v", err)
	}
	if slot.Amount() != 8 {
		t.Fatalf("expected 8 before nested abort, got %d", slot.Amount())
	}
	if err := t2.Abort(); err != nil {
		t.Fatalf("abort t2: %v", err)
	}
	if slot.Amount() != 5 {
		t.Fatalf("nested abort must leave only t1's +5, got %d", slot.Amount())
	}

	if err := t1.Commit(); err != nil {
		t.Fatalf("commit t1: %v", err)
	}
	if slot.Amount() != 5 {
		t.Fatalf("expected durable +5, got %d", slot.Amount())
	}
	for _, call := range watcher.calls {
		if call == "final" {
			finalCommits++
		}
	}
	if finalCommits != 1 {
		t.Fatalf("final commit must fire exactly once, got %d", finalCommits)
	}
}

func TestCapacityScenario(t *testing.T) {
	// storage starts empty with capacity 4; insert 10 caps at 4, extract 1,
	// abort restores 0
	mgr, slot := newTestSlot(t, 4)

	tx, _ := mgr.OpenRoot()
	inserted, err := slot.Insert(water, 10, tx)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if inserted != 4 {
		t.Fatalf("expected insert capped at 4, got %d", inserted)
	}
	extracted, err := slot.Extract(water, 1, tx)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if extracted != 1 {
		t.Fatalf("expected extract 1, got %d", extracted)
	}
	if slot.Amount() != 3 {
		t.Fatalf("expected amount 3, got %d", slot.Amount())
	}
	if err := tx.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if slot.Amount() != 0 {
		t.Fatalf("expected amount 0 after abort, got %d", slot.Amount())
	}
}

func TestTransferPreconditions(t *testing.T) {
	mgr, slot := newTestSlot(t, 10)
	tx, _ := mgr.OpenRoot()
	defer tx.Abort()

	if _, err := slot.Insert(fluid(""), 1, tx); !errors.Is(err, ErrEmptyResource) {
		t.Fatalf("empty resource: expected ErrEmptyResource, got %v", err)
	}
	if _, err := slot.Insert(water, -1, tx); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("negative amount: expected ErrNegativeAmount, got %v", err)
	}
	if _, err := slot.Insert(water, 1, nil); !errors.Is(err, ErrNoTransaction) {
		t.Fatalf("nil transaction: expected ErrNoTransaction, got %v", err)
	}
}

func TestMutationRejectsNonCurrentTransaction(t *testing.T) {
	mgr, slot := newTestSlot(t, 10)
	root, _ := mgr.OpenRoot()
	child, _ := root.OpenNested()
	if _, err := slot.Insert(water, 1, root); !errors.Is(err, ErrNotCurrent) {
		t.Fatalf("expected ErrNotCurrent, got %v", err)
	}
	child.Abort()
	root.Abort()
	if _, err := slot.Insert(water, 1, root); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestSlotRefusesMismatchedResource(t *testing.T) {
	mgr, slot := newTestSlot(t, 10, WithContents(water, 5))
	tx, _ := mgr.OpenRoot()
	defer tx.Abort()

	if n, err := slot.Insert(oil, 3, tx); err != nil || n != 0 {
		t.Fatalf("expected 0 for mismatched insert, got %d (%v)", n, err)
	}
	if n, err := slot.Extract(oil, 3, tx); err != nil || n != 0 {
		t.Fatalf("expected 0 for mismatched extract, got %d (%v)", n, err)
	}
}

func TestFilterRefusesByAcceptingZero(t *testing.T) {
	mgr, slot := newTestSlot(t, 10, WithFilter[fluid](func(f fluid) bool { return f == water }))
	tx, _ := mgr.OpenRoot()
	defer tx.Abort()

	if n, _ := slot.Insert(oil, 3, tx); n != 0 {
		t.Fatalf("filtered resource must be refused, got %d", n)
	}
	if n, _ := slot.Insert(water, 3, tx); n != 3 {
		t.Fatalf("allowed resource must be accepted, got %d", n)
	}
}

func TestVersionForbiddenDuringTransaction(t *testing.T) {
	mgr, slot := newTestSlot(t, 10)
	tx, _ := mgr.OpenRoot()
	if _, err := slot.Version(); !errors.Is(err, ErrVersionDuringTransaction) {
		t.Fatalf("expected ErrVersionDuringTransaction, got %v", err)
	}
	tx.Abort()
	if _, err := slot.Version(); err != nil {
		t.Fatalf("version outside transaction: %v", err)
	}
}

func TestVersionChangesAcrossMutation(t *testing.T) {
	mgr, slot := newTestSlot(t, 10)

	before, err := slot.Version()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	tx, _ := mgr.OpenRoot()
	slot.Insert(water, 5, tx)
	tx.Commit()
	after, err := slot.Version()
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if before == after {
		t.Fatalf("version must differ across a real mutation: %d == %d", before, after)
	}
}

func TestViewBounds(t *testing.T) {
	mgr, slot := newTestSlot(t, 4, WithContents(water, 3))
	tx, _ := mgr.OpenRoot()
	defer tx.Abort()

	view, err := slot.AnyView(tx)
	if err != nil {
		t.Fatalf("any view: %v", err)
	}
	if view.Amount() < 0 || view.Amount() > view.Capacity() {
		t.Fatalf("view out of bounds: amount %d capacity %d", view.Amount(), view.Capacity())
	}
	if view.IsEmpty() != (view.Amount() == 0) {
		t.Fatal("IsEmpty must mirror Amount() == 0")
	}
}

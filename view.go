package transfer

// ViewGuard enforces the one-outstanding-view rule: per storage instance, at
// most one of Iterator, AnyView and ExactView may be live against a given
// transaction. Storages embed a guard and call Acquire before producing
// views. Slots held by closed transactions are reclaimed lazily.
//
// The zero ViewGuard is ready to use.
type ViewGuard struct {
	open map[uint64]*Transaction
}

// Acquire claims the view slot for t. It fails with ErrViewInUse when a view
// is already outstanding for t, and rejects nil or closed transactions.
func (g *ViewGuard) Acquire(t *Transaction) error {
	if t == nil {
		return ErrNoTransaction
	}
	if !t.IsOpen() {
		return ErrClosed
	}
	for id, held := range g.open {
		if !held.IsOpen() {
			delete(g.open, id)
		}
	}
	if _, ok := g.open[t.id]; ok {
		return ErrViewInUse
	}
	if g.open == nil {
		g.open = make(map[uint64]*Transaction)
	}
	g.open[t.id] = t
	return nil
}

// ViewIterator walks the views a storage exposed for one transaction. It
// becomes exhausted the moment that transaction closes, regardless of how
// many views remain.
type ViewIterator[T Resource] struct {
	tx    *Transaction
	views []StorageView[T]
	next  int
}

// NewViewIterator builds an iterator over views tied to t. Storages pin the
// view list at creation time, which is what makes insertions invisible to an
// open iterator while extractions, observed through the live views, remain
// visible.
func NewViewIterator[T Resource](t *Transaction, views ...StorageView[T]) *ViewIterator[T] {
	return &ViewIterator[T]{tx: t, views: views}
}

// Next returns the next view, or ok == false when the iterator is exhausted
// or its transaction has closed.
func (it *ViewIterator[T]) Next() (StorageView[T], bool) {
	if it == nil || !it.tx.IsOpen() || it.next >= len(it.views) {
		return nil, false
	}
	view := it.views[it.next]
	it.next++
	return view, true
}

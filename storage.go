package transfer

// Storage is a mutable container of resource quantities. All transfer
// operations take a non-empty resource, a non-negative maximum amount and the
// innermost open transaction; violating those preconditions is a caller
// error and is rejected, not partially applied.
//
// Returned amounts are always in [0, maxAmount]. Returning less than
// requested is the normal partial-success channel, not an error: callers
// must check the returned amount rather than assume a full transfer.
type Storage[T Resource] interface {
	// SupportsInsertion returns false only if Insert provably always
	// returns 0. It is a routing hint, never load-bearing for correctness.
	SupportsInsertion() bool
	// Insert tries to insert up to maxAmount of resource, returning the
	// amount actually inserted.
	Insert(resource T, maxAmount int64, t *Transaction) (int64, error)
	// SupportsExtraction returns false only if Extract provably always
	// returns 0.
	SupportsExtraction() bool
	// Extract tries to extract up to maxAmount of resource, returning the
	// amount actually extracted.
	Extract(resource T, maxAmount int64, t *Transaction) (int64, error)
	// Iterator enumerates the storage's buckets for the scope of t. The
	// iterator is exhausted as soon as t closes. At most one of Iterator,
	// AnyView and ExactView may be outstanding per transaction; a second
	// call fails with ErrViewInUse. Extractions performed while the
	// iterator is open are reflected by its views; insertions need not be.
	Iterator(t *Transaction) (*ViewIterator[T], error)
	// AnyView returns a view over any bucket, or nil if none is available.
	// It consumes the same one-outstanding-view slot as Iterator.
	AnyView(t *Transaction) (StorageView[T], error)
	// ExactView returns a view for the given resource only when one is
	// obtainable without scanning, for example by keyed lookup; otherwise
	// it returns nil. Same exclusivity slot as Iterator.
	ExactView(t *Transaction, resource T) (StorageView[T], error)
	// Version returns a change stamp for out-of-transaction change
	// detection. Calling it while the storage's manager has an open
	// transaction fails with ErrVersionDuringTransaction.
	Version() (Version, error)
}

// StorageView is a read-only projection of one resource bucket, valid only
// while the transaction it was obtained with remains open. Using a view
// after its transaction closed is undefined.
type StorageView[T Resource] interface {
	// Resource returns the bucket's resource, possibly empty.
	Resource() T
	// Amount returns the stored quantity, in [0, Capacity()].
	Amount() int64
	// Capacity returns the bucket's maximum quantity.
	Capacity() int64
	// IsEmpty reports Amount() == 0.
	IsEmpty() bool
}

package transfer

// KeyedStorage is an in-memory storage with one bucket per resource, each
// bounded by the same per-resource capacity. Buckets are created on first
// insertion and removed when drained; bucket order is the order of first
// insertion, kept as a list so iteration stays deterministic.
type KeyedStorage[T Resource] struct {
	mgr         *Manager
	counter     *VersionCounter
	perCapacity int64

	amounts map[T]int64
	order   []T

	part  *Participant[keyedSnapshot[T]]
	guard ViewGuard
}

type keyedSnapshot[T Resource] struct {
	amounts map[T]int64
	order   []T
}

// NewKeyedStorage constructs an empty keyed storage where every resource
// bucket holds up to perResourceCapacity units.
func NewKeyedStorage[T Resource](mgr *Manager, counter *VersionCounter, perResourceCapacity int64) *KeyedStorage[T] {
	if perResourceCapacity < 0 {
		perResourceCapacity = 0
	}
	s := &KeyedStorage[T]{
		mgr:         mgr,
		counter:     counter,
		perCapacity: perResourceCapacity,
		amounts:     make(map[T]int64),
	}
	s.part = NewParticipant[keyedSnapshot[T]](s)
	return s
}

// SupportsInsertion implements Storage.
func (s *KeyedStorage[T]) SupportsInsertion() bool { return true }

// SupportsExtraction implements Storage.
func (s *KeyedStorage[T]) SupportsExtraction() bool { return true }

// Insert implements Storage.
func (s *KeyedStorage[T]) Insert(resource T, maxAmount int64, t *Transaction) (int64, error) {
	if err := CheckTransfer(resource, maxAmount, t); err != nil {
		return 0, err
	}
	current := s.amounts[resource]
	inserted := min(maxAmount, s.perCapacity-current)
	if inserted <= 0 {
		return 0, nil
	}
	if err := s.part.UpdateSnapshot(t); err != nil {
		return 0, err
	}
	if _, ok := s.amounts[resource]; !ok {
		s.order = append(s.order, resource)
	}
	s.amounts[resource] = current + inserted
	return inserted, nil
}

// Extract implements Storage.
func (s *KeyedStorage[T]) Extract(resource T, maxAmount int64, t *Transaction) (int64, error) {
	if err := CheckTransfer(resource, maxAmount, t); err != nil {
		return 0, err
	}
	current, ok := s.amounts[resource]
	if !ok {
		return 0, nil
	}
	extracted := min(maxAmount, current)
	if extracted <= 0 {
		return 0, nil
	}
	if err := s.part.UpdateSnapshot(t); err != nil {
		return 0, err
	}
	if remaining := current - extracted; remaining > 0 {
		s.amounts[resource] = remaining
	} else {
		s.dropBucket(resource)
	}
	return extracted, nil
}

func (s *KeyedStorage[T]) dropBucket(resource T) {
	delete(s.amounts, resource)
	for i, r := range s.order {
		if r == resource {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Iterator implements Storage. The bucket list is pinned at creation:
// insertions made while the iterator is open are not visited, which bounds
// the iteration even though views keep reading live amounts, so extractions
// stay visible.
func (s *KeyedStorage[T]) Iterator(t *Transaction) (*ViewIterator[T], error) {
	if err := s.guard.Acquire(t); err != nil {
		return nil, err
	}
	views := make([]StorageView[T], len(s.order))
	for i, resource := range s.order {
		views[i] = &keyedView[T]{storage: s, resource: resource}
	}
	return NewViewIterator[T](t, views...), nil
}

// AnyView implements Storage.
func (s *KeyedStorage[T]) AnyView(t *Transaction) (StorageView[T], error) {
	if err := s.guard.Acquire(t); err != nil {
		return nil, err
	}
	if len(s.order) == 0 {
		return nil, nil
	}
	return &keyedView[T]{storage: s, resource: s.order[0]}, nil
}

// ExactView implements Storage. The map lookup makes this the intended fast
// path for "how much of X is stored".
func (s *KeyedStorage[T]) ExactView(t *Transaction, resource T) (StorageView[T], error) {
	if err := s.guard.Acquire(t); err != nil {
		return nil, err
	}
	if _, ok := s.amounts[resource]; !ok {
		return nil, nil
	}
	return &keyedView[T]{storage: s, resource: resource}, nil
}

// Version implements Storage.
func (s *KeyedStorage[T]) Version() (Version, error) {
	if s.mgr.IsOpen() {
		return 0, ErrVersionDuringTransaction
	}
	return s.counter.Next(), nil
}

// CreateSnapshot implements Snapshotter.
func (s *KeyedStorage[T]) CreateSnapshot() keyedSnapshot[T] {
	amounts := make(map[T]int64, len(s.amounts))
	for resource, amount := range s.amounts {
		amounts[resource] = amount
	}
	order := make([]T, len(s.order))
	copy(order, s.order)
	return keyedSnapshot[T]{amounts: amounts, order: order}
}

// ReadSnapshot implements Snapshotter.
func (s *KeyedStorage[T]) ReadSnapshot(snapshot keyedSnapshot[T]) error {
	s.amounts = snapshot.amounts
	s.order = snapshot.order
	return nil
}

// keyedView reads its bucket live: a bucket drained after the view was
// produced reports amount 0.
type keyedView[T Resource] struct {
	storage  *KeyedStorage[T]
	resource T
}

func (v *keyedView[T]) Resource() T {
	if _, ok := v.storage.amounts[v.resource]; !ok {
		var empty T
		return empty
	}
	return v.resource
}

func (v *keyedView[T]) Amount() int64 { return v.storage.amounts[v.resource] }

func (v *keyedView[T]) Capacity() int64 { return v.storage.perCapacity }

func (v *keyedView[T]) IsEmpty() bool { return v.Amount() == 0 }

package transfer

// SingleSlot is an in-memory storage holding one bucket of a single resource
// at a time, up to a fixed capacity. It composes a Participant for rollback
// and doubles as its own StorageView.
type SingleSlot[T Resource] struct {
	mgr      *Manager
	counter  *VersionCounter
	capacity int64
	filter   func(T) bool

	resource T
	amount   int64

	part  *Participant[singleSnapshot[T]]
	guard ViewGuard
}

type singleSnapshot[T Resource] struct {
	resource T
	amount   int64
}

// SingleSlotOption configures a SingleSlot.
type SingleSlotOption[T Resource] func(*SingleSlot[T])

// WithFilter restricts the resources the slot accepts. Filtered resources
// are refused by returning 0 from Insert, not by erroring.
func WithFilter[T Resource](filter func(T) bool) SingleSlotOption[T] {
	return func(s *SingleSlot[T]) {
		s.filter = filter
	}
}

// WithContents seeds the slot with an initial resource and amount.
func WithContents[T Resource](resource T, amount int64) SingleSlotOption[T] {
	return func(s *SingleSlot[T]) {
		s.resource = resource
		s.amount = amount
	}
}

// NewSingleSlot constructs an empty slot bound to the given manager and
// version counter.
func NewSingleSlot[T Resource](mgr *Manager, counter *VersionCounter, capacity int64, opts ...SingleSlotOption[T]) *SingleSlot[T] {
	if capacity < 0 {
		capacity = 0
	}
	s := &SingleSlot[T]{mgr: mgr, counter: counter, capacity: capacity}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.part = NewParticipant[singleSnapshot[T]](s)
	return s
}

// SupportsInsertion implements Storage.
func (s *SingleSlot[T]) SupportsInsertion() bool { return true }

// SupportsExtraction implements Storage.
func (s *SingleSlot[T]) SupportsExtraction() bool { return true }

// Insert implements Storage. The slot refuses resources that do not match
// its current contents or its filter by accepting 0.
func (s *SingleSlot[T]) Insert(resource T, maxAmount int64, t *Transaction) (int64, error) {
	if err := CheckTransfer(resource, maxAmount, t); err != nil {
		return 0, err
	}
	if s.filter != nil && !s.filter(resource) {
		return 0, nil
	}
	if !s.resource.IsEmpty() && s.resource != resource {
		return 0, nil
	}
	inserted := min(maxAmount, s.capacity-s.amount)
	if inserted <= 0 {
		return 0, nil
	}
	if err := s.part.UpdateSnapshot(t); err != nil {
		return 0, err
	}
	s.resource = resource
	s.amount += inserted
	return inserted, nil
}

// Extract implements Storage.
func (s *SingleSlot[T]) Extract(resource T, maxAmount int64, t *Transaction) (int64, error) {
	if err := CheckTransfer(resource, maxAmount, t); err != nil {
		return 0, err
	}
	if s.resource != resource {
		return 0, nil
	}
	extracted := min(maxAmount, s.amount)
	if extracted <= 0 {
		return 0, nil
	}
	if err := s.part.UpdateSnapshot(t); err != nil {
		return 0, err
	}
	s.amount -= extracted
	if s.amount == 0 {
		var empty T
		s.resource = empty
	}
	return extracted, nil
}

// Iterator implements Storage. The single bucket is always exposed; an empty
// slot yields a view reporting IsEmpty.
func (s *SingleSlot[T]) Iterator(t *Transaction) (*ViewIterator[T], error) {
	if err := s.guard.Acquire(t); err != nil {
		return nil, err
	}
	return NewViewIterator[T](t, s), nil
}

// AnyView implements Storage.
func (s *SingleSlot[T]) AnyView(t *Transaction) (StorageView[T], error) {
	if err := s.guard.Acquire(t); err != nil {
		return nil, err
	}
	return s, nil
}

// ExactView implements Storage. The lookup is trivially O(1): the view is
// returned only when the slot currently holds the requested resource.
func (s *SingleSlot[T]) ExactView(t *Transaction, resource T) (StorageView[T], error) {
	if err := s.guard.Acquire(t); err != nil {
		return nil, err
	}
	if s.resource != resource {
		return nil, nil
	}
	return s, nil
}

// Version implements Storage.
func (s *SingleSlot[T]) Version() (Version, error) {
	if s.mgr.IsOpen() {
		return 0, ErrVersionDuringTransaction
	}
	return s.counter.Next(), nil
}

// Resource implements StorageView.
func (s *SingleSlot[T]) Resource() T { return s.resource }

// Amount implements StorageView.
func (s *SingleSlot[T]) Amount() int64 { return s.amount }

// Capacity implements StorageView.
func (s *SingleSlot[T]) Capacity() int64 { return s.capacity }

// IsEmpty implements StorageView.
func (s *SingleSlot[T]) IsEmpty() bool { return s.amount == 0 }

// CreateSnapshot implements Snapshotter.
func (s *SingleSlot[T]) CreateSnapshot() singleSnapshot[T] {
	return singleSnapshot[T]{resource: s.resource, amount: s.amount}
}

// ReadSnapshot implements Snapshotter.
func (s *SingleSlot[T]) ReadSnapshot(snapshot singleSnapshot[T]) error {
	s.resource = snapshot.resource
	s.amount = snapshot.amount
	return nil
}

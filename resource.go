package transfer

// Resource constrains the identity values a storage can hold. Resources are
// immutable, comparable, and expose a distinguished empty value. The zero
// value of an implementing type must report IsEmpty() == true: storages reset
// drained buckets to the zero value and rely on it being the empty sentinel.
//
// The empty value is never a valid transfer operand.
type Resource interface {
	comparable
	IsEmpty() bool
}

// CheckTransfer validates the shared preconditions of Insert and Extract:
// a non-empty resource, a non-negative maximum amount, and a transaction that
// is currently the innermost open one. Storage implementations outside this
// package call it at the top of both operations.
func CheckTransfer[T Resource](resource T, maxAmount int64, t *Transaction) error {
	if resource.IsEmpty() {
		return ErrEmptyResource
	}
	if maxAmount < 0 {
		return ErrNegativeAmount
	}
	if t == nil {
		return ErrNoTransaction
	}
	return t.requireCurrent()
}

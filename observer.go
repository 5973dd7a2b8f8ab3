package transfer

import "time"

// Op identifies a transaction lifecycle step reported to observers.
type Op string

const (
	OpOpen   Op = "open"
	OpCommit Op = "commit"
	OpAbort  Op = "abort"
)

// OpEvent describes one transaction lifecycle step.
type OpEvent struct {
	Op       Op
	TxID     uint64
	Depth    int
	Duration time.Duration
	Err      error
}

// Observer records transaction lifecycle events.
type Observer interface {
	ObserveTransaction(OpEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(OpEvent)

// ObserveTransaction implements Observer.
func (f ObserverFunc) ObserveTransaction(event OpEvent) {
	if f != nil {
		f(event)
	}
}

type noopObserver struct{}

func (noopObserver) ObserveTransaction(OpEvent) {}

package transfer

import (
	"errors"
	"time"
)

// Manager owns one strictly nested transaction stack. A Manager is the unit
// of single-actor sequencing: all transactions opened through it form one
// chain, and exactly one of them is the innermost open transaction at any
// time. Managers are not safe for concurrent use; the caller that opens a
// transaction is expected to drive it to completion before yielding.
type Manager struct {
	stack    []*Transaction
	nextID   uint64
	poisoned bool
	observer Observer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithObserver attaches an observer receiving transaction lifecycle events.
func WithObserver(observer Observer) ManagerOption {
	return func(m *Manager) {
		if observer == nil {
			m.observer = noopObserver{}
			return
		}
		m.observer = observer
	}
}

// NewManager constructs an empty transaction manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{observer: noopObserver{}}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// IsOpen reports whether any transaction is currently open on this manager.
func (m *Manager) IsOpen() bool {
	return m != nil && len(m.stack) > 0
}

// OpenRoot opens the outermost transaction. It fails when a transaction is
// already open or when a previous rollback left the manager poisoned.
func (m *Manager) OpenRoot() (*Transaction, error) {
	if m.poisoned {
		return nil, ErrManagerPoisoned
	}
	if len(m.stack) > 0 {
		return nil, ErrTransactionOpen
	}
	return m.push(nil), nil
}

func (m *Manager) push(parent *Transaction) *Transaction {
	m.nextID++
	t := &Transaction{
		mgr:      m,
		parent:   parent,
		id:       m.nextID,
		depth:    len(m.stack),
		open:     true,
		openedAt: time.Now(),
	}
	m.stack = append(m.stack, t)
	m.observer.ObserveTransaction(OpEvent{Op: OpOpen, TxID: t.id, Depth: t.depth})
	return t
}

func (m *Manager) current() *Transaction {
	if len(m.stack) == 0 {
		return nil
	}
	return m.stack[len(m.stack)-1]
}

// Transaction is one open scope in a manager's nesting chain. Every storage
// mutation performed with a transaction is undone if that transaction, or any
// of its ancestors, aborts. Transactions are closed exactly once, by Commit
// or Abort, and only while they are the innermost open transaction.
type Transaction struct {
	mgr      *Manager
	parent   *Transaction
	id       uint64
	depth    int
	open     bool
	openedAt time.Time

	// participants registered at this depth, in registration order, with a
	// membership set for the idempotence check in UpdateSnapshot.
	participants []participant
	registered   map[participant]struct{}
}

// participant is the non-generic contract Participant[S] presents to the
// transaction it registered with. All methods operate on the snapshot the
// participant stored for the given depth.
type participant interface {
	moveSnapshot(from, to int)
	discardSnapshot(depth int)
	releaseSnapshot(depth int)
	revertSnapshot(depth int) error
	notifyFinalCommit()
}

// ID returns the transaction's manager-scoped monotonic identity.
func (t *Transaction) ID() uint64 { return t.id }

// Depth returns the nesting depth; the root transaction has depth 0.
func (t *Transaction) Depth() int { return t.depth }

// IsOpen reports whether the transaction has not yet committed or aborted.
func (t *Transaction) IsOpen() bool { return t != nil && t.open }

// Manager returns the manager this transaction belongs to.
func (t *Transaction) Manager() *Manager { return t.mgr }

// OpenNested opens a child transaction. The receiver must be the innermost
// open transaction.
func (t *Transaction) OpenNested() (*Transaction, error) {
	if err := t.requireCurrent(); err != nil {
		return nil, err
	}
	return t.mgr.push(t), nil
}

// requireCurrent rejects closed transactions and transactions that are open
// but not innermost. The check is unconditional: operating on a non-current
// transaction is a programming error that must never silently reorder state.
func (t *Transaction) requireCurrent() error {
	if t == nil || !t.open {
		return ErrClosed
	}
	if t.mgr.current() != t {
		return ErrNotCurrent
	}
	return nil
}

func (t *Transaction) register(p participant) {
	if t.registered == nil {
		t.registered = make(map[participant]struct{})
	}
	if _, ok := t.registered[p]; ok {
		return
	}
	t.registered[p] = struct{}{}
	t.participants = append(t.participants, p)
}

func (t *Transaction) isRegistered(p participant) bool {
	_, ok := t.registered[p]
	return ok
}

func (t *Transaction) close() {
	t.open = false
	t.mgr.stack = t.mgr.stack[:len(t.mgr.stack)-1]
}

// Commit closes the transaction keeping its changes. For a nested
// transaction, each registered participant's snapshot is folded into the
// parent: moved up when the parent holds no older registration for that
// participant, released as superseded otherwise. For the root transaction the
// changes become durable: snapshots are released and dropped, then every
// participant's final-commit hook fires exactly once, in registration order.
func (t *Transaction) Commit() error {
	if err := t.requireCurrent(); err != nil {
		return err
	}
	t.close()

	if t.parent != nil {
		for _, p := range t.participants {
			if t.parent.isRegistered(p) {
				// The parent's snapshot is older and therefore the one an
				// eventual abort must restore to.
				p.discardSnapshot(t.depth)
			} else {
				p.moveSnapshot(t.depth, t.parent.depth)
				t.parent.register(p)
			}
		}
	} else {
		for _, p := range t.participants {
			p.releaseSnapshot(t.depth)
		}
		for _, p := range t.participants {
			p.notifyFinalCommit()
		}
	}

	t.mgr.observer.ObserveTransaction(OpEvent{
		Op:       OpCommit,
		TxID:     t.id,
		Depth:    t.depth,
		Duration: time.Since(t.openedAt),
	})
	return nil
}

// Abort closes the transaction restoring every participant registered at its
// depth to the snapshot recorded when that participant first mutated within
// it. Restores run in reverse registration order; participants must not
// observe each other during restore.
//
// Abort never fails for business reasons. It fails only when a participant's
// backing state can no longer be restored; in that case the remaining
// participants are still restored, the collected failures are returned as a
// *RollbackError, and the manager is poisoned.
func (t *Transaction) Abort() error {
	if err := t.requireCurrent(); err != nil {
		return err
	}
	t.close()

	var errs []error
	for i := len(t.participants) - 1; i >= 0; i-- {
		if err := t.participants[i].revertSnapshot(t.depth); err != nil {
			errs = append(errs, err)
		}
	}

	var err error
	if len(errs) > 0 {
		t.mgr.poisoned = true
		err = &RollbackError{TxID: t.id, Depth: t.depth, Err: errors.Join(errs...)}
	}
	t.mgr.observer.ObserveTransaction(OpEvent{
		Op:       OpAbort,
		TxID:     t.id,
		Depth:    t.depth,
		Duration: time.Since(t.openedAt),
		Err:      err,
	})
	return err
}

package transfer

import (
	"errors"
	"testing"
)

type fluid string

func (f fluid) IsEmpty() bool { return f == "" }

const (
	water fluid = "water"
	oil   fluid = "oil"
)

// brittleState is a Snapshotter whose restore can be scripted to fail,
// standing in for backing state that disappeared mid-transaction.
type brittleState struct {
	value      int64
	failReads  bool
	readErr    error
	finalCalls int
}

func (s *brittleState) CreateSnapshot() int64 { return s.value }

func (s *brittleState) ReadSnapshot(snapshot int64) error {
	if s.failReads {
		if s.readErr == nil {
			s.readErr = errors.New("backing state is gone")
		}
		return s.readErr
	}
	s.value = snapshot
	return nil
}

func (s *brittleState) OnFinalCommit() { s.finalCalls++ }

func TestOpenRootRejectsSecondRoot(t *testing.T) {
	mgr := NewManager()
	root, err := mgr.OpenRoot()
	if err != nil {
		t.Fatalf("open root: %v", err)
	}
	if !mgr.IsOpen() {
		t.Fatal("manager should report an open transaction")
	}
	if _, err := mgr.OpenRoot(); !errors.Is(err, ErrTransactionOpen) {
		t.Fatalf("expected ErrTransactionOpen, got %v", err)
	}
	if err := root.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.IsOpen() {
		t.Fatal("manager should be idle after root commit")
	}
}

func TestNestingDiscipline(t *testing.T) {
	mgr := NewManager()
	root, _ := mgr.OpenRoot()
	child, err := root.OpenNested()
	if err != nil {
		t.Fatalf("open nested: %v", err)
	}
	if child.Depth() != 1 || root.Depth() != 0 {
		t.Fatalf("unexpected depths: root=%d child=%d", root.Depth(), child.Depth())
	}

	// the parent is open but not innermost: every mutating operation on it
	// must fail fast
	if err := root.Commit(); !errors.Is(err, ErrNotCurrent) {
		t.Fatalf("commit on non-innermost: expected ErrNotCurrent, got %v", err)
	}
	if err := root.Abort(); !errors.Is(err, ErrNotCurrent) {
		t.Fatalf("abort on non-innermost: expected ErrNotCurrent, got %v", err)
	}
	if _, err := root.OpenNested(); !errors.Is(err, ErrNotCurrent) {
		t.Fatalf("nested open on non-innermost: expected ErrNotCurrent, got %v", err)
	}

	if err := child.Commit(); err != nil {
		t.Fatalf("child commit: %v", err)
	}
	if err := child.Commit(); !errors.Is(err, ErrClosed) {
		t.Fatalf("double commit: expected ErrClosed, got %v", err)
	}
	if _, err := child.OpenNested(); !errors.Is(err, ErrClosed) {
		t.Fatalf("open on closed: expected ErrClosed, got %v", err)
	}
	if err := root.Abort(); err != nil {
		t.Fatalf("root abort: %v", err)
	}
}

func TestTransactionIDsAreMonotonic(t *testing.T) {
	mgr := NewManager()
	root, _ := mgr.OpenRoot()
	child, _ := root.OpenNested()
	if child.ID() <= root.ID() {
		t.Fatalf("child id %d should exceed root id %d", child.ID(), root.ID())
	}
	child.Abort()
	root.Abort()
	next, _ := mgr.OpenRoot()
	if next.ID() <= child.ID() {
		t.Fatalf("ids must keep increasing, got %d after %d", next.ID(), child.ID())
	}
	next.Abort()
}

func TestFailedRollbackPoisonsManager(t *testing.T) {
	mgr := NewManager()
	state := &brittleState{value: 7}
	part := NewParticipant[int64](state)

	root, _ := mgr.OpenRoot()
	if err := part.UpdateSnapshot(root); err != nil {
		t.Fatalf("update snapshot: %v", err)
	}
	state.value = 9
	state.failReads = true

	err := root.Abort()
	var rollback *RollbackError
	if !errors.As(err, &rollback) {
		t.Fatalf("expected *RollbackError, got %v", err)
	}
	if !errors.Is(err, state.readErr) {
		t.Fatalf("rollback error should wrap the restore failure, got %v", err)
	}
	if root.IsOpen() {
		t.Fatal("transaction must close even when rollback fails")
	}
	if _, err := mgr.OpenRoot(); !errors.Is(err, ErrManagerPoisoned) {
		t.Fatalf("expected ErrManagerPoisoned, got %v", err)
	}
}

func TestFailedRollbackStillRestoresOtherParticipants(t *testing.T) {
	mgr := NewManager()
	healthy := &brittleState{value: 1}
	broken := &brittleState{value: 2, failReads: true}
	healthyPart := NewParticipant[int64](healthy)
	brokenPart := NewParticipant[int64](broken)

	root, _ := mgr.OpenRoot()
	healthyPart.UpdateSnapshot(root)
	brokenPart.UpdateSnapshot(root)
	healthy.value = 100
	broken.value = 200

	if err := root.Abort(); err == nil {
		t.Fatal("expected rollback error")
	}
	if healthy.value != 1 {
		t.Fatalf("healthy participant should still be restored, got %d", healthy.value)
	}
}

func TestObserverSeesLifecycle(t *testing.T) {
	var events []OpEvent
	mgr := NewManager(WithObserver(ObserverFunc(func(event OpEvent) {
		events = append(events, event)
	})))

	root, _ := mgr.OpenRoot()
	child, _ := root.OpenNested()
	child.Abort()
	root.Commit()

	ops := make([]Op, len(events))
	for i, event := range events {
		ops[i] = event.Op
	}
	want := []Op{OpOpen, OpOpen, OpAbort, OpCommit}
	if len(ops) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), ops)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], ops[i])
		}
	}
	if events[2].Depth != 1 || events[3].Depth != 0 {
		t.Fatalf("unexpected depths in events: %+v", events)
	}
}

package transfer

// Snapshotter captures and restores the rollback-relevant state of one
// storage. S is opaque to the transaction machinery: the participant hands
// snapshots to the transaction and receives them back unchanged.
//
// Implementations may additionally provide either of the optional hooks,
// discovered by type assertion:
//
//	interface{ ReleaseSnapshot(S) }  // snapshot will never be restored again
//	interface{ OnFinalCommit() }     // outermost commit became durable
//
// ReleaseSnapshot fires when a snapshot is superseded during a nested commit
// and, for each participant, when the root transaction commits. The root
// release always precedes OnFinalCommit, so a final-commit hook may rely on
// state cached by the release hook (typically the pre-transaction value).
type Snapshotter[S any] interface {
	// CreateSnapshot copies just enough live state to restore later. It is
	// called only through UpdateSnapshot, never externally.
	CreateSnapshot() S
	// ReadSnapshot restores live state from a previously created snapshot.
	// After it returns nil, the storage's externally observable state equals
	// what it was when the snapshot was taken. A non-nil error means the
	// backing state can no longer be restored; it is treated as fatal and
	// surfaces through *RollbackError.
	ReadSnapshot(S) error
}

// Participant is the capability a storage composes with to gain
// transactional rollback. It keeps a depth-indexed journal of snapshots, one
// per open ancestor transaction the storage mutated under, and implements the
// callbacks transactions invoke on commit and abort.
//
// The zero Participant is not usable; construct with NewParticipant.
type Participant[S any] struct {
	state     Snapshotter[S]
	snapshots []*S
}

// NewParticipant wires a participant to the state it snapshots. Storages
// typically pass themselves.
func NewParticipant[S any](state Snapshotter[S]) *Participant[S] {
	if state == nil {
		panic("transfer: participant state must not be nil")
	}
	return &Participant[S]{state: state}
}

// UpdateSnapshot records a pre-mutation snapshot tagged to t's depth and
// registers the participant with t. It is idempotent per depth: once a
// snapshot exists for t's depth, further calls are no-ops. Storages must call
// it before the first state-changing write at each new depth.
func (p *Participant[S]) UpdateSnapshot(t *Transaction) error {
	if t == nil {
		return ErrNoTransaction
	}
	if err := t.requireCurrent(); err != nil {
		return err
	}
	if p.at(t.depth) != nil {
		return nil
	}
	snapshot := p.state.CreateSnapshot()
	p.set(t.depth, &snapshot)
	t.register(p)
	return nil
}

func (p *Participant[S]) at(depth int) *S {
	if depth < len(p.snapshots) {
		return p.snapshots[depth]
	}
	return nil
}

func (p *Participant[S]) set(depth int, snapshot *S) {
	for len(p.snapshots) <= depth {
		p.snapshots = append(p.snapshots, nil)
	}
	p.snapshots[depth] = snapshot
}

// moveSnapshot promotes the snapshot at the closed depth to the parent depth.
// Only called when the parent depth holds no registration.
func (p *Participant[S]) moveSnapshot(from, to int) {
	p.set(to, p.at(from))
	p.snapshots[from] = nil
}

// discardSnapshot releases a snapshot superseded by an older registration at
// the parent depth.
func (p *Participant[S]) discardSnapshot(depth int) {
	p.release(depth)
	p.snapshots[depth] = nil
}

// releaseSnapshot releases the snapshot on root commit.
func (p *Participant[S]) releaseSnapshot(depth int) {
	p.release(depth)
	p.snapshots[depth] = nil
}

func (p *Participant[S]) release(depth int) {
	snapshot := p.at(depth)
	if snapshot == nil {
		return
	}
	if r, ok := p.state.(interface{ ReleaseSnapshot(S) }); ok {
		r.ReleaseSnapshot(*snapshot)
	}
}

// revertSnapshot restores live state from the snapshot at the aborted depth
// and drops the registration entry.
func (p *Participant[S]) revertSnapshot(depth int) error {
	snapshot := p.at(depth)
	if snapshot == nil {
		return nil
	}
	p.snapshots[depth] = nil
	return p.state.ReadSnapshot(*snapshot)
}

func (p *Participant[S]) notifyFinalCommit() {
	if f, ok := p.state.(interface{ OnFinalCommit() }); ok {
		f.OnFinalCommit()
	}
}

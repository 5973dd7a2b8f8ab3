// Package boltstore keeps resource buckets in a bbolt database, treating the
// database as externally owned mutable state: anything outside the
// transaction model may change or delete a record. Writes go through raw
// during a transaction, external notification waits for the durable commit,
// and a rollback that finds the backing record gone fails fatally.
package boltstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/goliatone/go-transfer"
	"github.com/goliatone/go-transfer/pkg/lifecycle"
)

// ErrBackingGone indicates the record a rollback must restore no longer
// exists in a compatible shape. There is no well-defined recovery.
var ErrBackingGone = errors.New("boltstore: backing record is gone")

var bucketTanks = []byte("tanks")

// record is the persisted shape of one tank, cbor-encoded.
type record struct {
	Amount    int64     `cbor:"1,keyasint"`
	UpdatedAt time.Time `cbor:"2,keyasint"`
}

// Store wraps one bolt database holding tank records keyed by location.
type Store struct {
	db      *bolt.DB
	mgr     *transfer.Manager
	counter *transfer.VersionCounter
	emitter *lifecycle.Emitter
}

// StoreOption configures a Store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	hooks lifecycle.Hooks
}

// WithHooks attaches lifecycle hooks notified on tank availability changes
// and durable commits.
func WithHooks(hooks lifecycle.Hooks) StoreOption {
	return func(cfg *storeConfig) {
		cfg.hooks = hooks
	}
}

// Open opens (creating if needed) the database at path and binds it to the
// given manager and version counter.
func Open(path string, mgr *transfer.Manager, counter *transfer.VersionCounter, opts ...StoreOption) (*Store, error) {
	cfg := storeConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %q: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTanks)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: init %q: %w", path, err)
	}

	return &Store{
		db:      db,
		mgr:     mgr,
		counter: counter,
		emitter: lifecycle.NewEmitter(cfg.hooks, lifecycle.Config{
			Enabled: len(cfg.hooks) > 0,
			Source:  "boltstore",
		}),
	}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// TankAmount reads the persisted amount at location, ok == false when no
// record exists.
func (s *Store) TankAmount(location string) (int64, bool, error) {
	var rec record
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketTanks).Get([]byte(location))
		if raw == nil {
			return nil
		}
		found = true
		return cbor.Unmarshal(raw, &rec)
	})
	if err != nil {
		return 0, false, fmt.Errorf("boltstore: read %q: %w", location, err)
	}
	return rec.Amount, found, nil
}

// Tanks lists the locations holding a record, in key order.
func (s *Store) Tanks() ([]string, error) {
	var locations []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTanks).ForEach(func(k, _ []byte) error {
			locations = append(locations, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("boltstore: list tanks: %w", err)
	}
	return locations, nil
}

// DropTank deletes the record at location, simulating the backing object
// being destroyed by something outside the transaction model, and emits the
// unavailable signal.
func (s *Store) DropTank(location string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTanks).Delete([]byte(location))
	})
	if err != nil {
		return fmt.Errorf("boltstore: drop %q: %w", location, err)
	}
	s.emitter.Emit(context.Background(), lifecycle.NewEvent(lifecycle.KindUnavailable, location))
	return nil
}

func (s *Store) readRecord(location string) (record, bool, error) {
	var rec record
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketTanks).Get([]byte(location))
		if raw == nil {
			return nil
		}
		found = true
		return cbor.Unmarshal(raw, &rec)
	})
	return rec, found, err
}

func (s *Store) writeRecord(location string, rec record) error {
	raw, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTanks).Put([]byte(location), raw)
	})
}

// writeExisting writes rec only if a record already exists at location; the
// caller treats absence as the backing object being gone.
func (s *Store) writeExisting(location string, rec record) error {
	raw, err := cbor.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketTanks)
		if bucket == nil || bucket.Get([]byte(location)) == nil {
			return fmt.Errorf("%w: %q", ErrBackingGone, location)
		}
		return bucket.Put([]byte(location), raw)
	})
}

// Package store implements the transactional node catalogue (spec §4.3): a
// badger-backed map from NodeAddress to NodeRecord, a sibling fwu_state
// table, and post-commit change-event fan-out.
package store

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/elrafoon/ptnet-mgr/internal/broadcast"
	"github.com/elrafoon/ptnet-mgr/internal/model"
	"github.com/elrafoon/ptnet-mgr/internal/ptneterr"
)

// UpdateMode selects the precondition for Update/UpdateMany (spec §4.3).
type UpdateMode int

const (
	UpdateOrCreate UpdateMode = iota
	MustCreate
	MustExist
)

// Store wraps one badger database holding the nodes and fwu_state tables.
type Store struct {
	db     *badgerdb.DB
	events *broadcast.Broadcaster[Event]
}

// Open opens (creating if absent) the tables described by opts, per spec
// §4.3's "init" operation: badger itself lazily creates on first write, so
// init here just opens the database handle and readies the event bus.
func Open(opts badgerdb.Options) (*Store, error) {
	opts = opts.WithLogger(nil)
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w: %v", ptneterr.ErrIO, err)
	}
	return &Store{db: db, events: newBroadcaster()}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w: %v", ptneterr.ErrIO, err)
	}
	return nil
}

// Subscribe returns a bounded, drop-oldest channel of node change events and
// an unsubscribe function (spec §4.3).
func (s *Store) Subscribe() (<-chan Event, func()) {
	return s.events.Subscribe()
}

// Len returns the number of node records (spec §4.3).
func (s *Store) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixNode)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(opts.Prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: len: %w: %v", ptneterr.ErrIO, err)
	}
	return n, nil
}

// List returns every node address currently in the store, in the
// address's total order (spec §3, §4.3).
func (s *Store) List(ctx context.Context) ([]model.NodeAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var addrs []model.NodeAddress
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(prefixNode)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			addrs = append(addrs, addrFromNodeKey(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: list: %w: %v", ptneterr.ErrIO, err)
	}
	return addrs, nil
}

// LoadMany fetches every record in keys, failing ErrNotFound on the first
// missing key (spec §4.3).
func (s *Store) LoadMany(ctx context.Context, keys []model.NodeAddress) ([]model.NodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	recs := make([]model.NodeRecord, 0, len(keys))
	err := s.db.View(func(txn *badgerdb.Txn) error {
		for _, k := range keys {
			rec, err := getNode(txn, k)
			if err != nil {
				return err
			}
			recs = append(recs, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recs, nil
}

func getNode(txn *badgerdb.Txn, addr model.NodeAddress) (*model.NodeRecord, error) {
	item, err := txn.Get(keyNode(addr))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, fmt.Errorf("store: node %s: %w", addr, ptneterr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get node %s: %w: %v", addr, ptneterr.ErrIO, err)
	}
	var rec *model.NodeRecord
	err = item.Value(func(val []byte) error {
		var decErr error
		rec, decErr = decodeNodeRecord(val)
		return decErr
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func putNode(txn *badgerdb.Txn, rec *model.NodeRecord) error {
	b, err := encodeNodeRecord(rec)
	if err != nil {
		return err
	}
	if err := txn.Set(keyNode(rec.Address), b); err != nil {
		return fmt.Errorf("store: put node %s: %w: %v", rec.Address, ptneterr.ErrIO, err)
	}
	return nil
}

// Modify reads the current record for key (zero value if absent), passes it
// to fn, and writes back the result iff fn reports a change — aborting the
// transaction with no event otherwise (spec §4.3).
func (s *Store) Modify(ctx context.Context, key model.NodeAddress, fn func(model.NodeRecord) (model.NodeRecord, bool)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var event *Event
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		existing, err := getNode(txn, key)
		existed := true
		if errors.Is(err, ptneterr.ErrNotFound) {
			existing = &model.NodeRecord{Address: key}
			existed = false
		} else if err != nil {
			return err
		}

		next, changed := fn(*existing)
		if !changed {
			return nil
		}
		next.Address = key
		if err := putNode(txn, &next); err != nil {
			return err
		}
		kind := NodeModified
		if !existed {
			kind = NodeAdded
		}
		event = &Event{Kind: kind, Record: next}
		return nil
	})
	if err != nil {
		return err
	}
	if event != nil {
		s.events.Publish(*event)
	}
	return nil
}

// Update writes rec under the given mode's precondition (spec §4.3).
func (s *Store) Update(ctx context.Context, rec model.NodeRecord, mode UpdateMode) error {
	return s.UpdateMany(ctx, []model.NodeRecord{rec}, mode)
}

// UpdateMany applies every record in recs under one transaction, each
// checked against mode's precondition; events are published only after the
// transaction commits (spec §4.3).
func (s *Store) UpdateMany(ctx context.Context, recs []model.NodeRecord, mode UpdateMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events := make([]Event, 0, len(recs))
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for _, rec := range recs {
			_, err := txn.Get(keyNode(rec.Address))
			exists := err == nil
			if err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("store: update %s: %w: %v", rec.Address, ptneterr.ErrIO, err)
			}

			switch mode {
			case MustCreate:
				if exists {
					return fmt.Errorf("store: node %s: %w", rec.Address, ptneterr.ErrAlreadyExists)
				}
			case MustExist:
				if !exists {
					return fmt.Errorf("store: node %s: %w", rec.Address, ptneterr.ErrNotFound)
				}
			}

			r := rec
			if err := putNode(txn, &r); err != nil {
				return err
			}
			kind := NodeModified
			if !exists {
				kind = NodeAdded
			}
			events = append(events, Event{Kind: kind, Record: r})
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, ev := range events {
		s.events.Publish(ev)
	}
	return nil
}

// RemoveMany deletes every key in one transaction (spec §4.3, §8 scenario
// S4). Missing keys are not an error: removal is idempotent, and only keys
// that existed produce a NodeRemoved event.
func (s *Store) RemoveMany(ctx context.Context, keys []model.NodeAddress) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events := make([]Event, 0, len(keys))
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		for _, k := range keys {
			_, err := txn.Get(keyNode(k))
			existed := err == nil
			if err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
				return fmt.Errorf("store: remove %s: %w: %v", k, ptneterr.ErrIO, err)
			}
			if err := txn.Delete(keyNode(k)); err != nil {
				return fmt.Errorf("store: remove %s: %w: %v", k, ptneterr.ErrIO, err)
			}
			if existed {
				events = append(events, Event{Kind: NodeRemoved, Record: model.NodeRecord{Address: k}})
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store: remove_many: %w", err)
	}
	for _, ev := range events {
		s.events.Publish(ev)
	}
	return nil
}

// GetFWUState returns the FWU goal for addr, defaulting to GoalNone when no
// entry has been created yet (spec §3, "lazily created on first inspection").
func (s *Store) GetFWUState(ctx context.Context, addr model.NodeAddress) (model.FWUState, error) {
	if err := ctx.Err(); err != nil {
		return model.FWUState{}, err
	}
	var st model.FWUState
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(keyFWU(addr))
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("store: fwu state %s: %w: %v", addr, ptneterr.ErrIO, err)
		}
		return item.Value(func(val []byte) error {
			decoded, decErr := decodeFWUState(val)
			if decErr != nil {
				return decErr
			}
			st = *decoded
			return nil
		})
	})
	if err != nil {
		return model.FWUState{}, err
	}
	return st, nil
}

// SetGoal writes the FWU goal for addr, creating the fwu_state entry if
// absent (spec §3: FWUState entries may exist with no NodeRecord, and vice
// versa, so this never touches the nodes table).
func (s *Store) SetGoal(ctx context.Context, addr model.NodeAddress, goal model.Goal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st := model.FWUState{Goal: goal}
	b, err := encodeFWUState(&st)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(keyFWU(addr), b)
	})
	if err != nil {
		return fmt.Errorf("store: set goal %s: %w: %v", addr, ptneterr.ErrIO, err)
	}
	return nil
}

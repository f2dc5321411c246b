// Package storage persists platform state (referral edges, the order
// arena and the round record) in Pebble so a restarted node resumes
// where it left off. Asset and currency balances belong to the external
// ledgers and are not stored here.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/acdex/pkg/exchange/orderbook"
	"github.com/uhyunpark/acdex/pkg/exchange/round"
)

type Store struct {
	db *pebble.DB
}

func NewStore(path string) (*Store, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(32 << 20),
		MemTableSize: 16 << 20,
		MaxOpenFiles: 500,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveReferral persists one referral edge. Edges are immutable, so the
// key is only ever written once.
func (s *Store) SaveReferral(acct, referrer common.Address) error {
	if err := s.db.Set(referralKey(acct), referrer.Bytes(), pebble.Sync); err != nil {
		return fmt.Errorf("save referral: %w", err)
	}
	return nil
}

// LoadReferrals scans every referral edge.
func (s *Store) LoadReferrals() (map[common.Address]common.Address, error) {
	prefix := []byte(prefixReferral)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("referral iterator: %w", err)
	}
	defer iter.Close()

	edges := make(map[common.Address]common.Address)
	for iter.First(); iter.Valid(); iter.Next() {
		acct, err := referralKeyAddress(iter.Key())
		if err != nil {
			continue // skip corrupt entries
		}
		edges[acct] = common.BytesToAddress(iter.Value())
	}
	return edges, nil
}

// SaveOrder persists one arena slot (open or closed).
func (s *Store) SaveOrder(o orderbook.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	if err := s.db.Set(orderKey(o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	return nil
}

// LoadOrders returns all persisted orders in id order.
func (s *Store) LoadOrders() ([]orderbook.Order, error) {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("order iterator: %w", err)
	}
	defer iter.Close()

	var orders []orderbook.Order
	for iter.First(); iter.Valid(); iter.Next() {
		var o orderbook.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// SaveRound persists the current round record.
func (s *Store) SaveRound(st round.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal round: %w", err)
	}
	if err := s.db.Set(roundKey(), data, pebble.Sync); err != nil {
		return fmt.Errorf("save round: %w", err)
	}
	return nil
}

// LoadRound returns the persisted round record, reporting false when
// the store is fresh.
func (s *Store) LoadRound() (round.State, bool, error) {
	data, closer, err := s.db.Get(roundKey())
	if err == pebble.ErrNotFound {
		return round.State{}, false, nil
	}
	if err != nil {
		return round.State{}, false, fmt.Errorf("get round: %w", err)
	}
	defer closer.Close()

	var st round.State
	if err := json.Unmarshal(data, &st); err != nil {
		return round.State{}, false, fmt.Errorf("unmarshal round: %w", err)
	}
	return st, true, nil
}

// SaveTrade persists a redemption atomically: the consumed order slot
// and the round record with its updated trade volume commit together.
func (s *Store) SaveTrade(o orderbook.Order, st round.State) error {
	b := s.NewBatch()
	defer b.Close()
	if err := b.SaveOrder(o); err != nil {
		return fmt.Errorf("batch order: %w", err)
	}
	if err := b.SaveRound(st); err != nil {
		return fmt.Errorf("batch round: %w", err)
	}
	return b.Commit()
}

// Batch groups writes from one platform operation so they commit
// atomically (a redemption touches both its order and the round record).
type Batch struct {
	batch *pebble.Batch
}

func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

func (b *Batch) SaveOrder(o orderbook.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return b.batch.Set(orderKey(o.ID), data, nil)
}

func (b *Batch) SaveRound(st round.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return b.batch.Set(roundKey(), data, nil)
}

func (b *Batch) Commit() error { return b.batch.Commit(pebble.Sync) }
func (b *Batch) Close() error  { return b.batch.Close() }

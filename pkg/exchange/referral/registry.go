// Package referral records who referred whom. Each account has at most
// one referrer, set once and never changed; the commission engine walks
// up to two levels of this graph when splitting payments.
package referral

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrSelfReferral    = errors.New("cannot refer yourself")
	ErrAlreadyReferred = errors.New("address already has a referrer")
)

type Registry struct {
	mu    sync.RWMutex
	edges map[common.Address]common.Address
}

func NewRegistry() *Registry {
	return &Registry{edges: make(map[common.Address]common.Address)}
}

// Register records referrer as acct's referrer. The edge is immutable:
// a second registration for the same account always fails.
func (r *Registry) Register(acct, referrer common.Address) error {
	if acct == referrer {
		return ErrSelfReferral
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.edges[acct]; exists {
		return ErrAlreadyReferred
	}
	r.edges[acct] = referrer
	return nil
}

// Referrer returns acct's direct referrer, if registered.
func (r *Registry) Referrer(acct common.Address) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ref, ok := r.edges[acct]
	return ref, ok
}

// Ancestors returns acct's referrer (tier 1) and that referrer's own
// referrer (tier 2). A missing tier reports ok=false.
func (r *Registry) Ancestors(acct common.Address) (tier1, tier2 common.Address, ok1, ok2 bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tier1, ok1 = r.edges[acct]
	if !ok1 {
		return common.Address{}, common.Address{}, false, false
	}
	tier2, ok2 = r.edges[tier1]
	return tier1, tier2, ok1, ok2
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.edges)
}

// Snapshot copies all edges, for persistence.
func (r *Registry) Snapshot() map[common.Address]common.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[common.Address]common.Address, len(r.edges))
	for k, v := range r.edges {
		out[k] = v
	}
	return out
}

// Restore replaces the edge set with a previously persisted snapshot.
// Only called at startup, before the registry is shared.
func (r *Registry) Restore(edges map[common.Address]common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges = make(map[common.Address]common.Address, len(edges))
	for k, v := range edges {
		r.edges[k] = v
	}
}

package auth

import (
	"sync"
	"time"
)

// RevocationList is an in-memory token id blacklist, cleared on restart.
// Entries are pruned once the token would have expired anyway.
type RevocationList struct {
	mux   sync.Mutex
	store map[string]time.Time
	now   func() time.Time
}

// NewRevocationList creates an empty list
func NewRevocationList() *RevocationList {
	return &RevocationList{
		store: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Revoke adds a token id until exp
func (r *RevocationList) Revoke(jti string, exp time.Time) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.store[jti] = exp
	r.evict()
}

// IsRevoked reports whether jti is blacklisted and not yet expired
func (r *RevocationList) IsRevoked(jti string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.evict()
	_, ok := r.store[jti]
	return ok
}

// Len returns the number of live entries
func (r *RevocationList) Len() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.evict()
	return len(r.store)
}

// must be called with mux held
func (r *RevocationList) evict() {
	now := r.now()
	for jti, exp := range r.store {
		if !exp.After(now) {
			delete(r.store, jti)
		}
	}
}

package core

import (
	"errors"
	"fmt"
)

// ErrGiftIDReused is returned when a gift id already stocked earlier in the
// run, consumed or not, is stocked again.
var ErrGiftIDReused = errors.New("gift id already used in this run")

// GiftRegistry remembers every gift id stocked during one run so that an id
// can never reach two children.
type GiftRegistry struct {
	seen map[string]struct{}
}

// NewGiftRegistry returns an empty registry.
func NewGiftRegistry() *GiftRegistry {
	return &GiftRegistry{seen: make(map[string]struct{})}
}

// Check reports ErrGiftIDReused when id has been claimed. Empty ids pass; the
// store assigns a fresh one.
func (r *GiftRegistry) Check(id string) error {
	if r == nil || id == "" {
		return nil
	}
	if _, ok := r.seen[id]; ok {
		return fmt.Errorf("%w: %q", ErrGiftIDReused, id)
	}
	return nil
}

// Claim records id.
func (r *GiftRegistry) Claim(id string) {
	if r == nil || id == "" {
		return
	}
	r.seen[id] = struct{}{}
}

// Len returns the number of claimed ids.
func (r *GiftRegistry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.seen)
}

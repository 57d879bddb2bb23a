// Package memory provides an in-memory implementation of the population and
// catalog store used for tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"santasim/pkg/domain"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Child aliases domain.Child for in-memory persistence operations.
	Child = domain.Child
	// Gift aliases domain.Gift.
	Gift = domain.Gift
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// Snapshot aliases domain.State, the serialisable form of the store.
	Snapshot = domain.State
)

// memoryState keeps both collections as ordered slices: insertion order is
// the population order and the catalog tie-break order.
type memoryState struct {
	children []Child
	gifts    []Gift
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		children: make([]Child, len(s.children)),
		gifts:    append([]Gift{}, s.gifts...),
	}
	for i, c := range s.children {
		cloned.children[i] = domain.CloneChild(c)
	}
	return cloned
}

func (s memoryState) childIndex(id int) int {
	for i, c := range s.children {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (s memoryState) giftIndex(id string) int {
	for i, g := range s.gifts {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	cloned := state.clone()
	return Snapshot{Children: cloned.children, Gifts: cloned.gifts}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{children: s.Children, gifts: s.Gifts}.clone()
}

// Store provides an in-memory transactional store for children and gifts.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{engine: engine}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState returns a deep copy of the current population and catalog.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store contents with a copy of snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(snapshot)
}

// RulesEngine exposes the engine evaluated on every commit.
func (s *Store) RulesEngine() *RulesEngine {
	return s.engine
}

// ListChildren returns the population in store order.
func (s *Store) ListChildren() []Child {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListChildren()
}

// ListGifts returns the catalog in insertion order.
func (s *Store) ListGifts() []Gift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state).ListGifts()
}

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func (v transactionView) ListChildren() []Child {
	out := make([]Child, len(v.state.children))
	for i, c := range v.state.children {
		out[i] = domain.CloneChild(c)
	}
	return out
}

func (v transactionView) ListGifts() []Gift {
	return append([]Gift{}, v.state.gifts...)
}

func (v transactionView) FindChild(id int) (Child, bool) {
	idx := v.state.childIndex(id)
	if idx < 0 {
		return Child{}, false
	}
	return domain.CloneChild(v.state.children[idx]), true
}

func (v transactionView) FindGift(id string) (Gift, bool) {
	idx := v.state.giftIndex(id)
	if idx < 0 {
		return Gift{}, false
	}
	return v.state.gifts[idx], true
}

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the live state only when fn succeeds and no rule blocks.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View runs fn against a read-only copy of the current state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) FindChild(id int) (Child, bool) {
	return tx.Snapshot().FindChild(id)
}

func (tx *transaction) FindGift(id string) (Gift, bool) {
	return tx.Snapshot().FindGift(id)
}

func (tx *transaction) CreateChild(c Child) (Child, error) {
	if tx.state.childIndex(c.ID) >= 0 {
		return Child{}, fmt.Errorf("child %d already exists", c.ID)
	}
	tx.state.children = append(tx.state.children, domain.CloneChild(c))
	tx.recordChange(Change{Entity: domain.EntityChild, Action: domain.ActionCreate, After: domain.CloneChild(c)})
	return domain.CloneChild(c), nil
}

func (tx *transaction) UpdateChild(id int, mutator func(*Child) error) (Child, error) {
	idx := tx.state.childIndex(id)
	if idx < 0 {
		return Child{}, domain.ErrNotFound{Entity: domain.EntityChild, ID: strconv.Itoa(id)}
	}
	before := domain.CloneChild(tx.state.children[idx])
	current := domain.CloneChild(before)
	if err := mutator(&current); err != nil {
		return Child{}, err
	}
	current.ID = id
	tx.state.children[idx] = domain.CloneChild(current)
	tx.recordChange(Change{Entity: domain.EntityChild, Action: domain.ActionUpdate, Before: before, After: domain.CloneChild(current)})
	return current, nil
}

// DeleteChild materialises a new population slice without the child so that
// callers iterating an earlier listing are unaffected.
func (tx *transaction) DeleteChild(id int) error {
	idx := tx.state.childIndex(id)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityChild, ID: strconv.Itoa(id)}
	}
	removed := tx.state.children[idx]
	survivors := make([]Child, 0, len(tx.state.children)-1)
	survivors = append(survivors, tx.state.children[:idx]...)
	survivors = append(survivors, tx.state.children[idx+1:]...)
	tx.state.children = survivors
	tx.recordChange(Change{Entity: domain.EntityChild, Action: domain.ActionDelete, Before: removed})
	return nil
}

func (tx *transaction) CreateGift(g Gift) (Gift, error) {
	if g.ID == "" {
		g.ID = tx.store.newID()
	}
	if tx.state.giftIndex(g.ID) >= 0 {
		return Gift{}, fmt.Errorf("gift %q already exists", g.ID)
	}
	tx.state.gifts = append(tx.state.gifts, g)
	tx.recordChange(Change{Entity: domain.EntityGift, Action: domain.ActionCreate, After: g})
	return g, nil
}

func (tx *transaction) DeleteGift(id string) error {
	idx := tx.state.giftIndex(id)
	if idx < 0 {
		return domain.ErrNotFound{Entity: domain.EntityGift, ID: id}
	}
	removed := tx.state.gifts[idx]
	survivors := make([]Gift, 0, len(tx.state.gifts)-1)
	survivors = append(survivors, tx.state.gifts[:idx]...)
	survivors = append(survivors, tx.state.gifts[idx+1:]...)
	tx.state.gifts = survivors
	tx.recordChange(Change{Entity: domain.EntityGift, Action: domain.ActionDelete, Before: removed})
	return nil
}

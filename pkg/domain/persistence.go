package domain

import "context"

// Transaction exposes the population and catalog mutations that a persistence
// implementation must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateChild(Child) (Child, error)
	UpdateChild(id int, mutator func(*Child) error) (Child, error)
	DeleteChild(id int) error
	CreateGift(Gift) (Gift, error)
	DeleteGift(id string) error
	FindChild(id int) (Child, bool)
	FindGift(id string) (Gift, bool)
}

// TransactionView provides read-only access to store contents. Lists are
// returned in insertion order.
type TransactionView interface {
	ListChildren() []Child
	ListGifts() []Gift
	FindChild(id int) (Child, bool)
	FindGift(id string) (Gift, bool)
}

// State is a serialisable copy of the population and catalog.
type State struct {
	Children []Child `json:"children"`
	Gifts    []Gift  `json:"gifts"`
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	ListChildren() []Child
	ListGifts() []Gift
	ImportState(State)
	ExportState() State
}

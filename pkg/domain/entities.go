// Package domain defines the beneficiaries, gifts, yearly change records and
// rule evaluation primitives used by santasim.
package domain

import "fmt"

// EntityType identifies the type of record stored in the population or catalog.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityChild identifies a beneficiary record in the population store.
	EntityChild EntityType = "child"
	// EntityGift identifies an item record in the catalog store.
	EntityGift EntityType = "gift"
)

// AgeCategory is the age-derived life-stage tier of a child.
type AgeCategory string

// Age tiers in ascending order. AgeYoungAdult is terminal: a child reaching it
// leaves the population.
const (
	AgeBaby       AgeCategory = "Baby"
	AgeKid        AgeCategory = "Kid"
	AgeTeen       AgeCategory = "Teen"
	AgeYoungAdult AgeCategory = "Young Adult"
)

// Terminal reports whether the tier removes a child from the population.
func (c AgeCategory) Terminal() bool { return c == AgeYoungAdult }

// GiftCategory classifies catalog items and child preferences.
type GiftCategory string

// Gift categories recognised by the catalog.
const (
	CategoryBoardGames GiftCategory = "Board Games"
	CategoryBooks      GiftCategory = "Books"
	CategoryClothes    GiftCategory = "Clothes"
	CategorySweets     GiftCategory = "Sweets"
	CategoryTechnology GiftCategory = "Technology"
	CategoryToys       GiftCategory = "Toys"
)

var knownGiftCategories = map[GiftCategory]struct{}{
	CategoryBoardGames: {},
	CategoryBooks:      {},
	CategoryClothes:    {},
	CategorySweets:     {},
	CategoryTechnology: {},
	CategoryToys:       {},
}

// Valid reports whether c is one of the recognised gift categories.
func (c GiftCategory) Valid() bool {
	_, ok := knownGiftCategories[c]
	return ok
}

// Child is a beneficiary of the yearly budget.
//
// AverageScore and Category are derived values; call Refresh before relying
// on them.
type Child struct {
	ID            int            `json:"id"`
	LastName      string         `json:"lastName"`
	FirstName     string         `json:"firstName"`
	City          string         `json:"city"`
	Age           int            `json:"age"`
	NiceScores    []float64      `json:"niceScoreHistory"`
	AverageScore  float64        `json:"averageScore"`
	Category      AgeCategory    `json:"category,omitempty"`
	Preferences   []GiftCategory `json:"giftsPreferences"`
	ReceivedGifts []Gift         `json:"receivedGifts,omitempty"`
}

// Gift is a priced catalog item. Gifts are immutable once created.
type Gift struct {
	ID       string       `json:"id"`
	Name     string       `json:"productName"`
	Price    float64      `json:"price"`
	Category GiftCategory `json:"category"`
}

// ChildUpdate appends a score and/or preferences to an existing child.
type ChildUpdate struct {
	ID          int            `json:"id"`
	NiceScore   *float64       `json:"niceScore,omitempty"`
	Preferences []GiftCategory `json:"giftsPreferences,omitempty"`
}

// AnnualChange is the external delta applied between two rounds.
type AnnualChange struct {
	// NewBudget replaces the global budget from this round onward when set.
	NewBudget   *float64      `json:"newSantaBudget,omitempty"`
	NewGifts    []Gift        `json:"newGifts"`
	NewChildren []Child       `json:"newChildren"`
	Updates     []ChildUpdate `json:"childrenUpdates"`
	// Ordering overrides the snapshot ordering for this round only.
	Ordering Ordering `json:"strategy,omitempty"`
}

// ErrNotFound is returned when a referenced record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// CloneChild returns a deep copy of c.
func CloneChild(c Child) Child {
	cp := c
	cp.NiceScores = append([]float64(nil), c.NiceScores...)
	cp.Preferences = append([]GiftCategory(nil), c.Preferences...)
	cp.ReceivedGifts = append([]Gift(nil), c.ReceivedGifts...)
	return cp
}

// Package scenario decodes simulation inputs and encodes run results in the
// JSON layout exchanged with the outside world.
package scenario

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"santasim/internal/core"
	"santasim/pkg/domain"
)

// File is the on-disk scenario document.
type File struct {
	NumberOfYears int          `json:"numberOfYears"`
	SantaBudget   float64      `json:"santaBudget"`
	InitialData   InitialData  `json:"initialData"`
	AnnualChanges []ChangeFile `json:"annualChanges"`
}

// InitialData holds the round 0 population and catalog.
type InitialData struct {
	Children []ChildFile `json:"children"`
	Gifts    []GiftFile  `json:"santaGiftsList"`
}

// ChildFile is a child as it appears in a scenario.
type ChildFile struct {
	ID          int                   `json:"id"`
	LastName    string                `json:"lastName"`
	FirstName   string                `json:"firstName"`
	Age         int                   `json:"age"`
	City        string                `json:"city"`
	NiceScore   *float64              `json:"niceScore"`
	Preferences []domain.GiftCategory `json:"giftsPreferences"`
}

// GiftFile is a gift as it appears in a scenario. ID is optional.
type GiftFile struct {
	ID       string              `json:"id,omitempty"`
	Name     string              `json:"productName"`
	Price    float64             `json:"price"`
	Category domain.GiftCategory `json:"category"`
}

// ChangeFile is one annual change.
type ChangeFile struct {
	NewSantaBudget *float64     `json:"newSantaBudget"`
	NewGifts       []GiftFile   `json:"newGifts"`
	NewChildren    []ChildFile  `json:"newChildren"`
	Updates        []UpdateFile `json:"childrenUpdates"`
	Strategy       string       `json:"strategy"`
}

// UpdateFile is a per-child update inside an annual change.
type UpdateFile struct {
	ID          int                   `json:"id"`
	NiceScore   *float64              `json:"niceScore"`
	Preferences []domain.GiftCategory `json:"giftsPreferences"`
}

// ErrYearsMismatch is returned when numberOfYears asks for more annual changes
// than the document provides.
var ErrYearsMismatch = errors.New("scenario: numberOfYears exceeds annualChanges")

// Decode reads a scenario document.
func Decode(r io.Reader) (File, error) {
	var f File
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("scenario: decode: %w", err)
	}
	return f, nil
}

// Input converts the document into simulator input. Only the first
// numberOfYears annual changes are used. Gifts without an id are numbered in
// catalog insertion order across the whole run, skipping any number whose id
// is already given explicitly somewhere in the document.
func (f File) Input() (core.Input, error) {
	if f.NumberOfYears < 0 {
		return core.Input{}, fmt.Errorf("scenario: negative numberOfYears %d", f.NumberOfYears)
	}
	if f.NumberOfYears > len(f.AnnualChanges) {
		return core.Input{}, fmt.Errorf("%w: %d > %d", ErrYearsMismatch, f.NumberOfYears, len(f.AnnualChanges))
	}
	ids := newGiftNumbering(f)
	in := core.Input{Budget: f.SantaBudget}
	var err error
	if in.Children, err = convertChildren(f.InitialData.Children); err != nil {
		return core.Input{}, fmt.Errorf("scenario: initial children: %w", err)
	}
	in.Gifts = ids.convert(f.InitialData.Gifts)
	for i, ch := range f.AnnualChanges[:f.NumberOfYears] {
		change, err := ch.toDomain(ids)
		if err != nil {
			return core.Input{}, fmt.Errorf("scenario: annual change %d: %w", i+1, err)
		}
		in.AnnualChanges = append(in.AnnualChanges, change)
	}
	return in, nil
}

func (c ChangeFile) toDomain(ids *giftNumbering) (domain.AnnualChange, error) {
	var ordering domain.Ordering
	if c.Strategy != "" {
		o, err := domain.ParseOrdering(c.Strategy)
		if err != nil {
			return domain.AnnualChange{}, err
		}
		ordering = o
	}
	children, err := convertChildren(c.NewChildren)
	if err != nil {
		return domain.AnnualChange{}, err
	}
	change := domain.AnnualChange{
		NewBudget:   c.NewSantaBudget,
		NewGifts:    ids.convert(c.NewGifts),
		NewChildren: children,
		Ordering:    ordering,
	}
	for _, u := range c.Updates {
		if err := validatePreferences(u.Preferences); err != nil {
			return domain.AnnualChange{}, fmt.Errorf("update for child %d: %w", u.ID, err)
		}
		change.Updates = append(change.Updates, domain.ChildUpdate{
			ID:          u.ID,
			NiceScore:   u.NiceScore,
			Preferences: u.Preferences,
		})
	}
	return change, nil
}

func convertChildren(in []ChildFile) ([]domain.Child, error) {
	out := make([]domain.Child, 0, len(in))
	for _, c := range in {
		if err := validatePreferences(c.Preferences); err != nil {
			return nil, fmt.Errorf("child %d: %w", c.ID, err)
		}
		child := domain.Child{
			ID:          c.ID,
			LastName:    c.LastName,
			FirstName:   c.FirstName,
			City:        c.City,
			Age:         c.Age,
			Preferences: append([]domain.GiftCategory(nil), c.Preferences...),
		}
		if c.NiceScore != nil {
			child.NiceScores = []float64{*c.NiceScore}
		}
		out = append(out, child)
	}
	return out, nil
}

func validatePreferences(prefs []domain.GiftCategory) error {
	for _, p := range prefs {
		if !p.Valid() {
			return fmt.Errorf("unknown gift category %q", p)
		}
	}
	return nil
}

type giftNumbering struct {
	next  int
	taken map[string]struct{}
}

// newGiftNumbering reserves every explicit gift id in f, including annual
// changes beyond numberOfYears.
func newGiftNumbering(f File) *giftNumbering {
	n := &giftNumbering{taken: make(map[string]struct{})}
	reserve := func(gifts []GiftFile) {
		for _, g := range gifts {
			if g.ID != "" {
				n.taken[g.ID] = struct{}{}
			}
		}
	}
	reserve(f.InitialData.Gifts)
	for _, ch := range f.AnnualChanges {
		reserve(ch.NewGifts)
	}
	return n
}

func (n *giftNumbering) convert(in []GiftFile) []domain.Gift {
	out := make([]domain.Gift, 0, len(in))
	for _, g := range in {
		n.next++
		id := g.ID
		if id == "" {
			id = n.generate()
		}
		out = append(out, domain.Gift{ID: id, Name: g.Name, Price: g.Price, Category: g.Category})
	}
	return out
}

func (n *giftNumbering) generate() string {
	for {
		id := fmt.Sprintf("G%04d", n.next)
		if _, ok := n.taken[id]; !ok {
			n.taken[id] = struct{}{}
			return id
		}
		n.next++
	}
}

// Output is the result document.
type Output struct {
	AnnualChildren []RoundOutput `json:"annualChildren"`
}

// RoundOutput is the per-round section of the result document.
type RoundOutput struct {
	Children []domain.ChildRecord `json:"children"`
}

// NewOutput wraps snapshots in round order.
func NewOutput(snapshots []domain.RoundSnapshot) Output {
	out := Output{AnnualChildren: make([]RoundOutput, len(snapshots))}
	for i, snap := range snapshots {
		children := snap.Children
		if children == nil {
			children = []domain.ChildRecord{}
		}
		out.AnnualChildren[i] = RoundOutput{Children: children}
	}
	return out
}

// Encode writes the result document as indented JSON.
func Encode(w io.Writer, snapshots []domain.RoundSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewOutput(snapshots)); err != nil {
		return fmt.Errorf("scenario: encode: %w", err)
	}
	return nil
}

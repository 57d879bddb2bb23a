package core

import (
	"fmt"
	"santasim/pkg/domain"
)

// Assignments maps a child id to the gifts it received in the current round,
// in the order they were handed out.
type Assignments map[int][]domain.Gift

// Count returns the number of gifts handed out.
func (a Assignments) Count() int {
	n := 0
	for _, gifts := range a {
		n += len(gifts)
	}
	return n
}

// AllocateGifts runs the greedy single-pass assignment for one round.
//
// Children are visited in the given order. A child with a negative average
// score receives nothing. Otherwise every preference entry is tried once, in
// order, against the child's remaining budget and the current catalog. Each
// assigned gift is charged to the ledger, appended to the child's received
// gifts and removed from the catalog.
func AllocateGifts(tx domain.Transaction, children []domain.Child, ledger Ledger) (Assignments, error) {
	catalog := tx.Snapshot().ListGifts()
	out := make(Assignments, len(children))
	for _, child := range children {
		if child.AverageScore < 0 {
			continue
		}
		for _, category := range child.Preferences {
			gift, ok := MatchGift(catalog, category, ledger[child.ID])
			if !ok {
				continue
			}
			if err := tx.DeleteGift(gift.ID); err != nil {
				return nil, fmt.Errorf("consume gift %s: %w", gift.ID, err)
			}
			if _, err := tx.UpdateChild(child.ID, func(c *domain.Child) error {
				c.ReceivedGifts = append(c.ReceivedGifts, gift)
				return nil
			}); err != nil {
				return nil, fmt.Errorf("record gift %s for child %d: %w", gift.ID, child.ID, err)
			}
			ledger[child.ID] -= gift.Price
			out[child.ID] = append(out[child.ID], gift)
			catalog = withoutGift(catalog, gift.ID)
		}
	}
	return out, nil
}

func withoutGift(catalog []domain.Gift, id string) []domain.Gift {
	survivors := make([]domain.Gift, 0, len(catalog))
	for _, g := range catalog {
		if g.ID != id {
			survivors = append(survivors, g)
		}
	}
	return survivors
}

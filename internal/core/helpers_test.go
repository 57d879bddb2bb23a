package core

import (
	"context"
	"testing"

	"santasim/internal/infra/persistence/memory"
	"santasim/pkg/domain"
)

func score(v float64) *float64 { return &v }

func newChild(id, age int, scores []float64, prefs ...domain.GiftCategory) domain.Child {
	return domain.Child{
		ID:          id,
		FirstName:   "Child",
		LastName:    "Number",
		City:        "Bucuresti",
		Age:         age,
		NiceScores:  scores,
		Preferences: prefs,
	}
}

func newGift(id string, price float64, category domain.GiftCategory) domain.Gift {
	return domain.Gift{ID: id, Name: "gift-" + id, Price: price, Category: category}
}

// seededStore returns a memory store holding children and gifts in the given order.
func seededStore(t *testing.T, children []domain.Child, gifts []domain.Gift) *memory.Store {
	t.Helper()
	store := memory.NewStore(NewDefaultRulesEngine())
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		for _, c := range children {
			if _, err := tx.CreateChild(c); err != nil {
				return err
			}
		}
		for _, g := range gifts {
			if _, err := tx.CreateGift(g); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	return store
}

func refreshed(children []domain.Child) []domain.Child {
	out := make([]domain.Child, len(children))
	for i, c := range children {
		c.Refresh(domain.DefaultAgeBands())
		out[i] = c
	}
	return out
}

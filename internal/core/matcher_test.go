package core

import (
	"testing"

	"santasim/pkg/domain"
)

func TestMatchGift(t *testing.T) {
	catalog := []domain.Gift{
		newGift("car", 30, domain.CategoryToys),
		newGift("book", 10, domain.CategoryBooks),
		newGift("doll", 20, domain.CategoryToys),
		newGift("kite", 20, domain.CategoryToys),
	}
	tests := []struct {
		name     string
		category domain.GiftCategory
		budget   float64
		wantID   string
		wantOK   bool
	}{
		{name: "cheapest wins", category: domain.CategoryToys, budget: 100, wantID: "doll", wantOK: true},
		{name: "exact budget", category: domain.CategoryToys, budget: 20, wantID: "doll", wantOK: true},
		{name: "unaffordable", category: domain.CategoryToys, budget: 19.99, wantOK: false},
		{name: "missing category", category: domain.CategorySweets, budget: 100, wantOK: false},
		{name: "negative budget", category: domain.CategoryBooks, budget: -5, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchGift(catalog, tt.category, tt.budget)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.ID != tt.wantID {
				t.Fatalf("matched %s, want %s", got.ID, tt.wantID)
			}
		})
	}
	if len(catalog) != 4 {
		t.Fatalf("matcher must not modify the catalog")
	}
}

func TestMatchGiftTieBreakFollowsInsertionOrder(t *testing.T) {
	catalog := []domain.Gift{
		newGift("z-first", 5, domain.CategorySweets),
		newGift("a-second", 5, domain.CategorySweets),
	}
	got, ok := MatchGift(catalog, domain.CategorySweets, 5)
	if !ok || got.ID != "z-first" {
		t.Fatalf("expected first inserted gift, got %+v (ok=%v)", got, ok)
	}
}

package core

import "santasim/pkg/domain"

// MatchGift selects the cheapest gift of category whose price does not exceed
// budget. Among equally cheap gifts the one earliest in catalog order wins.
// The catalog is not modified.
func MatchGift(catalog []domain.Gift, category domain.GiftCategory, budget float64) (domain.Gift, bool) {
	best := -1
	for i, g := range catalog {
		if g.Category != category {
			continue
		}
		if best < 0 || g.Price < catalog[best].Price {
			best = i
		}
	}
	if best < 0 || catalog[best].Price > budget {
		return domain.Gift{}, false
	}
	return catalog[best], true
}

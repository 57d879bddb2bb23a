package core

import (
	"context"
	"fmt"
	"math"
	"santasim/pkg/domain"
)

// NewGiftPriceRule blocks gifts with a negative or non-finite price.
func NewGiftPriceRule() domain.Rule {
	return giftPriceRule{}
}

type giftPriceRule struct{}

func (giftPriceRule) Name() string { return "gift_price_non_negative" }

func (r giftPriceRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, gift := range createdGifts(changes) {
		if gift.Price >= 0 && !math.IsInf(gift.Price, 0) {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("gift %s (%s) has invalid price %v", gift.Name, gift.ID, gift.Price),
			Entity:   domain.EntityGift,
			EntityID: gift.ID,
		})
	}
	return res, nil
}

// NewGiftCategoryRule blocks gifts whose category is not recognised.
func NewGiftCategoryRule() domain.Rule {
	return giftCategoryRule{}
}

type giftCategoryRule struct{}

func (giftCategoryRule) Name() string { return "gift_category_known" }

func (r giftCategoryRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, gift := range createdGifts(changes) {
		if gift.Category.Valid() {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("gift %s (%s) has unknown category %q", gift.Name, gift.ID, gift.Category),
			Entity:   domain.EntityGift,
			EntityID: gift.ID,
		})
	}
	return res, nil
}

func createdGifts(changes []domain.Change) []domain.Gift {
	var out []domain.Gift
	for _, change := range changes {
		if change.Entity != domain.EntityGift || change.Action != domain.ActionCreate {
			continue
		}
		if gift, ok := change.After.(domain.Gift); ok {
			out = append(out, gift)
		}
	}
	return out
}

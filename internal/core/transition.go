package core

import (
	"fmt"
	"santasim/pkg/domain"
)

// TransitionReport describes what a year transition changed.
type TransitionReport struct {
	Aged          int
	Removed       []int
	Admitted      []int
	Rejected      []int
	Updated       []int
	MissedUpdates []int
	NewGifts      int
}

// ApplyAnnualChange ages the population and merges an annual change, in order:
//
//  1. every child ages by one year; children reaching the terminal tier leave
//  2. new children are admitted unless already in the terminal tier
//  3. updates are applied to children still present; unknown ids are skipped
//  4. new gifts are appended to the catalog
//
// When gifts is non-nil a new gift whose id was stocked earlier in the run is
// rejected with ErrGiftIDReused, and every stocked id is claimed.
func ApplyAnnualChange(tx domain.Transaction, change domain.AnnualChange, bands domain.AgeBands, gifts *GiftRegistry) (TransitionReport, error) {
	var report TransitionReport

	// Removals are collected against a listing taken before any deletion.
	var removals []int
	for _, child := range tx.Snapshot().ListChildren() {
		aged, err := tx.UpdateChild(child.ID, func(c *domain.Child) error {
			c.Age++
			c.Category = bands.Categorize(c.Age)
			return nil
		})
		if err != nil {
			return report, fmt.Errorf("age child %d: %w", child.ID, err)
		}
		report.Aged++
		if aged.Category.Terminal() {
			removals = append(removals, aged.ID)
		}
	}
	for _, id := range removals {
		if err := tx.DeleteChild(id); err != nil {
			return report, fmt.Errorf("remove child %d: %w", id, err)
		}
	}
	report.Removed = removals

	for _, child := range change.NewChildren {
		child.Refresh(bands)
		if child.Category.Terminal() {
			report.Rejected = append(report.Rejected, child.ID)
			continue
		}
		if _, err := tx.CreateChild(child); err != nil {
			return report, fmt.Errorf("admit child %d: %w", child.ID, err)
		}
		report.Admitted = append(report.Admitted, child.ID)
	}

	for _, update := range change.Updates {
		if _, ok := tx.FindChild(update.ID); !ok {
			report.MissedUpdates = append(report.MissedUpdates, update.ID)
			continue
		}
		if _, err := tx.UpdateChild(update.ID, func(c *domain.Child) error {
			if update.NiceScore != nil {
				c.NiceScores = append(c.NiceScores, *update.NiceScore)
			}
			c.Preferences = append(c.Preferences, update.Preferences...)
			return nil
		}); err != nil {
			return report, fmt.Errorf("update child %d: %w", update.ID, err)
		}
		report.Updated = append(report.Updated, update.ID)
	}

	for _, gift := range change.NewGifts {
		if err := gifts.Check(gift.ID); err != nil {
			return report, fmt.Errorf("stock gift %q: %w", gift.Name, err)
		}
		created, err := tx.CreateGift(gift)
		if err != nil {
			return report, fmt.Errorf("stock gift %q: %w", gift.Name, err)
		}
		gifts.Claim(created.ID)
		report.NewGifts++
	}
	return report, nil
}

package domain

import "fmt"

// AgeBands holds the age thresholds separating the age tiers.
//
// A child is a Baby while Age < BabyMax, a Kid while Age < KidMax, a Teen
// while Age <= TeenMax and a Young Adult afterwards.
type AgeBands struct {
	BabyMax int `json:"baby_max" yaml:"baby_max"`
	KidMax  int `json:"kid_max" yaml:"kid_max"`
	TeenMax int `json:"teen_max" yaml:"teen_max"`
}

// DefaultAgeBands returns the standard thresholds: Baby under 5, Kid under 12,
// Teen up to and including 18.
func DefaultAgeBands() AgeBands {
	return AgeBands{BabyMax: 5, KidMax: 12, TeenMax: 18}
}

// Validate rejects bands that are not strictly increasing and positive.
func (b AgeBands) Validate() error {
	if b.BabyMax <= 0 {
		return fmt.Errorf("age bands: baby_max must be positive, got %d", b.BabyMax)
	}
	if b.KidMax <= b.BabyMax {
		return fmt.Errorf("age bands: kid_max (%d) must exceed baby_max (%d)", b.KidMax, b.BabyMax)
	}
	if b.TeenMax <= b.KidMax {
		return fmt.Errorf("age bands: teen_max (%d) must exceed kid_max (%d)", b.TeenMax, b.KidMax)
	}
	return nil
}

// Categorize maps an age onto its tier.
func (b AgeBands) Categorize(age int) AgeCategory {
	switch {
	case age < b.BabyMax:
		return AgeBaby
	case age < b.KidMax:
		return AgeKid
	case age <= b.TeenMax:
		return AgeTeen
	default:
		return AgeYoungAdult
	}
}

// AverageScore is the arithmetic mean of scores. An empty history averages to 0.
func AverageScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// Refresh recomputes the derived category and average score of c.
func (c *Child) Refresh(bands AgeBands) {
	c.Category = bands.Categorize(c.Age)
	c.AverageScore = AverageScore(c.NiceScores)
}

// LatestScore returns the most recent score in the child's history.
func (c Child) LatestScore() (float64, bool) {
	if len(c.NiceScores) == 0 {
		return 0, false
	}
	return c.NiceScores[len(c.NiceScores)-1], true
}

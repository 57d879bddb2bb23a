package domain

// ChildRecord is the per-child entry of a round snapshot.
type ChildRecord struct {
	ID               int            `json:"id"`
	LastName         string         `json:"lastName"`
	FirstName        string         `json:"firstName"`
	City             string         `json:"city"`
	Age              int            `json:"age"`
	Preferences      []GiftCategory `json:"giftsPreferences"`
	NiceScore        float64        `json:"niceScore"`
	AverageScore     float64        `json:"averageScore"`
	NiceScoreHistory []float64      `json:"niceScoreHistory"`
	AssignedBudget   float64        `json:"assignedBudget"`
	ReceivedGifts    []Gift         `json:"receivedGifts"`
}

// RoundSnapshot captures the outcome of a single simulated year.
type RoundSnapshot struct {
	Round      int           `json:"round"`
	Budget     float64       `json:"santaBudget"`
	BudgetUnit float64       `json:"budgetUnit"`
	Ordering   Ordering      `json:"ordering"`
	Children   []ChildRecord `json:"children"`
}

// NewChildRecord builds a snapshot record from a refreshed child. The record
// owns copies of every slice.
func NewChildRecord(c Child, budget float64) ChildRecord {
	latest, _ := c.LatestScore()
	return ChildRecord{
		ID:               c.ID,
		LastName:         c.LastName,
		FirstName:        c.FirstName,
		City:             c.City,
		Age:              c.Age,
		Preferences:      append([]GiftCategory{}, c.Preferences...),
		NiceScore:        latest,
		AverageScore:     c.AverageScore,
		NiceScoreHistory: append([]float64{}, c.NiceScores...),
		AssignedBudget:   budget,
		ReceivedGifts:    []Gift{},
	}
}

// GiftCount returns the number of gifts handed out in the round.
func (s RoundSnapshot) GiftCount() int {
	n := 0
	for _, c := range s.Children {
		n += len(c.ReceivedGifts)
	}
	return n
}

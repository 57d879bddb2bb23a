package domain

import (
	"fmt"
	"sort"
)

// Ordering names a snapshot ordering policy.
type Ordering string

// Supported ordering policies.
const (
	// OrderPopulation keeps records in population store order.
	OrderPopulation Ordering = "population"
	// OrderByID sorts records by ascending child id.
	OrderByID Ordering = "id"
	// OrderByNiceScore sorts by descending average score, then ascending id.
	OrderByNiceScore Ordering = "niceScore"
	// OrderByNiceScoreCity groups cities by descending mean average score,
	// then city name, then ascending id.
	OrderByNiceScoreCity Ordering = "niceScoreCity"
)

// ParseOrdering resolves a policy name. The empty string selects OrderPopulation.
func ParseOrdering(name string) (Ordering, error) {
	switch o := Ordering(name); o {
	case "":
		return OrderPopulation, nil
	case OrderPopulation, OrderByID, OrderByNiceScore, OrderByNiceScoreCity:
		return o, nil
	default:
		return "", fmt.Errorf("unknown ordering %q", name)
	}
}

// Apply returns a reordered copy of records. The input slice is left untouched.
func (o Ordering) Apply(records []ChildRecord) []ChildRecord {
	out := append([]ChildRecord(nil), records...)
	switch o {
	case OrderByID:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	case OrderByNiceScore:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].AverageScore != out[j].AverageScore {
				return out[i].AverageScore > out[j].AverageScore
			}
			return out[i].ID < out[j].ID
		})
	case OrderByNiceScoreCity:
		cityScore := cityAverages(out)
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i], out[j]
			if cityScore[a.City] != cityScore[b.City] {
				return cityScore[a.City] > cityScore[b.City]
			}
			if a.City != b.City {
				return a.City < b.City
			}
			return a.ID < b.ID
		})
	}
	return out
}

func cityAverages(records []ChildRecord) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range records {
		sums[r.City] += r.AverageScore
		counts[r.City]++
	}
	out := make(map[string]float64, len(sums))
	for city, sum := range sums {
		out[city] = sum / float64(counts[city])
	}
	return out
}

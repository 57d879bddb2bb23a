package core

import (
	"context"
	"fmt"
	"santasim/pkg/domain"
	"strconv"
)

// NewChildAgeRule blocks children with a negative age.
func NewChildAgeRule() domain.Rule {
	return childAgeRule{}
}

type childAgeRule struct{}

func (childAgeRule) Name() string { return "child_age_non_negative" }

func (r childAgeRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, child := range touchedChildren(changes) {
		if child.Age >= 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("child %d has negative age %d", child.ID, child.Age),
			Entity:   domain.EntityChild,
			EntityID: strconv.Itoa(child.ID),
		})
	}
	return res, nil
}

// NewScoreHistoryRule warns about children without any recorded score; their
// average is treated as zero.
func NewScoreHistoryRule() domain.Rule {
	return scoreHistoryRule{}
}

type scoreHistoryRule struct{}

func (scoreHistoryRule) Name() string { return "score_history_present" }

func (r scoreHistoryRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityChild || change.Action != domain.ActionCreate {
			continue
		}
		child, ok := change.After.(domain.Child)
		if !ok || len(child.NiceScores) > 0 {
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     r.Name(),
			Severity: domain.SeverityWarn,
			Message:  fmt.Sprintf("child %d has no score history; average treated as 0", child.ID),
			Entity:   domain.EntityChild,
			EntityID: strconv.Itoa(child.ID),
		})
	}
	return res, nil
}

// touchedChildren returns the post-change state of created or updated
// children, keeping only the latest state per id.
func touchedChildren(changes []domain.Change) []domain.Child {
	latest := make(map[int]int)
	var out []domain.Child
	for _, change := range changes {
		if change.Entity != domain.EntityChild || change.Action == domain.ActionDelete {
			continue
		}
		child, ok := change.After.(domain.Child)
		if !ok {
			continue
		}
		if idx, seen := latest[child.ID]; seen {
			out[idx] = child
			continue
		}
		latest[child.ID] = len(out)
		out = append(out, child)
	}
	return out
}

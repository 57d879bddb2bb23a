package core

import "santasim/pkg/domain"

type (
	// RulesEngine aliases domain.RulesEngine.
	RulesEngine = domain.RulesEngine
	// Rule aliases domain.Rule.
	Rule = domain.Rule
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in store invariants.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	for _, rule := range defaultRules() {
		engine.Register(rule)
	}
	return engine
}

func defaultRules() []Rule {
	return []Rule{
		NewGiftPriceRule(),
		NewGiftCategoryRule(),
		NewChildAgeRule(),
		NewScoreHistoryRule(),
	}
}

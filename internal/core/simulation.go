package core

import (
	"context"
	"fmt"
	"santasim/pkg/domain"
)

// Input is everything a run consumes. The store is seeded from Children and
// Gifts before round 0; AnnualChanges drive rounds 1..N in order.
type Input struct {
	Budget        float64
	Children      []domain.Child
	Gifts         []domain.Gift
	AnnualChanges []domain.AnnualChange
}

// Simulator runs the yearly allocation loop against a population and catalog store.
// A Simulator is not safe for concurrent runs against the same store.
type Simulator struct {
	store    domain.PersistentStore
	bands    domain.AgeBands
	ordering domain.Ordering
	logger   Logger
	metrics  MetricsRecorder
	tracer   Tracer
	clock    Clock
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithAgeBands overrides the default age thresholds.
func WithAgeBands(bands domain.AgeBands) Option {
	return func(s *Simulator) { s.bands = bands }
}

// WithOrdering sets the snapshot ordering used when a round does not choose one.
func WithOrdering(o domain.Ordering) Option {
	return func(s *Simulator) {
		if o != "" {
			s.ordering = o
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(s *Simulator) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer sets the tracer used for per-round spans.
func WithTracer(t Tracer) Option {
	return func(s *Simulator) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the clock used for operation timings.
func WithClock(c Clock) Option {
	return func(s *Simulator) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewSimulator constructs a simulator bound to store.
func NewSimulator(store domain.PersistentStore, opts ...Option) *Simulator {
	s := &Simulator{
		store:    store,
		bands:    domain.DefaultAgeBands(),
		ordering: domain.OrderPopulation,
		logger:   noopLogger{},
		metrics:  noopMetricsRecorder{},
		tracer:   noopTracer{},
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run seeds the store from in, plays round 0 and then one round per annual
// change. It returns one snapshot per round, in round order. Any error aborts
// the whole run; the store then holds the state of the last completed step.
func (s *Simulator) Run(ctx context.Context, in Input) ([]domain.RoundSnapshot, error) {
	if err := s.bands.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBudget(in.Budget); err != nil {
		return nil, err
	}
	s.logger.Info("simulation starting",
		"children", len(in.Children),
		"gifts", len(in.Gifts),
		"years", len(in.AnnualChanges),
		"budget", in.Budget,
	)
	gifts := NewGiftRegistry()
	if err := s.observe(ctx, "seed", func(ctx context.Context) error { return s.seed(ctx, in, gifts) }); err != nil {
		return nil, fmt.Errorf("seed store: %w", err)
	}

	snapshots := make([]domain.RoundSnapshot, 0, len(in.AnnualChanges)+1)
	budget := in.Budget
	first, err := s.playRound(ctx, 0, budget, "", TransitionReport{})
	if err != nil {
		return nil, fmt.Errorf("round 0: %w", err)
	}
	snapshots = append(snapshots, first)

	for i, change := range in.AnnualChanges {
		round := i + 1
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		if change.NewBudget != nil {
			if err := ValidateBudget(*change.NewBudget); err != nil {
				return nil, fmt.Errorf("round %d: %w", round, err)
			}
			budget = *change.NewBudget
		}
		report, err := s.transition(ctx, round, change, gifts)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		snap, err := s.playRound(ctx, round, budget, change.Ordering, report)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		snapshots = append(snapshots, snap)
	}
	s.logger.Info("simulation finished", "rounds", len(snapshots))
	return snapshots, nil
}

// seed replaces the store contents with the initial population and catalog
// and claims the initial gift ids in gifts.
func (s *Simulator) seed(ctx context.Context, in Input, gifts *GiftRegistry) error {
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		view := tx.Snapshot()
		for _, c := range view.ListChildren() {
			if err := tx.DeleteChild(c.ID); err != nil {
				return err
			}
		}
		for _, g := range view.ListGifts() {
			if err := tx.DeleteGift(g.ID); err != nil {
				return err
			}
		}
		for _, c := range in.Children {
			if _, err := tx.CreateChild(c); err != nil {
				return err
			}
		}
		for _, g := range in.Gifts {
			created, err := tx.CreateGift(g)
			if err != nil {
				return err
			}
			gifts.Claim(created.ID)
		}
		return nil
	})
	s.logViolations(res)
	return err
}

func (s *Simulator) transition(ctx context.Context, round int, change domain.AnnualChange, gifts *GiftRegistry) (TransitionReport, error) {
	var report TransitionReport
	err := s.observe(ctx, "transition", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			var err error
			report, err = ApplyAnnualChange(tx, change, s.bands, gifts)
			return err
		})
		s.logViolations(res)
		return err
	})
	if err != nil {
		return TransitionReport{}, err
	}
	for _, id := range report.MissedUpdates {
		s.logger.Debug("update skipped for absent child", "round", round, "child", id)
	}
	s.logger.Info("year transition applied",
		"round", round,
		"removed", len(report.Removed),
		"admitted", len(report.Admitted),
		"rejected", len(report.Rejected),
		"updated", len(report.Updated),
		"new_gifts", report.NewGifts,
	)
	return report, nil
}

// playRound refreshes derived values, clears last round's gifts, computes budgets, allocates gifts and
// returns the round snapshot, all within one store transaction.
func (s *Simulator) playRound(ctx context.Context, round int, budget float64, ordering domain.Ordering, report TransitionReport) (domain.RoundSnapshot, error) {
	if ordering == "" {
		ordering = s.ordering
	}
	snap := domain.RoundSnapshot{Round: round, Budget: budget, Ordering: ordering}
	var (
		plan        BudgetPlan
		assignments Assignments
		catalogLeft int
	)
	err := s.observe(ctx, "round", func(ctx context.Context) error {
		res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
			children := make([]domain.Child, 0)
			for _, c := range tx.Snapshot().ListChildren() {
				refreshed, err := tx.UpdateChild(c.ID, func(c *domain.Child) error {
					c.Refresh(s.bands)
					c.ReceivedGifts = nil
					return nil
				})
				if err != nil {
					return err
				}
				children = append(children, refreshed)
			}
			var err error
			plan, err = ComputeBudgets(children, budget)
			if err != nil {
				return err
			}
			records := make([]domain.ChildRecord, len(children))
			for i, c := range children {
				records[i] = domain.NewChildRecord(c, plan.Budgets[c.ID])
			}
			assignments, err = AllocateGifts(tx, children, plan.Budgets)
			if err != nil {
				return err
			}
			for i := range records {
				if gifts := assignments[records[i].ID]; len(gifts) > 0 {
					records[i].ReceivedGifts = append(records[i].ReceivedGifts, gifts...)
				}
			}
			snap.Children = ordering.Apply(records)
			catalogLeft = len(tx.Snapshot().ListGifts())
			return nil
		})
		s.logViolations(res)
		return err
	})
	if err != nil {
		s.logger.Error("round aborted", "round", round, "error", err)
		return domain.RoundSnapshot{}, err
	}
	snap.BudgetUnit = plan.Unit

	stats := RoundStats{
		Round:            round,
		Population:       len(snap.Children),
		CatalogSize:      catalogLeft,
		GiftsAssigned:    assignments.Count(),
		ChildrenRemoved:  len(report.Removed),
		ChildrenAdmitted: len(report.Admitted),
		BudgetUnit:       plan.Unit,
	}
	if ro, ok := s.metrics.(RoundObserver); ok {
		ro.ObserveRound(ctx, stats)
	}
	s.logger.Info("round completed",
		"round", round,
		"population", stats.Population,
		"budget_unit", stats.BudgetUnit,
		"gifts_assigned", stats.GiftsAssigned,
		"catalog_left", stats.CatalogSize,
	)
	return snap, nil
}

func (s *Simulator) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	start := s.clock.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, operation, err == nil, s.clock.Now().Sub(start))
	span.End(err)
	return err
}

func (s *Simulator) logViolations(res domain.Result) {
	for _, v := range res.Violations {
		if v.Severity == domain.SeverityBlock {
			continue
		}
		s.logger.Warn("rule violation", "rule", v.Rule, "entity", v.Entity, "id", v.EntityID, "message", v.Message)
	}
}

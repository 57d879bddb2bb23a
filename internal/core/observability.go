package core

import (
	"context"
	"time"
)

// Logger is the structured logging surface used by the simulator. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsRecorder receives operation timings and outcomes.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// RoundObserver is implemented by recorders that also track per-round
// population and catalog figures.
type RoundObserver interface {
	ObserveRound(ctx context.Context, stats RoundStats)
}

// Tracer starts spans around simulator operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation's error, if any.
type TraceSpan interface {
	End(err error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RoundStats summarises one completed round.
type RoundStats struct {
	Round            int
	Population       int
	CatalogSize      int
	GiftsAssigned    int
	ChildrenRemoved  int
	ChildrenAdmitted int
	BudgetUnit       float64
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

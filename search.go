package qturing

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/theapemachine/errnie"
)

// Outcome classifies a single search attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeEmpty    Outcome = "empty"
	OutcomeError    Outcome = "error"
)

/*
Attempt is one reset-run-measure cycle at a fixed step budget. Records is
the register snapshot taken after the run, empty when the run failed.
*/
type Attempt struct {
	Budget            int
	Outcome           Outcome
	Measured          Configuration
	Records           []Record
	AcceptProbability float64
	Err               error
	Duration          time.Duration
}

// SearchResult collects every attempt of one adaptive search.
type SearchResult struct {
	ID         uuid.UUID
	Tapes      []string
	Attempts   []Attempt
	Found      bool
	Steps      int
	Final      Configuration
	FinalErr   error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Observer is told about every finished attempt.
type Observer func(Attempt)

/*
Searcher runs a machine with growing step budgets until some configuration
reaches an accept state or the budget limit is passed. A failing budget is
recorded and the search moves on; it never aborts the whole search.
*/
type Searcher struct {
	config   *Config
	strategy BudgetStrategy
	runOpts  []RunOption
	metrics  *Metrics
	observer Observer
}

// SearchOption configures NewSearcher.
type SearchOption func(*Searcher)

// WithSearchConfig sets StartSteps and StepLimit.
func WithSearchConfig(config *Config) SearchOption {
	return func(s *Searcher) {
		if config != nil {
			s.config = config
		}
	}
}

// WithStrategy replaces the default linear budget schedule.
func WithStrategy(strategy BudgetStrategy) SearchOption {
	return func(s *Searcher) {
		s.strategy = strategy
	}
}

// WithRunOptions passes options to every Machine.Run.
func WithRunOptions(opts ...RunOption) SearchOption {
	return func(s *Searcher) {
		s.runOpts = append(s.runOpts, opts...)
	}
}

// WithMetrics records every attempt.
func WithMetrics(metrics *Metrics) SearchOption {
	return func(s *Searcher) {
		s.metrics = metrics
	}
}

// WithObserver registers a progress callback.
func WithObserver(observer Observer) SearchOption {
	return func(s *Searcher) {
		s.observer = observer
	}
}

func NewSearcher(opts ...SearchOption) *Searcher {
	s := &Searcher{
		config: NewConfig(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.strategy == nil {
		s.strategy = &LinearBudget{Start: s.config.StartSteps, Increment: 1}
	}

	return s
}

/*
Run drives the search and appends one snapshot per attempted budget to log,
which is returned grown. Budgets always increase; a strategy that repeats or
shrinks is bumped to the previous budget plus one.

After the loop the current register is measured once more and the outcome
stored in Final or FinalErr. The only error returned is the context's, when
it is cancelled between budgets; the partial result and log come with it.
*/
func (s *Searcher) Run(ctx context.Context, m *Machine, log Log) (*SearchResult, Log, error) {
	result := &SearchResult{
		ID:        uuid.New(),
		Tapes:     m.Tapes(),
		StartedAt: time.Now(),
	}

	errnie.Info("Search - run %s, tapes %v, limit %d", result.ID, result.Tapes, s.config.StepLimit)

	previous := 0
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			result.FinishedAt = time.Now()
			return result, log, err
		}

		budget := s.strategy.Budget(attempt)
		if attempt > 0 && budget <= previous {
			budget = previous + 1
		}

		if budget > s.config.StepLimit {
			break
		}

		previous = budget

		outcome := s.attempt(m, budget)
		result.Attempts = append(result.Attempts, outcome)
		log = append(log, outcome.Records)

		if s.observer != nil {
			s.observer(outcome)
		}

		if outcome.Outcome == OutcomeAccepted {
			result.Found = true
			result.Steps = budget
			break
		}
	}

	if !result.Found {
		errnie.Info("Search - no accept state within %d steps", s.config.StepLimit)
	}

	result.Final, result.FinalErr = m.Measure()
	result.FinishedAt = time.Now()

	return result, log, nil
}

func (s *Searcher) attempt(m *Machine, budget int) Attempt {
	startTime := time.Now()

	m.Reset()
	measured, err := m.Run(budget, s.runOpts...)

	outcome := Attempt{
		Budget:            budget,
		Measured:          measured,
		Err:               err,
		AcceptProbability: m.AcceptProbability(),
	}

	switch {
	case errors.Is(err, ErrEmptyRegister):
		outcome.Outcome = OutcomeEmpty
		outcome.Records = []Record{}
	case err != nil:
		outcome.Outcome = OutcomeError
		outcome.Records = []Record{}
	case m.Accepted():
		outcome.Outcome = OutcomeAccepted
		outcome.Records = Snapshot(m.Register(), budget)
	default:
		outcome.Outcome = OutcomeRejected
		outcome.Records = Snapshot(m.Register(), budget)
	}

	outcome.Duration = time.Since(startTime)

	if s.metrics != nil {
		s.metrics.recordAttempt(startTime, outcome, m.Register().Len())
	}

	errnie.Info(
		"Search - budget %d: %s, configurations %d, accept probability %.4f",
		budget,
		outcome.Outcome,
		m.Register().Len(),
		outcome.AcceptProbability,
	)

	return outcome
}

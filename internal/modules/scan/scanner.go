package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/metrics"
	"github.com/aristath/spreadscan/internal/modules/contracts"
	"github.com/aristath/spreadscan/internal/modules/legs"
	"github.com/aristath/spreadscan/internal/modules/spreads"
)

// DataSource supplies date-ordered settlement rows for every contract of a root symbol.
type DataSource interface {
	GetRows(ctx context.Context, contract string, start, end time.Time) ([]domain.PriceRow, error)
}

// FrontMonthSource is implemented by sources that can supply the reference front-month
// series directly. Without it the series is derived from the loaded contracts.
type FrontMonthSource interface {
	GetFrontMonth(ctx context.Context, contract string, start, end time.Time) ([]domain.FrontMonthRow, error)
}

// Match is one passing combination.
type Match struct {
	Spec        legs.Match         `json:"spec"`
	AggregateID string             `json:"aggregate_id"`
	Set         *spreads.SpreadSet `json:"-"`
}

// Result is the outcome of one scan run. Matches are in discovery order.
type Result struct {
	RunID        string        `json:"run_id"`
	Name         string        `json:"name"`
	Contract     string        `json:"contract"`
	Type         domain.Mode   `json:"type"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Combinations int           `json:"combinations"`
	Matches      []Match       `json:"matches"`
	StartedAt    time.Time     `json:"started_at"`
	Duration     time.Duration `json:"duration"`
	Err          error         `json:"-"`
}

// Find returns the match with the given aggregate id.
func (r *Result) Find(aggregateID string) (Match, bool) {
	for _, m := range r.Matches {
		if m.AggregateID == aggregateID {
			return m, true
		}
	}
	return Match{}, false
}

// MatchFunc is called for every match as it is found. Returning an error stops the scan.
type MatchFunc func(Match) error

// Scanner executes scan definitions against a data source.
type Scanner struct {
	source  DataSource
	metrics *metrics.ScanMetrics
	now     func() time.Time
	log     zerolog.Logger
}

// NewScanner creates a scanner. m may be nil.
func NewScanner(source DataSource, m *metrics.ScanMetrics, log zerolog.Logger) *Scanner {
	return &Scanner{
		source:  source,
		metrics: m,
		now:     time.Now,
		log:     log.With().Str("component", "scanner").Logger(),
	}
}

// SetClock replaces the clock used to decide liveness.
func (s *Scanner) SetClock(now func() time.Time) {
	s.now = now
}

// Execute runs a scan to completion.
func (s *Scanner) Execute(ctx context.Context, def Definition) (*Result, error) {
	return s.Stream(ctx, def, nil)
}

// Stream runs a scan, calling onMatch for each match as soon as it is found.
func (s *Scanner) Stream(ctx context.Context, def Definition, onMatch MatchFunc) (*Result, error) {
	plan, err := def.Compile()
	if err != nil {
		s.metrics.ScanFailed(def.Name)
		return nil, err
	}

	result, err := s.run(ctx, plan, onMatch)
	if err != nil {
		s.metrics.ScanFailed(def.Name)
		return nil, err
	}
	return result, nil
}

func (s *Scanner) run(ctx context.Context, plan *Plan, onMatch MatchFunc) (*Result, error) {
	def := plan.Definition
	started := s.now()
	log := s.log.With().Str("scan", def.Name).Str("contract", def.Contract).Logger()

	rows, err := s.source.GetRows(ctx, def.Contract, plan.Start, plan.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load rows for %s: %w", def.Contract, err)
	}

	registry, skipped := contracts.Build(def.Contract, rows, plan.Start, plan.End)
	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Msg("Skipped malformed price rows")
	}

	front, err := s.frontMonth(ctx, plan, registry)
	if err != nil {
		return nil, err
	}

	builder, err := spreads.NewBuilder(registry, plan.Mode)
	if err != nil {
		return nil, fmt.Errorf("failed to create spread builder: %w", err)
	}

	it, err := legs.New(plan.Mode, def.Legs)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Name:      def.Name,
		Contract:  def.Contract,
		Type:      plan.Mode,
		Start:     plan.Start,
		End:       plan.End,
		StartedAt: started,
		Matches:   []Match{},
	}

	today := s.now()
	seen := make(map[string]bool)

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("scan %s cancelled: %w", def.Name, err)
		}

		m, ok := it.Next()
		if !ok {
			break
		}
		result.Combinations++

		set := builder.SpreadSet(m)
		set.Organize(today)

		outcome := s.evaluate(plan, set, seen, front)
		s.metrics.Combination(def.Name, outcome)
		if outcome != metrics.OutcomeMatched {
			log.Debug().Str("combination", m.String()).Str("outcome", outcome).Msg("Combination skipped")
			continue
		}

		match := Match{Spec: m, AggregateID: set.AggregateID(), Set: set}
		result.Matches = append(result.Matches, match)

		if onMatch != nil {
			if err := onMatch(match); err != nil {
				return nil, fmt.Errorf("failed to deliver match %s: %w", match.AggregateID, err)
			}
		}

		if def.ResultLimit > 0 && len(result.Matches) >= def.ResultLimit {
			break
		}
	}

	result.Duration = s.now().Sub(started)
	s.metrics.ScanFinished(def.Name, result.Duration, len(result.Matches))

	log.Info().
		Str("run_id", result.RunID).
		Int("contracts", registry.Len()).
		Int("combinations", result.Combinations).
		Int("matches", len(result.Matches)).
		Dur("duration", result.Duration).
		Msg("Scan complete")

	return result, nil
}

// evaluate classifies one organized set. An aggregate id is only marked seen once its
// set is non-empty and live, so the first live instance of a pattern wins.
func (s *Scanner) evaluate(plan *Plan, set *spreads.SpreadSet, seen map[string]bool, front []domain.FrontMonthRow) string {
	if set.Empty() {
		return metrics.OutcomeEmpty
	}
	if !set.Live() {
		return metrics.OutcomeStale
	}
	if seen[set.AggregateID()] {
		return metrics.OutcomeDuplicate
	}
	seen[set.AggregateID()] = true

	set.AddStats(plan.Stats, front)
	if !PassesAll(plan.Filters, set) {
		return metrics.OutcomeFiltered
	}
	return metrics.OutcomeMatched
}

// frontMonth loads the reference series only when a filter needs it.
func (s *Scanner) frontMonth(ctx context.Context, plan *Plan, registry *contracts.Registry) ([]domain.FrontMonthRow, error) {
	needed := false
	for _, st := range plan.Stats {
		if st == spreads.StatBeta || st == spreads.StatR2 {
			needed = true
		}
	}
	if !needed {
		return nil, nil
	}

	if src, ok := s.source.(FrontMonthSource); ok {
		front, err := src.GetFrontMonth(ctx, plan.Definition.Contract, plan.Start, plan.End)
		if err != nil {
			return nil, fmt.Errorf("failed to load front month for %s: %w", plan.Definition.Contract, err)
		}
		return front, nil
	}

	return registry.FrontMonth(), nil
}

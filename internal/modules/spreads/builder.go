// Package spreads builds date-aligned spread series from bound legs and collects them into
// spread sets carrying rolling and summary statistics.
package spreads

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/contracts"
	"github.com/aristath/spreadscan/internal/modules/legs"
)

// BoundLeg is a leg bound to a concrete contract.
type BoundLeg struct {
	Contract *contracts.Contract
	Side     domain.Side
}

// PlotID identifies a concrete binding, e.g. "+F21 -G21".
func PlotID(bound []BoundLeg) string {
	parts := make([]string, len(bound))
	for i, b := range bound {
		parts[i] = b.Side.String() + b.Contract.ID
	}
	return strings.Join(parts, " ")
}

// AggregateID identifies the leg pattern of a match independent of its concrete binding.
// Calendar year offsets are shifted so the earliest leg sits at year 0: "+F1 -G2" and
// "+F0 -G1" bind to the same contracts across reference years and share "+F0 -G1".
func AggregateID(m legs.Match) string {
	if m.Mode != domain.ModeCalendar || len(m.Legs) == 0 {
		return m.String()
	}

	base := m.Legs[0].Year
	for _, l := range m.Legs[1:] {
		base = min(base, l.Year)
	}

	shifted := legs.Match{Mode: m.Mode, Legs: make([]legs.LegValue, len(m.Legs))}
	for i, l := range m.Legs {
		l.Year -= base
		shifted.Legs[i] = l
	}
	return shifted.String()
}

type accumulator struct {
	settle     float64
	count      int
	daysListed int
	plot       []string
}

// BuildCalendar aggregates the signed settlements of every bound leg per date. Only dates
// on which every leg settled are kept; rows are date ordered and the first has no change.
func BuildCalendar(aggregateID string, bound []BoundLeg) []domain.SpreadRow {
	if len(bound) == 0 {
		return nil
	}

	byDate := make(map[time.Time]*accumulator)
	for _, b := range bound {
		sign := b.Side.Sign()
		for _, row := range b.Contract.Rows {
			acc, ok := byDate[row.Date]
			if !ok {
				acc = &accumulator{daysListed: row.DaysListed}
				byDate[row.Date] = acc
			}
			acc.settle += sign * row.Settle
			acc.count++
			acc.daysListed = min(acc.daysListed, row.DaysListed)
		}
	}

	plotID := PlotID(bound)
	rows := make([]domain.SpreadRow, 0, len(byDate))
	for date, acc := range byDate {
		if acc.count != len(bound) {
			continue
		}
		rows = append(rows, domain.SpreadRow{
			Date:        date,
			AggregateID: aggregateID,
			PlotID:      plotID,
			Settle:      acc.settle,
			DaysListed:  acc.daysListed,
		})
	}

	return finalize(rows)
}

// BuildTerms aggregates a sequence-mode match over the term structure: on each date the
// legs bind to whichever contracts occupy their ranks, so the plot id follows the roll.
func BuildTerms(aggregateID string, terms *contracts.TermStructure, m legs.Match) []domain.SpreadRow {
	if len(m.Legs) == 0 {
		return nil
	}

	rows := make([]domain.SpreadRow, 0, len(terms.Days))
	for _, day := range terms.Days {
		acc := accumulator{plot: make([]string, 0, len(m.Legs))}
		for i, l := range m.Legs {
			entry, ok := day.At(l.Term)
			if !ok {
				break
			}
			if i == 0 {
				acc.daysListed = entry.Row.DaysListed
			}
			acc.settle += l.Side.Sign() * entry.Row.Settle
			acc.count++
			acc.daysListed = min(acc.daysListed, entry.Row.DaysListed)
			acc.plot = append(acc.plot, l.Side.String()+entry.Contract.ID)
		}
		if acc.count != len(m.Legs) {
			continue
		}

		rows = append(rows, domain.SpreadRow{
			Date:        day.Date,
			AggregateID: aggregateID,
			PlotID:      strings.Join(acc.plot, " "),
			Settle:      acc.settle,
			DaysListed:  acc.daysListed,
		})
	}

	return finalize(rows)
}

func finalize(rows []domain.SpreadRow) []domain.SpreadRow {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
	for i := 1; i < len(rows); i++ {
		change := rows[i].Settle - rows[i-1].Settle
		rows[i].Change = &change
	}
	return rows
}

// Builder binds matches against a contract registry and assembles their spread sets.
type Builder struct {
	registry *contracts.Registry
	mode     domain.Mode
}

// NewBuilder creates a builder for the given mode.
func NewBuilder(registry *contracts.Registry, mode domain.Mode) (*Builder, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unknown spread mode %q", mode)
	}
	return &Builder{registry: registry, mode: mode}, nil
}

// SpreadSet builds every concrete spread for a match. In calendar mode the match is bound
// once per reference year; years where any leg has no listed contract are skipped.
// The returned set is empty when nothing could be bound.
func (b *Builder) SpreadSet(m legs.Match) *SpreadSet {
	aggregateID := AggregateID(m)
	set := NewSpreadSet(aggregateID, m)

	if b.mode == domain.ModeSequence {
		set.Add(BuildTerms(aggregateID, b.registry.Terms(), m))
		return set
	}

	for _, year := range b.registry.Years() {
		bound, ok := b.bind(m, year)
		if !ok {
			continue
		}
		set.Add(BuildCalendar(aggregateID, bound))
	}

	return set
}

func (b *Builder) bind(m legs.Match, baseYear int) ([]BoundLeg, bool) {
	bound := make([]BoundLeg, len(m.Legs))
	for i, l := range m.Legs {
		c, ok := b.registry.Bind(l.Month, l.Year, baseYear)
		if !ok {
			return nil, false
		}
		bound[i] = BoundLeg{Contract: c, Side: l.Side}
	}
	return bound, true
}

package spreads

import (
	"sort"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/legs"
)

const (
	// LiveWindowDays is the maximum age in days of a set's latest row for the set to be tradeable
	LiveWindowDays = 5
	// MAPeriods is the trailing window used by every rolling statistic
	MAPeriods = 30
)

// Row is a spread row plus the derived per-row statistics. Nil means not computed
// or not enough history.
type Row struct {
	domain.SpreadRow
	Vol   *float64 `json:"vol,omitempty"`
	Beta  *float64 `json:"beta,omitempty"`
	R2    *float64 `json:"r_2,omitempty"`
	MTick *float64 `json:"m_tick,omitempty"`
}

// Value returns the row's value for a statistic.
func (r *Row) Value(name StatName) (float64, bool) {
	var v *float64
	switch name {
	case StatSettle:
		return r.Settle, true
	case StatVol:
		v = r.Vol
	case StatBeta:
		v = r.Beta
	case StatR2:
		v = r.R2
	case StatMTick:
		v = r.MTick
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

func (r *Row) set(name StatName, v float64) {
	switch name {
	case StatVol:
		r.Vol = &v
	case StatBeta:
		r.Beta = &v
	case StatR2:
		r.R2 = &v
	case StatMTick:
		r.MTick = &v
	}
}

// SpreadSet collects every concrete spread sharing an aggregate identity.
//
// Lifecycle: created empty, populated through Add, finalized once with Organize,
// then optionally enriched with AddStats.
type SpreadSet struct {
	aggregateID string
	match       legs.Match
	rows        []Row
	spreads     int
	organized   bool
	live        bool
	latest      int
	stats       map[StatName]*Stat
}

// NewSpreadSet creates an empty set.
func NewSpreadSet(aggregateID string, match legs.Match) *SpreadSet {
	return &SpreadSet{
		aggregateID: aggregateID,
		match:       match,
		latest:      -1,
		stats:       make(map[StatName]*Stat),
	}
}

// Add appends one spread's rows. Empty spreads are ignored.
func (s *SpreadSet) Add(rows []domain.SpreadRow) {
	if len(rows) == 0 {
		return
	}
	for _, r := range rows {
		s.rows = append(s.rows, Row{SpreadRow: r})
	}
	s.spreads++
	s.organized = false
}

// Organize sorts rows by date and decides liveness against today: the set is live when
// its most recent row is less than LiveWindowDays days old.
func (s *SpreadSet) Organize(today time.Time) {
	sort.SliceStable(s.rows, func(i, j int) bool {
		if !s.rows[i].Date.Equal(s.rows[j].Date) {
			return s.rows[i].Date.Before(s.rows[j].Date)
		}
		return s.rows[i].PlotID < s.rows[j].PlotID
	})

	s.organized = true
	s.live = false
	s.latest = -1

	if len(s.rows) == 0 {
		return
	}

	last := len(s.rows) - 1
	age := daysBetween(s.rows[last].Date, today)
	if age < LiveWindowDays {
		s.live = true
		s.latest = last
	}
}

func daysBetween(from, to time.Time) int {
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// AggregateID returns the identity shared by every spread in the set.
func (s *SpreadSet) AggregateID() string {
	return s.aggregateID
}

// Match returns the leg combination the set was built from.
func (s *SpreadSet) Match() legs.Match {
	return s.match
}

// Len returns the number of concrete spreads added.
func (s *SpreadSet) Len() int {
	return s.spreads
}

// Empty reports whether the set holds no rows.
func (s *SpreadSet) Empty() bool {
	return len(s.rows) == 0
}

// Organized reports whether Organize ran since the last Add.
func (s *SpreadSet) Organized() bool {
	return s.organized
}

// Live reports whether the set is tradeable. Only meaningful after Organize.
func (s *SpreadSet) Live() bool {
	return s.live
}

// Rows returns every row, date ordered after Organize.
func (s *SpreadSet) Rows() []Row {
	return s.rows
}

// Latest returns the chronologically last row of a live set.
func (s *SpreadSet) Latest() (*Row, bool) {
	if s.latest < 0 {
		return nil, false
	}
	return &s.rows[s.latest], true
}

// PlotIDs returns the distinct concrete bindings in first-seen order.
func (s *SpreadSet) PlotIDs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.rows {
		if !seen[r.PlotID] {
			seen[r.PlotID] = true
			out = append(out, r.PlotID)
		}
	}
	return out
}

package legs

import (
	"fmt"
	"strings"

	"github.com/aristath/spreadscan/internal/domain"
)

// LegValue is the bound value of one leg in an emitted combination.
// Month and Year are set in calendar mode, Term in sequence mode.
type LegValue struct {
	Month int         `json:"month"`
	Year  int         `json:"year"`
	Term  int         `json:"term"`
	Side  domain.Side `json:"side"`
}

// Match is one combination of leg values, ordered by leg position.
type Match struct {
	Mode domain.Mode `json:"mode"`
	Legs []LegValue  `json:"legs"`
}

// String renders the match as signed leg values, e.g. "+F0 -G0" or "+T15 -T32".
func (m Match) String() string {
	parts := make([]string, len(m.Legs))
	for i, l := range m.Legs {
		if m.Mode == domain.ModeSequence {
			parts[i] = fmt.Sprintf("%sT%d", l.Side, l.Term)
			continue
		}
		code, _ := domain.MonthCode(l.Month)
		parts[i] = fmt.Sprintf("%s%s%d", l.Side, code, l.Year)
	}
	return strings.Join(parts, " ")
}

// axis is one coordinate of a leg with its initializer, bound range and current value.
type axis struct {
	lower   Bound
	upper   Bound
	domain  Domain
	lo      int
	hi      int
	current int
}

// bind recomputes the range from the previous leg's current value and resets the
// current value to the lower bound. The bind fails when either bound falls outside
// the domain or the range is empty.
func (a *axis) bind(prev int) bool {
	a.lo = a.lower.Resolve(prev)
	a.hi = a.upper.Resolve(prev)
	a.current = a.lo

	return a.lo >= a.domain.Min && a.hi <= a.domain.Max && a.lo <= a.hi
}

// leg holds the per-leg iterator state. Axes are ordered fastest-moving first.
type leg struct {
	axes []axis
	side domain.Side
}

func (l *leg) bind(prev *leg) bool {
	ok := true
	for k := range l.axes {
		if !l.axes[k].bind(prev.axes[k].current) {
			ok = false
		}
	}
	return ok
}

// increment advances the leg like an odometer: the fastest axis moves first and
// resets when a slower axis carries.
func (l *leg) increment() bool {
	for k := range l.axes {
		a := &l.axes[k]
		if a.current < a.hi {
			a.current++
			for j := 0; j < k; j++ {
				l.axes[j].current = l.axes[j].lo
			}
			return true
		}
	}
	return false
}

type state int

const (
	stateReady state = iota
	stateExhausted
)

// Iterator lazily enumerates every valid leg combination in deterministic
// lexicographic order. It is not safe for concurrent use.
type Iterator struct {
	mode  domain.Mode
	zero  leg
	legs  []leg
	state state
}

// NewCalendarIterator builds an iterator over calendar legs (month fastest, then year offset).
func NewCalendarIterator(specs []CalendarLeg) (*Iterator, error) {
	legs := make([]leg, len(specs))
	for i, s := range specs {
		legs[i] = leg{
			axes: []axis{
				{lower: s.MonthInit, upper: s.MonthBound, domain: MonthDomain},
				{lower: s.YearInit, upper: s.YearBound, domain: YearDomain},
			},
			side: s.Side,
		}
	}
	return newIterator(domain.ModeCalendar, legs, 2)
}

// NewTermIterator builds an iterator over term-rank legs.
func NewTermIterator(specs []TermLeg) (*Iterator, error) {
	legs := make([]leg, len(specs))
	for i, s := range specs {
		legs[i] = leg{
			axes: []axis{{lower: s.Init, upper: s.Bound, domain: TermDomain}},
			side: s.Side,
		}
	}
	return newIterator(domain.ModeSequence, legs, 1)
}

// New parses a raw leg specification for the given mode and builds its iterator.
func New(mode domain.Mode, spec [][]string) (*Iterator, error) {
	switch mode {
	case domain.ModeCalendar:
		legs, err := ParseCalendarLegs(spec)
		if err != nil {
			return nil, err
		}
		return NewCalendarIterator(legs)
	case domain.ModeSequence:
		legs, err := ParseTermLegs(spec)
		if err != nil {
			return nil, err
		}
		return NewTermIterator(legs)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidSpecification, mode)
}

func newIterator(mode domain.Mode, legs []leg, axes int) (*Iterator, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: no legs", ErrInvalidSpecification)
	}

	it := &Iterator{
		mode: mode,
		zero: leg{axes: make([]axis, axes)},
		legs: legs,
	}

	for i := range it.legs {
		if !it.bind(i) {
			return nil, fmt.Errorf("%w: leg %d binds outside its domain", ErrInvalidSpecification, i+1)
		}
	}

	return it, nil
}

func (it *Iterator) bind(i int) bool {
	prev := &it.zero
	if i > 0 {
		prev = &it.legs[i-1]
	}
	return it.legs[i].bind(prev)
}

// Next returns the current combination and advances. The second result is false
// once every combination has been returned.
func (it *Iterator) Next() (Match, bool) {
	if it.state == stateExhausted {
		return Match{}, false
	}

	m := it.snapshot()
	it.advance()

	return m, true
}

// Exhausted reports whether the enumeration has finished.
func (it *Iterator) Exhausted() bool {
	return it.state == stateExhausted
}

// advance moves to the next valid combination. The rightmost leg that can increment
// becomes the pivot; every leg to its right is re-bound left to right. A failed
// re-bind exhausts that leg immediately and the search backtracks to its predecessor.
func (it *Iterator) advance() {
	i := len(it.legs) - 1
	for i >= 0 {
		if !it.legs[i].increment() {
			i--
			continue
		}

		j := i + 1
		for j < len(it.legs) && it.bind(j) {
			j++
		}
		if j == len(it.legs) {
			return
		}
		i = j - 1
	}

	it.state = stateExhausted
}

func (it *Iterator) snapshot() Match {
	m := Match{Mode: it.mode, Legs: make([]LegValue, len(it.legs))}
	for i, l := range it.legs {
		v := LegValue{Side: l.side}
		if it.mode == domain.ModeSequence {
			v.Term = l.axes[0].current
		} else {
			v.Month = l.axes[0].current
			v.Year = l.axes[1].current
		}
		m.Legs[i] = v
	}
	return m
}

// Collect drains the iterator into a slice.
func Collect(it *Iterator) []Match {
	var out []Match
	for {
		m, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, m)
	}
}

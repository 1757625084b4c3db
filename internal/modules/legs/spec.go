// Package legs enumerates candidate spread leg combinations.
//
// A combination request is an ordered list of leg specifications. Each leg ranges over one or
// more axes (month and year offset in calendar mode, term rank in sequence mode). Range bounds
// are either absolute domain values or "+N" offsets from the preceding leg's current value, so
// legs must be re-bound left to right whenever an earlier leg moves.
package legs

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/spreadscan/internal/domain"
)

// ErrInvalidSpecification is returned when a leg specification cannot be parsed or its
// initial binding falls outside the domain.
var ErrInvalidSpecification = errors.New("invalid leg specification")

// Domain is the inclusive value domain of one axis.
type Domain struct {
	Min int
	Max int
}

var (
	// MonthDomain covers delivery month codes F..Z
	MonthDomain = Domain{Min: 0, Max: 11}
	// YearDomain covers year offsets; the maximum number of years listed at one time
	YearDomain = Domain{Min: 0, Max: 9}
	// TermDomain covers term ranks; the longest curves list 120 contracts
	TermDomain = Domain{Min: 0, Max: 119}
)

// Bound is one end of a leg range: an absolute value or an offset from the previous leg.
type Bound struct {
	Value    int
	Relative bool
}

// Resolve binds the bound against the previous leg's current value.
func (b Bound) Resolve(prev int) int {
	if b.Relative {
		return prev + b.Value
	}
	return b.Value
}

func (b Bound) String() string {
	if b.Relative {
		return "+" + strconv.Itoa(b.Value)
	}
	return strconv.Itoa(b.Value)
}

// CalendarLeg is a calendar-mode leg: month and year-offset ranges plus a side.
type CalendarLeg struct {
	MonthInit  Bound
	MonthBound Bound
	YearInit   Bound
	YearBound  Bound
	Side       domain.Side
}

// TermLeg is a sequence-mode leg: a term-rank range plus a side.
type TermLeg struct {
	Init  Bound
	Bound Bound
	Side  domain.Side
}

// ParseCalendarLegs parses legs of the form [month_init, month_bound, year_init, year_bound, side],
// e.g. ["F", "Z", "0", "1", "A"] or ["+1", "Z", "+0", "+1", "B"].
func ParseCalendarLegs(spec [][]string) ([]CalendarLeg, error) {
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: no legs", ErrInvalidSpecification)
	}

	legs := make([]CalendarLeg, 0, len(spec))
	for i, fields := range spec {
		if len(fields) != 5 {
			return nil, fmt.Errorf("%w: leg %d has %d fields, want 5", ErrInvalidSpecification, i+1, len(fields))
		}

		var (
			leg CalendarLeg
			err error
		)
		if leg.MonthInit, err = parseBound(fields[0], parseMonth); err != nil {
			return nil, fmt.Errorf("%w: leg %d month init: %v", ErrInvalidSpecification, i+1, err)
		}
		if leg.MonthBound, err = parseBound(fields[1], parseMonth); err != nil {
			return nil, fmt.Errorf("%w: leg %d month bound: %v", ErrInvalidSpecification, i+1, err)
		}
		if leg.YearInit, err = parseBound(fields[2], strconv.Atoi); err != nil {
			return nil, fmt.Errorf("%w: leg %d year init: %v", ErrInvalidSpecification, i+1, err)
		}
		if leg.YearBound, err = parseBound(fields[3], strconv.Atoi); err != nil {
			return nil, fmt.Errorf("%w: leg %d year bound: %v", ErrInvalidSpecification, i+1, err)
		}
		if leg.Side, err = domain.ParseSide(fields[4]); err != nil {
			return nil, fmt.Errorf("%w: leg %d: %v", ErrInvalidSpecification, i+1, err)
		}

		legs = append(legs, leg)
	}

	return legs, nil
}

// ParseTermLegs parses legs of the form [term_init, term_bound, side], e.g. ["0", "119", "A"].
func ParseTermLegs(spec [][]string) ([]TermLeg, error) {
	if len(spec) == 0 {
		return nil, fmt.Errorf("%w: no legs", ErrInvalidSpecification)
	}

	legs := make([]TermLeg, 0, len(spec))
	for i, fields := range spec {
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: leg %d has %d fields, want 3", ErrInvalidSpecification, i+1, len(fields))
		}

		var (
			leg TermLeg
			err error
		)
		if leg.Init, err = parseBound(fields[0], strconv.Atoi); err != nil {
			return nil, fmt.Errorf("%w: leg %d term init: %v", ErrInvalidSpecification, i+1, err)
		}
		if leg.Bound, err = parseBound(fields[1], strconv.Atoi); err != nil {
			return nil, fmt.Errorf("%w: leg %d term bound: %v", ErrInvalidSpecification, i+1, err)
		}
		if leg.Side, err = domain.ParseSide(fields[2]); err != nil {
			return nil, fmt.Errorf("%w: leg %d: %v", ErrInvalidSpecification, i+1, err)
		}

		legs = append(legs, leg)
	}

	return legs, nil
}

// ParseLegText splits the compact one-leg-per-line form ("Q,Z,0,1,A") into fields.
// Blank lines are ignored.
func ParseLegText(text string) [][]string {
	var spec [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		spec = append(spec, fields)
	}
	return spec
}

func parseBound(s string, absolute func(string) (int, error)) (Bound, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 0 {
			return Bound{}, fmt.Errorf("bad offset %q", s)
		}
		return Bound{Value: n, Relative: true}, nil
	}

	v, err := absolute(s)
	if err != nil {
		return Bound{}, err
	}
	return Bound{Value: v}, nil
}

func parseMonth(s string) (int, error) {
	if m, ok := domain.MonthIndex(s); ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown month code %q", s)
}

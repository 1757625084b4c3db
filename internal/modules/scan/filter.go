package scan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aristath/spreadscan/internal/modules/spreads"
)

// FilterMode selects how a filter compares the latest value to its ranges.
type FilterMode string

const (
	// ModeAbsolute compares the raw latest value
	ModeAbsolute FilterMode = "absolute"
	// ModeStdev compares the latest value to mean + k*stdev of the set's distribution
	ModeStdev FilterMode = "stdev"
)

// ParseFilterMode accepts the full mode names and the abs/std short forms.
func ParseFilterMode(s string) (FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "absolute", "abs":
		return ModeAbsolute, nil
	case "stdev", "std":
		return ModeStdev, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Range is an inclusive interval.
type Range struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether v lies in [Lo, Hi].
func (r Range) Contains(v float64) bool {
	return v >= r.Lo && v <= r.Hi
}

// Filter is a compiled filter. It passes when the latest value falls in any range.
type Filter struct {
	Stat   spreads.StatName `json:"stat"`
	Mode   FilterMode       `json:"mode"`
	Ranges []Range          `json:"ranges"`
}

// Compile validates a filter definition.
func (fd FilterDef) Compile() (Filter, error) {
	stat, err := spreads.ParseStat(fd.Type)
	if err != nil {
		return Filter{}, fmt.Errorf("%w: %q", ErrUnknownStat, fd.Type)
	}

	mode, err := ParseFilterMode(fd.Mode)
	if err != nil {
		return Filter{}, err
	}

	if len(fd.Range) == 0 {
		return Filter{}, fmt.Errorf("%w: filter on %s has no ranges", ErrInvalidDefinition, stat)
	}

	f := Filter{Stat: stat, Mode: mode}
	for _, pair := range fd.Range {
		if len(pair) != 2 {
			return Filter{}, fmt.Errorf("%w: range %v is not a [lo, hi] pair", ErrInvalidDefinition, pair)
		}
		if pair[0] > pair[1] {
			return Filter{}, fmt.Errorf("%w: range [%g, %g] is inverted", ErrInvalidDefinition, pair[0], pair[1])
		}
		f.Ranges = append(f.Ranges, Range{Lo: pair[0], Hi: pair[1]})
	}

	return f, nil
}

// Passes evaluates the filter against the latest row of an organized set.
// A set that is not live, or whose latest row lacks the statistic, fails.
func (f Filter) Passes(set *spreads.SpreadSet) bool {
	latest, ok := set.Latest()
	if !ok {
		return false
	}

	v, ok := latest.Value(f.Stat)
	if !ok {
		return false
	}

	switch f.Mode {
	case ModeAbsolute:
		return f.contains(v)
	case ModeStdev:
		st, ok := set.Stat(f.Stat)
		if !ok || st.Count == 0 {
			return false
		}
		for _, r := range f.Ranges {
			lo := st.Mean + r.Lo*st.StdDev
			hi := st.Mean + r.Hi*st.StdDev
			if v >= lo && v <= hi {
				return true
			}
		}
	}

	return false
}

func (f Filter) contains(v float64) bool {
	for _, r := range f.Ranges {
		if r.Contains(v) {
			return true
		}
	}
	return false
}

// PassesAll reports whether every filter passes. No filters means every live set passes.
func PassesAll(filters []Filter, set *spreads.SpreadSet) bool {
	for _, f := range filters {
		if !f.Passes(set) {
			return false
		}
	}
	return true
}

// ParseFilterText parses the compact form "stat:mode=lo,hi;lo,hi", e.g. "vol:std=-2,-1;1,2".
func ParseFilterText(s string) (FilterDef, error) {
	head, ranges, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return FilterDef{}, fmt.Errorf("%w: filter %q lacks '='", ErrInvalidDefinition, s)
	}

	stat, mode, ok := strings.Cut(head, ":")
	if !ok {
		return FilterDef{}, fmt.Errorf("%w: filter %q lacks ':'", ErrInvalidDefinition, s)
	}

	fd := FilterDef{Type: strings.TrimSpace(stat), Mode: strings.TrimSpace(mode)}
	for _, part := range strings.Split(ranges, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		lo, hi, ok := strings.Cut(part, ",")
		if !ok {
			return FilterDef{}, fmt.Errorf("%w: range %q is not lo,hi", ErrInvalidDefinition, part)
		}
		l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return FilterDef{}, fmt.Errorf("%w: range %q: %s", ErrInvalidDefinition, part, err)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return FilterDef{}, fmt.Errorf("%w: range %q: %s", ErrInvalidDefinition, part, err)
		}
		fd.Range = append(fd.Range, []float64{l, h})
	}

	if _, err := fd.Compile(); err != nil {
		return FilterDef{}, err
	}
	return fd, nil
}

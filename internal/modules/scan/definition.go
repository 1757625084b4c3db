// Package scan runs spread scans: it enumerates leg combinations, builds their spread
// sets, and keeps the live ones whose latest row passes every filter.
package scan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/legs"
	"github.com/aristath/spreadscan/internal/modules/spreads"
)

var (
	// ErrInvalidDefinition is returned for structurally malformed scan definitions
	ErrInvalidDefinition = errors.New("invalid scan definition")
	// ErrUnknownStat is returned for a filter on an unsupported statistic
	ErrUnknownStat = errors.New("unknown filter statistic")
	// ErrUnknownMode is returned for a filter comparison mode other than absolute or stdev
	ErrUnknownMode = errors.New("unknown filter mode")
	// ErrUnknownType is returned for a scan type other than calendar or sequence
	ErrUnknownType = errors.New("unknown scan type")
)

// Default data range applied when a definition leaves it unset.
const (
	DefaultRangeStart = "2018-01-01"
	DefaultRangeEnd   = "2035-01-01"
)

var validate = validator.New()

// Definition is the external configuration of one scan.
type Definition struct {
	Name        string      `json:"name" yaml:"name" validate:"required"`
	Contract    string      `json:"contract" yaml:"contract" validate:"required"`
	Type        domain.Mode `json:"type" yaml:"type" validate:"required"`
	DataRange   []string    `json:"data_range,omitempty" yaml:"data_range,omitempty" validate:"omitempty,len=2"`
	ResultLimit int         `json:"result_limit" yaml:"result_limit" validate:"gte=0"`
	Legs        [][]string  `json:"legs" yaml:"legs" validate:"required,min=1"`
	Filters     []FilterDef `json:"filters" yaml:"filters" validate:"dive"`
}

// FilterDef is the external configuration of one filter. Ranges are inclusive [lo, hi] pairs.
type FilterDef struct {
	Type  string      `json:"type" yaml:"type" validate:"required"`
	Mode  string      `json:"mode" yaml:"mode" validate:"required"`
	Range [][]float64 `json:"range" yaml:"range" validate:"required,min=1,dive,len=2"`
}

// Plan is a validated definition ready to execute.
type Plan struct {
	Definition Definition
	Mode       domain.Mode
	Start      time.Time
	End        time.Time
	Filters    []Filter
	// Stats lists the statistics referenced by the filters, each once.
	Stats []spreads.StatName
}

// Validate checks the definition without executing it.
func (d Definition) Validate() error {
	_, err := d.Compile()
	return err
}

// Compile validates the definition and resolves its dates, filters and leg specification.
func (d Definition) Compile() (*Plan, error) {
	if err := validate.Struct(d); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDefinition, err)
	}

	mode := domain.Mode(strings.ToLower(string(d.Type)))
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, d.Type)
	}

	start, end, err := d.dateRange()
	if err != nil {
		return nil, err
	}

	plan := &Plan{Definition: d, Mode: mode, Start: start, End: end}

	seen := make(map[spreads.StatName]bool)
	for i, fd := range d.Filters {
		f, err := fd.Compile()
		if err != nil {
			return nil, fmt.Errorf("filter %d: %w", i, err)
		}
		plan.Filters = append(plan.Filters, f)
		if !seen[f.Stat] {
			seen[f.Stat] = true
			plan.Stats = append(plan.Stats, f.Stat)
		}
	}

	if _, err := legs.New(mode, d.Legs); err != nil {
		return nil, err
	}

	return plan, nil
}

func (d Definition) dateRange() (time.Time, time.Time, error) {
	bounds := []string{DefaultRangeStart, DefaultRangeEnd}
	if len(d.DataRange) == 2 {
		bounds = d.DataRange
	}

	start, err := domain.ParseDate(bounds[0])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data_range start: %s", ErrInvalidDefinition, err)
	}
	end, err := domain.ParseDate(bounds[1])
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data_range end: %s", ErrInvalidDefinition, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: data_range ends before it starts", ErrInvalidDefinition)
	}

	return start, end, nil
}

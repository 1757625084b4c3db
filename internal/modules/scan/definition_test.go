package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/legs"
	"github.com/aristath/spreadscan/internal/modules/spreads"
)

func validDefinition() Definition {
	return Definition{
		Name:        "cl-calendars",
		Contract:    "CL",
		Type:        domain.ModeCalendar,
		DataRange:   []string{"2020-01-01", "2021-12-31"},
		ResultLimit: 10,
		Legs:        [][]string{{"F", "Z", "0", "1", "A"}, {"+1", "Z", "0", "1", "B"}},
		Filters: []FilterDef{
			{Type: "vol", Mode: "stdev", Range: [][]float64{{-2, -1}, {1, 2}}},
			{Type: "settle", Mode: "absolute", Range: [][]float64{{-10, 10}}},
			{Type: "vol", Mode: "absolute", Range: [][]float64{{0, 5}}},
		},
	}
}

func TestDefinition_Compile(t *testing.T) {
	plan, err := validDefinition().Compile()
	require.NoError(t, err)

	assert.Equal(t, domain.ModeCalendar, plan.Mode)
	assert.Equal(t, "2020-01-01", plan.Start.Format(domain.DateLayout))
	assert.Equal(t, "2021-12-31", plan.End.Format(domain.DateLayout))
	require.Len(t, plan.Filters, 3)
	assert.Equal(t, ModeStdev, plan.Filters[0].Mode)
	assert.Equal(t, []Range{{Lo: -2, Hi: -1}, {Lo: 1, Hi: 2}}, plan.Filters[0].Ranges)
	assert.Equal(t, []spreads.StatName{spreads.StatVol, spreads.StatSettle}, plan.Stats)
}

func TestDefinition_CompileDefaults(t *testing.T) {
	def := validDefinition()
	def.DataRange = nil
	def.Type = "Sequence"
	def.Legs = [][]string{{"0", "3", "A"}, {"+1", "+1", "B"}}

	plan, err := def.Compile()
	require.NoError(t, err)
	assert.Equal(t, domain.ModeSequence, plan.Mode)
	assert.Equal(t, DefaultRangeStart, plan.Start.Format(domain.DateLayout))
	assert.Equal(t, DefaultRangeEnd, plan.End.Format(domain.DateLayout))
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definition)
		want   error
	}{
		{"missing name", func(d *Definition) { d.Name = "" }, ErrInvalidDefinition},
		{"missing contract", func(d *Definition) { d.Contract = "" }, ErrInvalidDefinition},
		{"no legs", func(d *Definition) { d.Legs = nil }, ErrInvalidDefinition},
		{"negative limit", func(d *Definition) { d.ResultLimit = -1 }, ErrInvalidDefinition},
		{"one-sided data range", func(d *Definition) { d.DataRange = []string{"2020-01-01"} }, ErrInvalidDefinition},
		{"unparseable date", func(d *Definition) { d.DataRange = []string{"2020-13-01", "2021-01-01"} }, ErrInvalidDefinition},
		{"inverted data range", func(d *Definition) { d.DataRange = []string{"2021-01-01", "2020-01-01"} }, ErrInvalidDefinition},
		{"unknown type", func(d *Definition) { d.Type = "butterfly" }, ErrUnknownType},
		{"unknown statistic", func(d *Definition) { d.Filters[0].Type = "sharpe" }, ErrUnknownStat},
		{"unknown mode", func(d *Definition) { d.Filters[0].Mode = "percentile" }, ErrUnknownMode},
		{"inverted range", func(d *Definition) { d.Filters[1].Range = [][]float64{{10, -10}} }, ErrInvalidDefinition},
		{"range not a pair", func(d *Definition) { d.Filters[1].Range = [][]float64{{1, 2, 3}} }, ErrInvalidDefinition},
		{"empty ranges", func(d *Definition) { d.Filters[1].Range = nil }, ErrInvalidDefinition},
		{"leg outside domain", func(d *Definition) { d.Legs[0][2] = "12" }, legs.ErrInvalidSpecification},
		{"short leg", func(d *Definition) { d.Legs[1] = []string{"+1", "Z", "B"} }, legs.ErrInvalidSpecification},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := validDefinition()
			tt.mutate(&def)
			assert.ErrorIs(t, def.Validate(), tt.want)
		})
	}

	assert.NoError(t, validDefinition().Validate())
}

package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/metrics"
	"github.com/aristath/spreadscan/internal/modules/legs"
)

var epoch = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return epoch.AddDate(0, 0, d)
}

// listing appends rows for one contract over days [from, to].
func listing(rows []domain.PriceRow, month string, year, from, to int, settle func(d int) float64) []domain.PriceRow {
	for d := from; d <= to; d++ {
		rows = append(rows, domain.PriceRow{
			Date:       day(d),
			Name:       "CL",
			Month:      month,
			Year:       year,
			Settle:     settle(d),
			DaysListed: d - from,
		})
	}
	return rows
}

func flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

type fakeSource struct {
	rows  []domain.PriceRow
	err   error
	calls int
}

func (f *fakeSource) GetRows(_ context.Context, contract string, start, end time.Time) ([]domain.PriceRow, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

type fakeFrontSource struct {
	fakeSource
	front      []domain.FrontMonthRow
	frontCalls int
}

func (f *fakeFrontSource) GetFrontMonth(_ context.Context, contract string, start, end time.Time) ([]domain.FrontMonthRow, error) {
	f.frontCalls++
	return f.front, nil
}

func newTestScanner(source DataSource, today time.Time) *Scanner {
	s := NewScanner(source, metrics.NewScanMetrics(), zerolog.Nop())
	s.SetClock(func() time.Time { return today })
	return s
}

// threeMonths lists F21=100, G21=95 and H21=85 over ten days.
func threeMonths() []domain.PriceRow {
	var rows []domain.PriceRow
	rows = listing(rows, "F", 2021, 0, 9, flat(100))
	rows = listing(rows, "G", 2021, 0, 9, flat(95))
	rows = listing(rows, "H", 2021, 0, 9, flat(85))
	return rows
}

func calendarDef(legSpec [][]string, filters ...FilterDef) Definition {
	return Definition{
		Name:      "test",
		Contract:  "CL",
		Type:      domain.ModeCalendar,
		DataRange: []string{"2021-01-01", "2021-12-31"},
		Legs:      legSpec,
		Filters:   filters,
	}
}

func adjacentPairs() [][]string {
	return [][]string{{"F", "H", "0", "0", "A"}, {"+1", "H", "0", "0", "B"}}
}

func aggregateIDs(r *Result) []string {
	ids := make([]string, len(r.Matches))
	for i, m := range r.Matches {
		ids[i] = m.AggregateID
	}
	return ids
}

func TestScanner_AbsoluteSettleFilter(t *testing.T) {
	source := &fakeSource{rows: threeMonths()}
	s := newTestScanner(source, day(9))

	def := calendarDef(adjacentPairs(), FilterDef{Type: "settle", Mode: "absolute", Range: [][]float64{{-10, 10}}})
	res, err := s.Execute(context.Background(), def)
	require.NoError(t, err)

	// +F0 -G0 settles at 5 and passes, +F0 -H0 at 15 fails, +G0 -H0 at 10 passes on the inclusive bound
	assert.Equal(t, []string{"+F0 -G0", "+G0 -H0"}, aggregateIDs(res))
	assert.Equal(t, 3, res.Combinations)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "CL", res.Contract)
	assert.Equal(t, domain.ModeCalendar, res.Type)
	assert.Equal(t, 1, source.calls)

	latest, ok := res.Matches[0].Set.Latest()
	require.True(t, ok)
	assert.Equal(t, 5.0, latest.Settle)
}

func TestScanner_NoFiltersKeepsEveryLiveSet(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	res, err := s.Execute(context.Background(), calendarDef(adjacentPairs()))
	require.NoError(t, err)
	assert.Equal(t, []string{"+F0 -G0", "+F0 -H0", "+G0 -H0"}, aggregateIDs(res))
}

func TestScanner_ResultLimitStopsEarly(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	def := calendarDef(adjacentPairs())
	def.ResultLimit = 1
	res, err := s.Execute(context.Background(), def)
	require.NoError(t, err)

	assert.Equal(t, []string{"+F0 -G0"}, aggregateIDs(res))
	assert.Equal(t, 1, res.Combinations)
}

func TestScanner_StaleSetsAreSkipped(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(30))

	res, err := s.Execute(context.Background(), calendarDef(adjacentPairs()))
	require.NoError(t, err)
	assert.Empty(t, res.Matches)
	assert.Equal(t, 3, res.Combinations)
}

func TestScanner_DeduplicatesAggregateIDs(t *testing.T) {
	var rows []domain.PriceRow
	rows = listing(rows, "F", 2021, 0, 9, flat(100))
	rows = listing(rows, "G", 2021, 0, 9, flat(95))
	rows = listing(rows, "F", 2022, 0, 9, flat(100))
	rows = listing(rows, "G", 2022, 0, 9, flat(90))
	s := newTestScanner(&fakeSource{rows: rows}, day(9))

	// (F0, G0) and (F1, G1) share the pattern "+F0 -G0"
	legSpec := [][]string{{"F", "F", "0", "1", "A"}, {"+1", "+1", "+0", "+0", "B"}}
	res, err := s.Execute(context.Background(), calendarDef(legSpec))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Combinations)
	require.Len(t, res.Matches, 1)
	assert.Equal(t, "+F0 -G0", res.Matches[0].AggregateID)
	assert.Equal(t, []string{"+F21 -G21"}, res.Matches[0].Set.PlotIDs())
}

func TestScanner_FirstLiveInstanceWins(t *testing.T) {
	var rows []domain.PriceRow
	rows = listing(rows, "F", 2021, 0, 2, flat(100))
	rows = listing(rows, "G", 2021, 0, 2, flat(95))
	rows = listing(rows, "F", 2022, 0, 9, flat(100))
	rows = listing(rows, "G", 2022, 0, 9, flat(90))
	s := newTestScanner(&fakeSource{rows: rows}, day(9))

	legSpec := [][]string{{"F", "F", "0", "1", "A"}, {"+1", "+1", "+0", "+0", "B"}}
	res, err := s.Execute(context.Background(), calendarDef(legSpec))
	require.NoError(t, err)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, []string{"+F22 -G22"}, res.Matches[0].Set.PlotIDs())
}

func TestScanner_StdevFilter(t *testing.T) {
	var rows []domain.PriceRow
	rows = listing(rows, "F", 2021, 0, 9, func(d int) float64 { return 100 + float64(d) })
	rows = listing(rows, "G", 2021, 0, 9, flat(90))
	legSpec := [][]string{{"F", "F", "0", "0", "A"}, {"+1", "+1", "+0", "+0", "B"}}

	// latest settle 19 against mean 14.5 and sample stdev ~3.03 sits ~1.49 deviations above
	tests := []struct {
		name   string
		ranges [][]float64
		passes bool
	}{
		{"inside upper band", [][]float64{{1, 2}}, true},
		{"inside one of two bands", [][]float64{{-2, -1}, {1, 2}}, true},
		{"near the mean", [][]float64{{-1, 1}}, false},
		{"below the mean", [][]float64{{-3, 0}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(&fakeSource{rows: rows}, day(9))
			def := calendarDef(legSpec, FilterDef{Type: "settle", Mode: "stdev", Range: tt.ranges})

			res, err := s.Execute(context.Background(), def)
			require.NoError(t, err)
			assert.Equal(t, tt.passes, len(res.Matches) == 1)
		})
	}
}

func TestScanner_FiltersAreANDed(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	def := calendarDef(adjacentPairs(),
		FilterDef{Type: "settle", Mode: "absolute", Range: [][]float64{{0, 20}}},
		FilterDef{Type: "settle", Mode: "absolute", Range: [][]float64{{9, 11}}},
	)
	res, err := s.Execute(context.Background(), def)
	require.NoError(t, err)
	assert.Equal(t, []string{"+G0 -H0"}, aggregateIDs(res))
}

func TestScanner_FrontMonthLoadedOnlyForRegression(t *testing.T) {
	tests := []struct {
		name       string
		filter     FilterDef
		frontCalls int
	}{
		{"settle", FilterDef{Type: "settle", Mode: "absolute", Range: [][]float64{{-100, 100}}}, 0},
		{"vol", FilterDef{Type: "vol", Mode: "absolute", Range: [][]float64{{0, 100}}}, 0},
		{"beta", FilterDef{Type: "beta", Mode: "absolute", Range: [][]float64{{-100, 100}}}, 1},
		{"r_2", FilterDef{Type: "r_2", Mode: "absolute", Range: [][]float64{{0, 1}}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &fakeFrontSource{fakeSource: fakeSource{rows: threeMonths()}}
			s := newTestScanner(source, day(9))

			_, err := s.Execute(context.Background(), calendarDef(adjacentPairs(), tt.filter))
			require.NoError(t, err)
			assert.Equal(t, tt.frontCalls, source.frontCalls)
		})
	}
}

func TestScanner_SequenceMode(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	def := Definition{
		Name:      "terms",
		Contract:  "CL",
		Type:      domain.ModeSequence,
		DataRange: []string{"2021-01-01", "2021-12-31"},
		Legs:      [][]string{{"0", "0", "A"}, {"+1", "+2", "B"}},
	}
	res, err := s.Execute(context.Background(), def)
	require.NoError(t, err)

	assert.Equal(t, []string{"+T0 -T1", "+T0 -T2"}, aggregateIDs(res))
	latest, ok := res.Matches[1].Set.Latest()
	require.True(t, ok)
	assert.Equal(t, 15.0, latest.Settle)
}

func TestScanner_SourceError(t *testing.T) {
	s := newTestScanner(&fakeSource{err: errors.New("db down")}, day(9))

	_, err := s.Execute(context.Background(), calendarDef(adjacentPairs()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestScanner_InvalidDefinitionFailsFast(t *testing.T) {
	source := &fakeSource{rows: threeMonths()}
	s := newTestScanner(source, day(9))

	def := calendarDef(adjacentPairs(), FilterDef{Type: "sharpe", Mode: "absolute", Range: [][]float64{{0, 1}}})
	_, err := s.Execute(context.Background(), def)
	assert.ErrorIs(t, err, ErrUnknownStat)
	assert.Equal(t, 0, source.calls, "no data is loaded for a malformed definition")
}

func TestScanner_Cancelled(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Execute(ctx, calendarDef(adjacentPairs()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanner_Stream(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	var streamed []string
	res, err := s.Stream(context.Background(), calendarDef(adjacentPairs()), func(m Match) error {
		streamed = append(streamed, m.AggregateID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, aggregateIDs(res), streamed)

	stop := errors.New("client gone")
	_, err = s.Stream(context.Background(), calendarDef(adjacentPairs()), func(Match) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestResult_Find(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))
	res, err := s.Execute(context.Background(), calendarDef(adjacentPairs()))
	require.NoError(t, err)

	m, ok := res.Find("+F0 -H0")
	require.True(t, ok)
	assert.Equal(t, legs.LegValue{Month: 0, Year: 0, Side: domain.SideLong}, m.Spec.Legs[0])

	_, ok = res.Find("+F0 -Z0")
	assert.False(t, ok)
}

func TestScanner_BatchExecute(t *testing.T) {
	s := newTestScanner(&fakeSource{rows: threeMonths()}, day(9))

	bad := calendarDef(adjacentPairs())
	bad.Name = "bad"
	bad.Type = "butterfly"

	good := calendarDef(adjacentPairs())
	good.Name = "good"

	limited := calendarDef(adjacentPairs())
	limited.Name = "limited"
	limited.ResultLimit = 2

	results := s.BatchExecute(context.Background(), []Definition{bad, good, limited}, 2)
	require.Len(t, results, 3)

	assert.Equal(t, "bad", results[0].Name)
	assert.ErrorIs(t, results[0].Err, ErrUnknownType)
	assert.Empty(t, results[0].Matches)

	require.NoError(t, results[1].Err)
	assert.Len(t, results[1].Matches, 3)

	require.NoError(t, results[2].Err)
	assert.Len(t, results[2].Matches, 2)
}

package spreads

import (
	"testing"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/contracts"
	"github.com/aristath/spreadscan/internal/modules/legs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return epoch.AddDate(0, 0, d)
}

func contract(id string, from, to int, settle func(d int) float64) *contracts.Contract {
	c := &contracts.Contract{ID: id}
	for d := from; d <= to; d++ {
		c.Rows = append(c.Rows, domain.ContractRow{Date: day(d), Settle: settle(d), DaysListed: d + 10})
	}
	return c
}

func flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

func TestBuildCalendar_DisjointLegsAreEmpty(t *testing.T) {
	a := contract("F21", 0, 9, flat(10))
	b := contract("G21", 10, 19, flat(12))

	rows := BuildCalendar("+F0 -G0", []BoundLeg{
		{Contract: a, Side: domain.SideLong},
		{Contract: b, Side: domain.SideShort},
	})
	assert.Empty(t, rows)
}

func TestBuildCalendar_OverlapKeepsIntersection(t *testing.T) {
	a := contract("F21", 0, 9, func(d int) float64 { return 100 + float64(d) })
	b := contract("G21", 5, 14, flat(90))

	rows := BuildCalendar("+F0 -G0", []BoundLeg{
		{Contract: a, Side: domain.SideLong},
		{Contract: b, Side: domain.SideShort},
	})
	require.Len(t, rows, 5)

	for i, r := range rows {
		assert.Equal(t, day(5+i), r.Date)
		assert.Equal(t, "+F0 -G0", r.AggregateID)
		assert.Equal(t, "+F21 -G21", r.PlotID)
		assert.InDelta(t, 10+float64(5+i), r.Settle, 1e-12)
		assert.Equal(t, 5+i+10, r.DaysListed, "days listed is the minimum across legs")
	}

	assert.Nil(t, rows[0].Change)
	for _, r := range rows[1:] {
		require.NotNil(t, r.Change)
		assert.InDelta(t, 1.0, *r.Change, 1e-12)
	}
}

func TestBuildCalendar_MinimumDaysListed(t *testing.T) {
	a := &contracts.Contract{ID: "F21", Rows: []domain.ContractRow{{Date: day(0), Settle: 1, DaysListed: 300}}}
	b := &contracts.Contract{ID: "G21", Rows: []domain.ContractRow{{Date: day(0), Settle: 2, DaysListed: 250}}}

	rows := BuildCalendar("x", []BoundLeg{{Contract: a, Side: domain.SideLong}, {Contract: b, Side: domain.SideLong}})
	require.Len(t, rows, 1)
	assert.Equal(t, 250, rows[0].DaysListed)
	assert.Equal(t, 3.0, rows[0].Settle)
}

func TestBuildCalendar_SelfCancelingLegs(t *testing.T) {
	c := contract("F21", 0, 20, func(d int) float64 { return 50 + float64(d*d) })

	rows := BuildCalendar("+F0 -F0", []BoundLeg{
		{Contract: c, Side: domain.SideLong},
		{Contract: c, Side: domain.SideShort},
	})
	require.Len(t, rows, 21)
	for _, r := range rows {
		assert.Equal(t, 0.0, r.Settle)
	}
}

func TestAggregateID_NormalizesYears(t *testing.T) {
	m := legs.Match{Mode: domain.ModeCalendar, Legs: []legs.LegValue{
		{Month: 0, Year: 1, Side: domain.SideLong},
		{Month: 1, Year: 2, Side: domain.SideShort},
	}}
	assert.Equal(t, "+F0 -G1", AggregateID(m))

	tm := legs.Match{Mode: domain.ModeSequence, Legs: []legs.LegValue{
		{Term: 15, Side: domain.SideLong},
		{Term: 32, Side: domain.SideShort},
	}}
	assert.Equal(t, "+T15 -T32", AggregateID(tm))
}

func registryRows() []domain.PriceRow {
	var rows []domain.PriceRow
	add := func(month string, year, from, to int, base float64) {
		for d := from; d <= to; d++ {
			rows = append(rows, domain.PriceRow{
				Name: "CL", Month: month, Year: year, Date: day(d),
				Settle: base + float64(d), DaysListed: d - from,
			})
		}
	}
	add("F", 2021, 0, 9, 50)
	add("G", 2021, 0, 19, 52)
	add("H", 2021, 5, 19, 55)
	add("F", 2022, 0, 19, 60)
	return rows
}

func TestBuilder_CalendarSkipsUnboundYears(t *testing.T) {
	reg, _ := contracts.Build("CL", registryRows(), day(0), time.Date(2022, 6, 1, 0, 0, 0, 0, time.UTC))
	b, err := NewBuilder(reg, domain.ModeCalendar)
	require.NoError(t, err)

	set := b.SpreadSet(legs.Match{Mode: domain.ModeCalendar, Legs: []legs.LegValue{
		{Month: 0, Year: 0, Side: domain.SideLong},
		{Month: 1, Year: 0, Side: domain.SideShort},
	}})

	// 2021 binds F21/G21; 2022 has no G22
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, []string{"+F21 -G21"}, set.PlotIDs())
	assert.Len(t, set.Rows(), 10)
	assert.Equal(t, "+F0 -G0", set.AggregateID())
}

func TestBuilder_Terms(t *testing.T) {
	reg, _ := contracts.Build("CL", registryRows(), day(0), day(19))
	b, err := NewBuilder(reg, domain.ModeSequence)
	require.NoError(t, err)

	set := b.SpreadSet(legs.Match{Mode: domain.ModeSequence, Legs: []legs.LegValue{
		{Term: 0, Side: domain.SideLong},
		{Term: 1, Side: domain.SideShort},
	}})
	set.Organize(day(19))

	rows := set.Rows()
	require.Len(t, rows, 20)
	assert.Equal(t, "+F21 -G21", rows[0].PlotID)
	assert.Equal(t, "+G21 -H21", rows[10].PlotID, "front contract rolled after F21 expired")
	assert.Equal(t, "+T0 -T1", rows[0].AggregateID)
	assert.Nil(t, rows[0].Change)
	assert.Equal(t, 1, set.Len())
}

func TestNewBuilder_UnknownMode(t *testing.T) {
	_, err := NewBuilder(nil, domain.Mode("strip"))
	assert.Error(t, err)
}

package contracts

import (
	"testing"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func priceRow(month string, year, d int, settle float64) domain.PriceRow {
	return domain.PriceRow{
		Name:       "CL",
		Month:      month,
		Year:       year,
		Date:       day(d),
		Settle:     settle,
		DaysListed: 100 + d,
	}
}

func TestBuild_GroupsAndOrdersRows(t *testing.T) {
	rows := []domain.PriceRow{
		priceRow("G", 2021, 2, 51),
		priceRow("F", 2021, 1, 50),
		priceRow("F", 2021, 0, 49),
		priceRow("F", 2021, 1, 99), // repeated date, first wins
		priceRow("A", 2021, 0, 1),  // unknown month
	}

	reg, skipped := Build("CL", rows, day(0), day(400))
	assert.Equal(t, 1, skipped)
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, "CL", reg.Name())
	assert.Equal(t, []int{2021, 2022}, reg.Years())

	f, ok := reg.Get("F21")
	require.True(t, ok)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, day(0), f.Rows[0].Date)
	assert.Equal(t, 49.0, f.Rows[0].Settle)
	assert.Equal(t, 50.0, f.Rows[1].Settle)
	assert.Equal(t, 0, f.Month)
	assert.Equal(t, "F", f.MonthCode)
}

func TestRegistry_Bind(t *testing.T) {
	reg, _ := Build("CL", []domain.PriceRow{
		priceRow("G", 2021, 0, 1),
		priceRow("Z", 2022, 0, 2),
	}, day(0), day(0))

	c, ok := reg.Bind(1, 1, 2020)
	require.True(t, ok)
	assert.Equal(t, "G21", c.ID)

	c, ok = reg.Bind(11, 2, 2020)
	require.True(t, ok)
	assert.Equal(t, "Z22", c.ID)

	_, ok = reg.Bind(2, 0, 2021)
	assert.False(t, ok, "H21 was never listed")

	_, ok = reg.Bind(12, 0, 2021)
	assert.False(t, ok, "month outside domain")

	_, ok = reg.Bind(0, 9, 2095)
	assert.False(t, ok, "year overflows two digits")
}

func TestRegistry_TermsAndFrontMonth(t *testing.T) {
	reg, _ := Build("CL", []domain.PriceRow{
		priceRow("H", 2021, 0, 52),
		priceRow("F", 2021, 0, 50),
		priceRow("G", 2021, 0, 51),
		priceRow("G", 2021, 1, 53),
		priceRow("H", 2021, 1, 55),
		priceRow("F", 2022, 1, 60),
	}, day(0), day(1))

	terms := reg.Terms()
	require.Len(t, terms.Days, 2)

	first := terms.Days[0]
	require.Len(t, first.Entries, 3)
	assert.Equal(t, "F21", first.Entries[0].Contract.ID)
	assert.Equal(t, "G21", first.Entries[1].Contract.ID)
	assert.Equal(t, "H21", first.Entries[2].Contract.ID)

	second := terms.Days[1]
	e, ok := second.At(0)
	require.True(t, ok)
	assert.Equal(t, "G21", e.Contract.ID)
	e, ok = second.At(2)
	require.True(t, ok)
	assert.Equal(t, "F22", e.Contract.ID)
	_, ok = second.At(3)
	assert.False(t, ok)

	front := reg.FrontMonth()
	require.Len(t, front, 2)
	assert.Nil(t, front[0].Change)
	assert.Equal(t, 50.0, front[0].Settle)
	require.NotNil(t, front[1].Change)
	assert.Equal(t, 3.0, *front[1].Change)

	assert.Same(t, terms, reg.Terms())
}

func TestRegistry_Contracts(t *testing.T) {
	reg, _ := Build("CL", []domain.PriceRow{
		priceRow("F", 2022, 0, 1),
		priceRow("Z", 2021, 0, 1),
		priceRow("H", 2021, 0, 1),
	}, day(0), day(0))

	var ids []string
	for _, c := range reg.Contracts() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"H21", "Z21", "F22"}, ids)
}

package testing

import (
	"context"
	"testing"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
)

// FixtureEpoch is the first settlement date of the generated fixtures, a Monday.
var FixtureEpoch = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

// Day returns FixtureEpoch plus d days.
func Day(d int) time.Time {
	return FixtureEpoch.AddDate(0, 0, d)
}

// ContractFixture describes a generated contract: settlements run from day From to day To
// inclusive, priced by Settle.
type ContractFixture struct {
	Name   string
	Month  string
	Year   int
	From   int
	To     int
	Settle func(d int) float64
}

// Flat prices every day at v.
func Flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

// Trend prices day d at base + step*d.
func Trend(base, step float64) func(int) float64 {
	return func(d int) float64 { return base + step*float64(d) }
}

// Rows expands the fixture into price rows, days listed counted from From.
func (c ContractFixture) Rows() []domain.PriceRow {
	rows := make([]domain.PriceRow, 0, c.To-c.From+1)
	for d := c.From; d <= c.To; d++ {
		rows = append(rows, domain.PriceRow{
			Date:       Day(d),
			Name:       c.Name,
			Month:      c.Month,
			Year:       c.Year,
			Settle:     c.Settle(d),
			DaysListed: d - c.From,
		})
	}
	return rows
}

// NewCalendarFixtures returns three CL contracts over ten days settling at
// F21=100, G21=95 and H21=85.
func NewCalendarFixtures() []ContractFixture {
	return []ContractFixture{
		{Name: "CL", Month: "F", Year: 2021, From: 0, To: 9, Settle: Flat(100)},
		{Name: "CL", Month: "G", Year: 2021, From: 0, To: 9, Settle: Flat(95)},
		{Name: "CL", Month: "H", Year: 2021, From: 0, To: 9, Settle: Flat(85)},
	}
}

// PriceRows flattens fixtures into rows.
func PriceRows(fixtures []ContractFixture) []domain.PriceRow {
	var rows []domain.PriceRow
	for _, f := range fixtures {
		rows = append(rows, f.Rows()...)
	}
	return rows
}

// SeedFunc writes one contract's listing date and rows.
type SeedFunc func(ctx context.Context, f ContractFixture, listed time.Time) error

// Seed writes every fixture through seed, listing each contract on its first day.
func Seed(t *testing.T, fixtures []ContractFixture, seed SeedFunc) {
	t.Helper()

	for _, f := range fixtures {
		if err := seed(context.Background(), f, Day(f.From)); err != nil {
			t.Fatalf("Failed to seed %s%s%d: %v", f.Name, f.Month, f.Year, err)
		}
	}
}

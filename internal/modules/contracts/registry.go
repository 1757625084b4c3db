// Package contracts groups raw settlement rows into per-contract series and exposes the
// lookups the spread builders need: calendar binding by month/year and per-date term
// structures for rank-based binding.
package contracts

import (
	"sort"
	"sync"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
)

// Contract is one listed futures contract and its settlement history, ordered by date.
type Contract struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	MonthCode string               `json:"month_code"`
	Month     int                  `json:"month"`
	Year      int                  `json:"year"`
	Rows      []domain.ContractRow `json:"rows"`
}

// Before orders contracts by delivery year, then month.
func (c *Contract) Before(o *Contract) bool {
	if c.Year != o.Year {
		return c.Year < o.Year
	}
	return c.Month < o.Month
}

// Registry holds every contract of one symbol keyed by identity (e.g. "F21").
// It is immutable once built and safe to share across concurrent scans.
type Registry struct {
	name      string
	contracts map[string]*Contract
	years     []int

	termsOnce sync.Once
	terms     *TermStructure
}

// Build groups rows by contract identity. Rows with an unknown month code are
// dropped and counted. Reference years span start.Year() through end.Year().
func Build(name string, rows []domain.PriceRow, start, end time.Time) (*Registry, int) {
	r := &Registry{
		name:      name,
		contracts: make(map[string]*Contract),
	}

	for y := start.Year(); y <= end.Year(); y++ {
		r.years = append(r.years, y)
	}

	skipped := 0
	for _, row := range rows {
		month, ok := domain.MonthIndex(row.Month)
		if !ok {
			skipped++
			continue
		}

		code := domain.MonthCodes[month]
		id := domain.ContractID(code, row.Year)
		c, exists := r.contracts[id]
		if !exists {
			c = &Contract{
				ID:        id,
				Name:      row.Name,
				MonthCode: code,
				Month:     month,
				Year:      row.Year,
			}
			r.contracts[id] = c
		}

		c.Rows = append(c.Rows, domain.ContractRow{
			Date:       row.Date,
			Settle:     row.Settle,
			DaysListed: row.DaysListed,
		})
	}

	for _, c := range r.contracts {
		c.Rows = normalizeRows(c.Rows)
	}

	return r, skipped
}

// normalizeRows sorts rows by date and keeps the first row of any repeated date.
func normalizeRows(rows []domain.ContractRow) []domain.ContractRow {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})

	out := rows[:0]
	for i, row := range rows {
		if i > 0 && row.Date.Equal(out[len(out)-1].Date) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// Name returns the symbol the registry was built for.
func (r *Registry) Name() string {
	return r.name
}

// Len returns the number of contracts.
func (r *Registry) Len() int {
	return len(r.contracts)
}

// Years returns the reference years used for calendar binding.
func (r *Registry) Years() []int {
	return r.years
}

// Get looks up a contract by identity.
func (r *Registry) Get(id string) (*Contract, bool) {
	c, ok := r.contracts[id]
	return c, ok
}

// Bind resolves a month value and year offset against a reference year, e.g.
// month 1 (G), offset 1, base year 2020 binds to "G21". The second result is
// false when no such contract was listed.
func (r *Registry) Bind(month, yearOffset, baseYear int) (*Contract, bool) {
	code, ok := domain.MonthCode(month)
	if !ok {
		return nil, false
	}
	year := baseYear%100 + yearOffset
	if year < 0 || year > 99 {
		return nil, false
	}
	return r.Get(domain.ContractID(code, year))
}

// Contracts returns every contract ordered by delivery date.
func (r *Registry) Contracts() []*Contract {
	out := make([]*Contract, 0, len(r.contracts))
	for _, c := range r.contracts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Before(out[j])
	})
	return out
}

package contracts

import (
	"sort"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
)

// TermEntry is one contract's settlement on a given date.
type TermEntry struct {
	Contract *Contract
	Row      domain.ContractRow
}

// TermDay is the term structure on one date: contracts with a row that day, front first.
type TermDay struct {
	Date    time.Time
	Entries []TermEntry
}

// At returns the entry at a term rank.
func (d TermDay) At(rank int) (TermEntry, bool) {
	if rank < 0 || rank >= len(d.Entries) {
		return TermEntry{}, false
	}
	return d.Entries[rank], true
}

// TermStructure is the date-ordered sequence of term days.
type TermStructure struct {
	Days []TermDay
}

// Terms returns the per-date term structure. It is computed once and shared.
func (r *Registry) Terms() *TermStructure {
	r.termsOnce.Do(func() {
		r.terms = buildTerms(r.Contracts())
	})
	return r.terms
}

func buildTerms(contracts []*Contract) *TermStructure {
	byDate := make(map[time.Time][]TermEntry)
	for _, c := range contracts {
		for _, row := range c.Rows {
			byDate[row.Date] = append(byDate[row.Date], TermEntry{Contract: c, Row: row})
		}
	}

	ts := &TermStructure{Days: make([]TermDay, 0, len(byDate))}
	for date, entries := range byDate {
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Contract.Before(entries[j].Contract)
		})
		ts.Days = append(ts.Days, TermDay{Date: date, Entries: entries})
	}
	sort.Slice(ts.Days, func(i, j int) bool {
		return ts.Days[i].Date.Before(ts.Days[j].Date)
	})

	return ts
}

// FrontMonth derives the reference front-month series from the term structure:
// the rank-0 settlement per date and its change from the prior date.
func (r *Registry) FrontMonth() []domain.FrontMonthRow {
	days := r.Terms().Days
	out := make([]domain.FrontMonthRow, 0, len(days))

	for i, day := range days {
		front := day.Entries[0].Row
		row := domain.FrontMonthRow{Date: day.Date, Settle: front.Settle}
		if i > 0 {
			change := front.Settle - out[i-1].Settle
			row.Change = &change
		}
		out = append(out, row)
	}

	return out
}

package prices

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
)

// ImportStats summarizes a CSV import.
type ImportStats struct {
	Contracts   int `json:"contracts"`
	Settlements int `json:"settlements"`
}

var importColumns = []string{"name", "month", "year", "date", "settle"}

// ImportCSV loads settlements from CSV with a header row naming at least
// name, month, year, date and settle. An optional from_date column sets the listing
// date; without it a contract is listed on its earliest settlement.
func (r *Repository) ImportCSV(ctx context.Context, in io.Reader) (ImportStats, error) {
	reader := csv.NewReader(in)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportStats{}, fmt.Errorf("failed to read CSV header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range importColumns {
		if _, ok := index[col]; !ok {
			return ImportStats{}, fmt.Errorf("CSV header is missing column %q", col)
		}
	}
	fromCol, hasFrom := index["from_date"]

	type pending struct {
		listing     Listing
		settlements []Settlement
	}
	byID := make(map[string]*pending)

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return ImportStats{}, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		year, err := strconv.Atoi(strings.TrimSpace(record[index["year"]]))
		if err != nil {
			return ImportStats{}, fmt.Errorf("line %d: bad year: %w", line, err)
		}
		date, err := domain.ParseDate(record[index["date"]])
		if err != nil {
			return ImportStats{}, fmt.Errorf("line %d: bad date: %w", line, err)
		}
		settle, err := strconv.ParseFloat(strings.TrimSpace(record[index["settle"]]), 64)
		if err != nil {
			return ImportStats{}, fmt.Errorf("line %d: bad settle: %w", line, err)
		}
		month, ok := domain.MonthIndex(record[index["month"]])
		if !ok {
			return ImportStats{}, fmt.Errorf("line %d: unknown month code %q", line, record[index["month"]])
		}

		l := Listing{
			Name:  strings.TrimSpace(record[index["name"]]),
			Month: domain.MonthCodes[month],
			Year:  year,
		}
		if hasFrom && strings.TrimSpace(record[fromCol]) != "" {
			l.FromDate, err = domain.ParseDate(record[fromCol])
			if err != nil {
				return ImportStats{}, fmt.Errorf("line %d: bad from_date: %w", line, err)
			}
		}

		p, ok := byID[l.ContractID()]
		if !ok {
			p = &pending{listing: l}
			byID[l.ContractID()] = p
		}
		if p.listing.FromDate.IsZero() || (!l.FromDate.IsZero() && l.FromDate.Before(p.listing.FromDate)) {
			p.listing.FromDate = l.FromDate
		}
		p.settlements = append(p.settlements, Settlement{Date: date, Settle: settle})
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var stats ImportStats
	for _, id := range ids {
		p := byID[id]
		if p.listing.FromDate.IsZero() {
			p.listing.FromDate = earliest(p.settlements)
		}

		if err := r.UpsertContract(ctx, p.listing); err != nil {
			return stats, err
		}
		if err := r.InsertSettlements(ctx, id, p.settlements); err != nil {
			return stats, fmt.Errorf("failed to import %s: %w", id, err)
		}
		stats.Contracts++
		stats.Settlements += len(p.settlements)
	}

	r.log.Info().
		Int("contracts", stats.Contracts).
		Int("settlements", stats.Settlements).
		Msg("Imported settlements")

	return stats, nil
}

func earliest(settlements []Settlement) time.Time {
	var first time.Time
	for _, s := range settlements {
		if first.IsZero() || s.Date.Before(first) {
			first = s.Date
		}
	}
	return first
}

// Package prices is the SQLite-backed price source: it stores contract listings and
// daily settlements and serves them to the scanner.
package prices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/spreadscan/internal/database"
	"github.com/aristath/spreadscan/internal/domain"
)

// Listing describes one listed contract.
type Listing struct {
	Name     string    `json:"name"`
	Month    string    `json:"month"`
	Year     int       `json:"year"`
	FromDate time.Time `json:"from_date"`
}

// ContractID returns the storage key of the listing, e.g. "CLF21".
func (l Listing) ContractID() string {
	return l.Name + domain.ContractID(l.Month, l.Year)
}

// Settlement is one daily settlement price.
type Settlement struct {
	Date   time.Time `json:"date"`
	Settle float64   `json:"settle"`
}

// Repository reads and writes the price store.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a repository over an open prices database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("component", "prices_repository").Logger(),
	}
}

// GetRows returns every settlement of a root symbol between start and end inclusive,
// ordered by date then contract, with days listed counted from the listing date.
func (r *Repository) GetRows(ctx context.Context, contract string, start, end time.Time) ([]domain.PriceRow, error) {
	query := `
		SELECT DISTINCT
			c.name,
			c.month,
			c.year,
			s.date,
			s.settle,
			CAST(julianday(s.date) - julianday(c.from_date) AS INTEGER) AS days_listed
		FROM settlements s INNER JOIN contracts c USING(contract_id)
		WHERE c.name = ?
		AND s.date BETWEEN ? AND ?
		ORDER BY s.date ASC, c.year ASC, instr('FGHJKMNQUVXZ', c.month) ASC
	`

	rows, err := r.db.QueryContext(ctx, query, contract, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query price rows: %w", err)
	}
	defer rows.Close()

	var out []domain.PriceRow
	for rows.Next() {
		var p domain.PriceRow
		var date string
		if err := rows.Scan(&p.Name, &p.Month, &p.Year, &date, &p.Settle, &p.DaysListed); err != nil {
			return nil, fmt.Errorf("failed to scan price row: %w", err)
		}

		p.Date, err = domain.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse settlement date %q: %w", date, err)
		}
		out = append(out, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price rows: %w", err)
	}

	r.log.Debug().Str("contract", contract).Int("rows", len(out)).Msg("Loaded price rows")
	return out, nil
}

// GetFrontMonth returns the nearest listed contract's settlement for each date, with the
// change from the previous date.
func (r *Repository) GetFrontMonth(ctx context.Context, contract string, start, end time.Time) ([]domain.FrontMonthRow, error) {
	query := `
		WITH ranked AS (
			SELECT
				s.date,
				s.settle,
				ROW_NUMBER() OVER (
					PARTITION BY s.date
					ORDER BY c.year ASC, instr('FGHJKMNQUVXZ', c.month) ASC
				) AS term
			FROM settlements s INNER JOIN contracts c USING(contract_id)
			WHERE c.name = ?
			AND s.date BETWEEN ? AND ?
		)
		SELECT date, settle FROM ranked WHERE term = 1 ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, contract, start.Format(domain.DateLayout), end.Format(domain.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query front month: %w", err)
	}
	defer rows.Close()

	var out []domain.FrontMonthRow
	for rows.Next() {
		var f domain.FrontMonthRow
		var date string
		if err := rows.Scan(&date, &f.Settle); err != nil {
			return nil, fmt.Errorf("failed to scan front month row: %w", err)
		}

		f.Date, err = domain.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse settlement date %q: %w", date, err)
		}
		if n := len(out); n > 0 {
			change := f.Settle - out[n-1].Settle
			f.Change = &change
		}
		out = append(out, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating front month rows: %w", err)
	}

	return out, nil
}

// UpsertContract creates or updates a listing.
func (r *Repository) UpsertContract(ctx context.Context, l Listing) error {
	month, ok := domain.MonthIndex(l.Month)
	if !ok {
		return fmt.Errorf("unknown month code %q for %s", l.Month, l.Name)
	}
	l.Month = domain.MonthCodes[month]

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contracts (contract_id, name, month, year, from_date)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(contract_id) DO UPDATE SET from_date = excluded.from_date
	`, l.ContractID(), l.Name, l.Month, l.Year, l.FromDate.Format(domain.DateLayout))
	if err != nil {
		return fmt.Errorf("failed to upsert contract %s: %w", l.ContractID(), err)
	}
	return nil
}

// InsertSettlements writes settlements for a listed contract in one transaction.
// An existing settlement for the same date is replaced.
func (r *Repository) InsertSettlements(ctx context.Context, contractID string, settlements []Settlement) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO settlements (contract_id, date, settle)
			VALUES (?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare settlement insert: %w", err)
		}
		defer stmt.Close()

		for _, s := range settlements {
			if _, err := stmt.ExecContext(ctx, contractID, s.Date.Format(domain.DateLayout), s.Settle); err != nil {
				return fmt.Errorf("failed to insert settlement %s %s: %w", contractID, s.Date.Format(domain.DateLayout), err)
			}
		}
		return nil
	})
}

// Symbols returns the distinct root symbols in the store.
func (r *Repository) Symbols(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT name FROM contracts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query symbols: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Package export writes archived scan snapshots to spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/internal/modules/archive"
	"github.com/aristath/spreadscan/internal/modules/spreads"
)

const maxSheetName = 31

var baseColumns = []string{"aggregate_id", "plot_id", "date", "days_listed", "settle", "vol", "beta", "r_2", "m_tick"}

// Columns returns the header row: the latest-row columns followed by mean, stdev and
// median of every statistic.
func Columns() []string {
	cols := append([]string{}, baseColumns...)
	for _, name := range spreads.StatNames {
		cols = append(cols, string(name)+"_mean", string(name)+"_stdev", string(name)+"_median")
	}
	return cols
}

// WriteXLSX writes one sheet per snapshot, one row per match.
func WriteXLSX(w io.Writer, snaps []archive.Snapshot) error {
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]int)
	for i, snap := range snaps {
		sheet := sheetName(snap.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
		}

		if err := writeSheet(f, sheet, snap); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, snap archive.Snapshot) error {
	header := Columns()
	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", sheet, err)
	}

	for i, m := range snap.Matches {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := matchRow(m)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i+2, sheet, err)
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header of %s: %w", sheet, err)
	}

	return nil
}

func matchRow(m archive.MatchSnapshot) []interface{} {
	row := []interface{}{m.AggregateID}
	if l := m.Latest; l != nil {
		row = append(row, l.PlotID, l.Date.Format(domain.DateLayout), l.DaysListed, l.Settle,
			optional(l.Vol), optional(l.Beta), optional(l.R2), optional(l.MTick))
	} else {
		row = append(row, nil, nil, nil, nil, nil, nil, nil, nil)
	}

	stats := make(map[string]archive.StatSummary, len(m.Stats))
	for _, st := range m.Stats {
		stats[st.Name] = st
	}
	for _, name := range spreads.StatNames {
		st, ok := stats[string(name)]
		if !ok {
			row = append(row, nil, nil, nil)
			continue
		}
		row = append(row, st.Mean, st.StdDev, st.Median)
	}
	return row
}

func optional(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

// sheetName strips characters Excel forbids, truncates to the length limit and
// suffixes repeated names.
func sheetName(name string, used map[string]int) string {
	clean := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if clean == "" {
		clean = "scan"
	}
	if len(clean) > maxSheetName {
		clean = clean[:maxSheetName]
	}

	used[clean]++
	if n := used[clean]; n > 1 {
		suffix := fmt.Sprintf("_%d", n)
		if len(clean)+len(suffix) > maxSheetName {
			clean = clean[:maxSheetName-len(suffix)]
		}
		clean += suffix
	}
	return clean
}

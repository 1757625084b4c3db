// Package archive persists scan results as msgpack snapshots on local disk and,
// optionally, in S3-compatible object storage.
package archive

import (
	"time"

	"github.com/aristath/spreadscan/internal/modules/legs"
	"github.com/aristath/spreadscan/internal/modules/scan"
	"github.com/aristath/spreadscan/internal/modules/spreads"
)

// Snapshot is the archived form of one scan run.
type Snapshot struct {
	RunID        string          `msgpack:"run_id" json:"run_id"`
	Name         string          `msgpack:"name" json:"name"`
	Contract     string          `msgpack:"contract" json:"contract"`
	Type         string          `msgpack:"type" json:"type"`
	Start        time.Time       `msgpack:"start" json:"start"`
	End          time.Time       `msgpack:"end" json:"end"`
	StartedAt    time.Time       `msgpack:"started_at" json:"started_at"`
	Combinations int             `msgpack:"combinations" json:"combinations"`
	Matches      []MatchSnapshot `msgpack:"matches" json:"matches"`
}

// MatchSnapshot is one passing spread set reduced to its latest row and summaries.
type MatchSnapshot struct {
	AggregateID string          `msgpack:"aggregate_id" json:"aggregate_id"`
	Legs        []legs.LegValue `msgpack:"legs" json:"legs"`
	PlotIDs     []string        `msgpack:"plot_ids" json:"plot_ids"`
	Latest      *LatestRow      `msgpack:"latest,omitempty" json:"latest,omitempty"`
	Stats       []StatSummary   `msgpack:"stats" json:"stats"`
}

// LatestRow is the most recent row of a live set.
type LatestRow struct {
	Date       time.Time `msgpack:"date" json:"date"`
	PlotID     string    `msgpack:"plot_id" json:"plot_id"`
	Settle     float64   `msgpack:"settle" json:"settle"`
	DaysListed int       `msgpack:"days_listed" json:"days_listed"`
	Vol        *float64  `msgpack:"vol,omitempty" json:"vol,omitempty"`
	Beta       *float64  `msgpack:"beta,omitempty" json:"beta,omitempty"`
	R2         *float64  `msgpack:"r_2,omitempty" json:"r_2,omitempty"`
	MTick      *float64  `msgpack:"m_tick,omitempty" json:"m_tick,omitempty"`
}

// StatSummary is the distribution summary of one statistic.
type StatSummary struct {
	Name   string  `msgpack:"name" json:"name"`
	Count  int     `msgpack:"count" json:"count"`
	Mean   float64 `msgpack:"mean" json:"mean"`
	StdDev float64 `msgpack:"stdev" json:"stdev"`
	Median float64 `msgpack:"median" json:"median"`
}

// NewSnapshot flattens a scan result.
func NewSnapshot(res *scan.Result) Snapshot {
	snap := Snapshot{
		RunID:        res.RunID,
		Name:         res.Name,
		Contract:     res.Contract,
		Type:         string(res.Type),
		Start:        res.Start,
		End:          res.End,
		StartedAt:    res.StartedAt,
		Combinations: res.Combinations,
		Matches:      make([]MatchSnapshot, 0, len(res.Matches)),
	}

	for _, m := range res.Matches {
		ms := MatchSnapshot{AggregateID: m.AggregateID, Legs: m.Spec.Legs}
		if m.Set != nil {
			ms.PlotIDs = m.Set.PlotIDs()
			if row, ok := m.Set.Latest(); ok {
				ms.Latest = latestRow(row)
			}
			for _, name := range spreads.StatNames {
				if st, ok := m.Set.Stat(name); ok {
					ms.Stats = append(ms.Stats, StatSummary{
						Name:   string(st.Name),
						Count:  st.Count,
						Mean:   st.Mean,
						StdDev: st.StdDev,
						Median: st.Median,
					})
				}
			}
		}
		snap.Matches = append(snap.Matches, ms)
	}

	return snap
}

func latestRow(r *spreads.Row) *LatestRow {
	return &LatestRow{
		Date:       r.Date,
		PlotID:     r.PlotID,
		Settle:     r.Settle,
		DaysListed: r.DaysListed,
		Vol:        r.Vol,
		Beta:       r.Beta,
		R2:         r.R2,
		MTick:      r.MTick,
	}
}

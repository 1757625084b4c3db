package spreads

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/aristath/spreadscan/pkg/formulas"
)

// StatName names a per-row statistic.
type StatName string

const (
	StatSettle StatName = "settle"
	StatVol    StatName = "vol"
	StatBeta   StatName = "beta"
	StatR2     StatName = "r_2"
	StatMTick  StatName = "m_tick"
)

// StatNames lists every supported statistic.
var StatNames = []StatName{StatSettle, StatVol, StatBeta, StatR2, StatMTick}

// ParseStat validates a statistic name.
func ParseStat(s string) (StatName, error) {
	name := StatName(strings.ToLower(strings.TrimSpace(s)))
	for _, n := range StatNames {
		if n == name {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown statistic %q", s)
}

// BucketPoint is the average of a statistic over rows sharing a days-listed value.
type BucketPoint struct {
	DaysListed int     `json:"days_listed"`
	Value      float64 `json:"value"`
}

// Stat is the summary of one statistic over a spread set. Mean and StdDev are taken
// over every non-null row value; Median is taken over the days-listed bucketed series.
type Stat struct {
	Name   StatName      `json:"name"`
	Count  int           `json:"count"`
	Mean   float64       `json:"mean"`
	StdDev float64       `json:"stdev"`
	Median float64       `json:"median"`
	Series []BucketPoint `json:"series"`
}

// Stat returns the summary of a computed statistic.
func (s *SpreadSet) Stat(name StatName) (*Stat, bool) {
	st, ok := s.stats[name]
	return st, ok
}

// Stats returns every computed summary.
func (s *SpreadSet) Stats() map[StatName]*Stat {
	return s.stats
}

// AddStats computes the requested statistics. The settle baseline is always computed
// first since its median anchors m_tick. front is the reference front-month series used
// by beta and r_2; those statistics stay empty without it.
func (s *SpreadSet) AddStats(requested []StatName, front []domain.FrontMonthRow) {
	s.summarize(StatSettle)

	groups := s.groups()
	regressed := false

	for _, name := range requested {
		if _, done := s.stats[name]; done {
			continue
		}

		switch name {
		case StatVol:
			s.addVolatility(groups)
		case StatBeta, StatR2:
			if !regressed {
				s.addRegression(groups, front)
				regressed = true
			}
		case StatMTick:
			s.addMedianTick(groups, s.stats[StatSettle].Median)
		default:
			continue
		}

		s.summarize(name)
	}
}

// groups partitions row indexes by concrete binding, keeping date order within each group.
func (s *SpreadSet) groups() [][]int {
	index := make(map[string]int)
	var out [][]int
	for i, r := range s.rows {
		g, ok := index[r.PlotID]
		if !ok {
			g = len(out)
			index[r.PlotID] = g
			out = append(out, nil)
		}
		out[g] = append(out[g], i)
	}
	return out
}

// addVolatility stores the windowed standard deviation of settlements once the window is full.
func (s *SpreadSet) addVolatility(groups [][]int) {
	for _, g := range groups {
		settles := make([]float64, len(g))
		for i, idx := range g {
			settles[i] = s.rows[idx].Settle
		}

		wv := formulas.NewWindowVariance(MAPeriods)
		for i := range settles {
			v := wv.Next(settles, i)
			if i+1 < MAPeriods {
				continue
			}
			s.rows[g[i]].set(StatVol, math.Sqrt(math.Max(v, 0)))
		}
	}
}

// addRegression regresses spread changes on front-month changes over the trailing window,
// aligned by date. Dates missing from the front-month series are skipped.
func (s *SpreadSet) addRegression(groups [][]int, front []domain.FrontMonthRow) {
	frontChange := make(map[time.Time]float64, len(front))
	for _, f := range front {
		if f.Change != nil {
			frontChange[f.Date] = *f.Change
		}
	}

	for _, g := range groups {
		var xs, ys []float64
		var targets []int
		for _, idx := range g {
			r := &s.rows[idx]
			if r.Change == nil {
				continue
			}
			x, ok := frontChange[r.Date]
			if !ok {
				continue
			}
			xs = append(xs, x)
			ys = append(ys, *r.Change)
			targets = append(targets, idx)
		}

		wr := formulas.NewWindowRegression(MAPeriods)
		for i := range xs {
			fit := wr.Next(xs, ys, i)
			if fit.HasBeta {
				s.rows[targets[i]].set(StatBeta, fit.Beta)
			}
			if fit.HasR2 {
				s.rows[targets[i]].set(StatR2, fit.R2)
			}
		}
	}
}

// addMedianTick measures whether spreads tick toward (+1) or away from (-1) the median
// settlement. Ticks are averaged per days-listed value, smoothed with a trailing moving
// average over the days-listed ordered sequence and written back to every row sharing
// that days-listed value.
func (s *SpreadSet) addMedianTick(groups [][]int, median float64) {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[int]*bucket)

	for _, g := range groups {
		for t := 1; t < len(g); t++ {
			r := s.rows[g[t]]
			if r.Change == nil {
				continue
			}
			product := *r.Change * (median - s.rows[g[t-1]].Settle)
			if product == 0 {
				continue
			}

			b, ok := buckets[r.DaysListed]
			if !ok {
				b = &bucket{}
				buckets[r.DaysListed] = b
			}
			b.sum += formulas.Sign(product)
			b.count++
		}
	}

	days := make([]int, 0, len(buckets))
	for dl := range buckets {
		days = append(days, dl)
	}
	sort.Ints(days)

	averages := make([]float64, len(days))
	for i, dl := range days {
		averages[i] = buckets[dl].sum / float64(buckets[dl].count)
	}

	smoothed := make(map[int]float64, len(days))
	wm := formulas.NewWindowMean(MAPeriods)
	for i, dl := range days {
		smoothed[dl] = wm.Next(averages, i)
	}

	for i := range s.rows {
		if v, ok := smoothed[s.rows[i].DaysListed]; ok {
			s.rows[i].set(StatMTick, v)
		}
	}
}

// summarize computes the global mean and deviation of a statistic plus its
// days-listed bucketed series and that series' median.
func (s *SpreadSet) summarize(name StatName) {
	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[int]*bucket)
	var values []float64

	for i := range s.rows {
		v, ok := s.rows[i].Value(name)
		if !ok || !formulas.Finite(v) {
			continue
		}
		values = append(values, v)

		dl := s.rows[i].DaysListed
		b, exists := buckets[dl]
		if !exists {
			b = &bucket{}
			buckets[dl] = b
		}
		b.sum += v
		b.count++
	}

	st := &Stat{Name: name, Count: len(values)}
	st.Mean, st.StdDev = formulas.MeanStdDev(values)

	st.Series = make([]BucketPoint, 0, len(buckets))
	for dl, b := range buckets {
		st.Series = append(st.Series, BucketPoint{DaysListed: dl, Value: b.sum / float64(b.count)})
	}
	sort.Slice(st.Series, func(i, j int) bool {
		return st.Series[i].DaysListed < st.Series[j].DaysListed
	})

	bucketed := make([]float64, len(st.Series))
	for i, p := range st.Series {
		bucketed[i] = p.Value
	}
	st.Median = formulas.Median(bucketed)

	s.stats[name] = st
}

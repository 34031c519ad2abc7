// Package stats implements the Statistics Aggregator (spec §4.6):
// rank-indexed counters for both the fingerprint-only (ja) and combined
// (ja_comb) identification modes, plus the derived summary metrics.
package stats

import (
	"sync"

	flynn "github.com/montanaflynn/stats"
)

// ModeStats accumulates raw counters for one identification mode.
type ModeStats struct {
	Correct             []int
	Incorrect           int
	EmptyCandidates     int
	LenOfCandidates     []int
	EmptyJA             int
	PureContext         int
	ContextUsingWholeDB int
}

func newModeStats(k int) ModeStats {
	return ModeStats{Correct: make([]int, k)}
}

// Total returns the number of focal rows this mode has processed.
func (m ModeStats) Total() int {
	n := m.Incorrect + m.EmptyCandidates
	for _, c := range m.Correct {
		n += c
	}
	return n
}

// Derived holds metrics computed from a finalized ModeStats.
type Derived struct {
	OverallAccuracy float64
	PerRankAccuracy []float64
	ErrorRate       float64
	LenMean         float64
	LenMedian       float64
	LenMode         []float64
	LenMin          float64
	LenMax          float64
}

// Derive computes the reported metrics for m (spec §4.6).
func Derive(m ModeStats) Derived {
	total := m.Total()
	d := Derived{PerRankAccuracy: make([]float64, len(m.Correct))}
	if total == 0 {
		return d
	}

	correctSum := 0
	for i, c := range m.Correct {
		d.PerRankAccuracy[i] = float64(c) / float64(total)
		correctSum += c
	}
	d.OverallAccuracy = float64(correctSum) / float64(total)
	d.ErrorRate = float64(m.Incorrect) / float64(total)

	if len(m.LenOfCandidates) == 0 {
		return d
	}
	data := make([]float64, len(m.LenOfCandidates))
	for i, v := range m.LenOfCandidates {
		data[i] = float64(v)
	}
	d.LenMean, _ = flynn.Mean(data)
	d.LenMedian, _ = flynn.Median(data)
	d.LenMode, _ = flynn.Mode(data)
	d.LenMin, _ = flynn.Min(data)
	d.LenMax, _ = flynn.Max(data)
	return d
}

// Report is the finalized statistics for both modes.
type Report struct {
	JA       ModeStats
	JAComb   ModeStats
	JADerived     Derived
	JACombDerived Derived
}

// Aggregator owns the statistics for a single identification run. It is
// exclusively owned and updated by the Context Identifier (spec §3
// ownership rules); the Scorer never touches it.
type Aggregator struct {
	mu     sync.Mutex
	k      int
	ja     ModeStats
	jaComb ModeStats
}

// New returns an Aggregator sized for K-ranked correctness counters.
func New(k int) *Aggregator {
	return &Aggregator{k: k, ja: newModeStats(k), jaComb: newModeStats(k)}
}

// IncEmptyJA records that the fingerprint index itself returned no
// candidates for this focal row, before any pattern-subset fallback is
// attempted. Distinct from IncEmptySubset, which fires only once the
// fingerprint candidates are known and the patterns subset built from
// them turns out empty.
func (a *Aggregator) IncEmptyJA(comb bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pick(comb).EmptyJA++
}

// IncEmptySubset records that the fallback ladder used the whole
// PatternStore because the fingerprint subset was empty.
func (a *Aggregator) IncEmptySubset(comb bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pick(comb).ContextUsingWholeDB++
}

// IncPureContext records that the fallback ladder fell through to the
// complement set.
func (a *Aggregator) IncPureContext(comb bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pick(comb).PureContext++
}

// Update records the outcome of one focal row: the ranked list returned
// by the fallback ladder and the row's true application.
func (a *Aggregator) Update(comb bool, topApps []string, trueApp string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m := a.pick(comb)
	if len(topApps) == 0 {
		m.EmptyCandidates++
		return
	}
	m.LenOfCandidates = append(m.LenOfCandidates, len(topApps))
	rank := indexOf(topApps, trueApp)
	if rank >= 0 && rank < len(m.Correct) {
		m.Correct[rank]++
		return
	}
	m.Incorrect++
}

func (a *Aggregator) pick(comb bool) *ModeStats {
	if comb {
		return &a.jaComb
	}
	return &a.ja
}

func indexOf(list []string, v string) int {
	for i, x := range list {
		if x == v {
			return i
		}
	}
	return -1
}

// Finalize snapshots the accumulated counters and computes derived
// metrics for both modes.
func (a *Aggregator) Finalize() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &Report{
		JA:            a.ja,
		JAComb:        a.jaComb,
		JADerived:     Derive(a.ja),
		JACombDerived: Derive(a.jaComb),
	}
}

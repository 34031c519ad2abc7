// Package identify implements the Context Identifier (spec §4.5): the
// sliding-window driver that shuffles the test sequence deterministically,
// obtains fingerprint candidates, invokes the Similarity Scorer through
// the fallback ladder, and updates statistics.
package identify

import (
	"context"

	"tlsid/domain/fingerprint"
	"tlsid/domain/pattern"
	"tlsid/domain/record"
	apperrors "tlsid/internal/errors"
	"tlsid/internal/logging"
	"tlsid/internal/scoring"
	"tlsid/internal/stats"
)

const component = "identify"

// Config carries the run knobs the identifier needs.
type Config struct {
	Window            int
	TopN              int
	ContextAttributes []string
}

// Identifier drives the main identification loop. It borrows the
// FingerprintIndex and PatternStore read-only and owns the Aggregator
// exclusively (spec §3 ownership rules).
type Identifier struct {
	index *fingerprint.Index
	store pattern.Store
	cfg   Config
	score *scoring.Scorer
	log   *logging.Logger
}

// New constructs an Identifier.
func New(index *fingerprint.Index, store pattern.Store, cfg Config, log *logging.Logger) *Identifier {
	return &Identifier{index: index, store: store, cfg: cfg, score: scoring.New(), log: log}
}

// Run processes every row of the test table in shuffled order and
// returns the finalized statistics. ctx is checked once per focal row;
// a cancellation yields the partial statistics gathered so far (spec §5).
func (id *Identifier) Run(ctx context.Context, test *record.Table) (*stats.Report, error) {
	shuffled := roundRobinShuffle(test)
	agg := stats.New(id.cfg.TopN)

	n := shuffled.Len()
	w := id.cfg.Window
	if w > n {
		w = n
	}

	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			return agg.Finalize(), nil
		default:
		}
		if w == 0 {
			continue
		}

		start := clip(i-w/2, 0, n-w)
		window := windowRecords(shuffled, start, w)
		focal := shuffled.At(i)

		jaCands := id.index.Candidates(fingerprint.FieldPrimary, focal.PrimaryHash)
		combCands := id.index.Combined(focal.PrimaryHash, focal.SessionHash, focal.SNI)

		if len(jaCands) == 0 {
			agg.IncEmptyJA(false)
		}
		if len(combCands) == 0 {
			agg.IncEmptyJA(true)
		}

		jaTop := id.fallback(jaCands, window, agg, false)
		combTop := id.fallback(combCands, window, agg, true)

		if len(jaTop) == 0 {
			id.log.Debugf(component, "%s", string(apperrors.NoCandidatesWarning))
		}
		agg.Update(false, jaTop, focal.App)
		agg.Update(true, combTop, focal.App)
	}

	return agg.Finalize(), nil
}

// fallback implements the fallback ladder of spec §4.5: subset → scored
// subset → complement → whole store.
func (id *Identifier) fallback(cands fingerprint.AppSet, window []record.Record, agg *stats.Aggregator, comb bool) []string {
	subset := id.store.Subset(cands)

	if len(subset) == 0 {
		agg.IncEmptySubset(comb)
		return id.score.TopN(id.store, window, id.cfg.ContextAttributes, id.cfg.TopN)
	}

	if top := id.score.TopN(subset, window, id.cfg.ContextAttributes, id.cfg.TopN); len(top) > 0 {
		return top
	}

	complement := id.store.Complement(subset)
	agg.IncPureContext(comb)
	if top := id.score.TopN(complement, window, id.cfg.ContextAttributes, id.cfg.TopN); len(top) > 0 {
		return top
	}

	return id.score.TopN(id.store, window, id.cfg.ContextAttributes, id.cfg.TopN)
}

func windowRecords(t *record.Table, start, w int) []record.Record {
	out := make([]record.Record, 0, w)
	for i := start; i < start+w; i++ {
		out = append(out, t.At(i))
	}
	return out
}

func clip(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundRobinShuffle reassembles the test table by cycling through
// applications in stable (first-seen) order, taking one whole trace's
// rows from each app per cycle, until every app's trace list is
// exhausted (spec §4.5). This is the only place a test Table is
// reordered; it does not mutate rows.
func roundRobinShuffle(test *record.Table) *record.Table {
	appOrder, appRows := test.GroupByApp()

	traceOrderByApp := make(map[string][]string, len(appOrder))
	traceRows := make(map[string][]int)
	for _, app := range appOrder {
		seen := map[string]struct{}{}
		for _, i := range appRows[app] {
			trace := test.TraceID[i]
			if _, ok := seen[trace]; !ok {
				seen[trace] = struct{}{}
				traceOrderByApp[app] = append(traceOrderByApp[app], trace)
			}
			traceRows[trace] = append(traceRows[trace], i)
		}
	}

	cursor := make(map[string]int, len(appOrder))
	var indices []int
	for {
		progressed := false
		for _, app := range appOrder {
			traces := traceOrderByApp[app]
			pos := cursor[app]
			if pos >= len(traces) {
				continue
			}
			trace := traces[pos]
			indices = append(indices, traceRows[trace]...)
			cursor[app] = pos + 1
			progressed = true
		}
		if !progressed {
			break
		}
	}

	return test.Select(indices)
}

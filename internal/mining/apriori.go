// Package mining implements the per-application Apriori-style frequent
// itemset miner (spec §4.3). Apriori is small and well understood
// enough to implement directly over the transaction list, per the
// "Apriori availability" design note in §9 — no third-party dependency
// is warranted for it.
package mining

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"tlsid/domain/pattern"
	"tlsid/domain/record"
	apperrors "tlsid/internal/errors"
	"tlsid/internal/logging"
)

const component = "mining"

// Config carries the knobs the miner needs from the run configuration.
type Config struct {
	ContextAttributes []string
	MinSupport        float64
	Filters           []pattern.Filter
}

// Mine builds the PatternStore from the training table, mining each
// application's transactions independently. Per-application training is
// one of the two points of safe optional parallelism named in spec §5;
// errgroup bounds it and surfaces the first error, if any (mining itself
// never errors — it reports EmptyPatternWarning instead).
func Mine(ctx context.Context, train *record.Table, cfg Config, log *logging.Logger) (pattern.Store, error) {
	apps, byApp := train.GroupByApp()
	store := make(pattern.Store, len(apps))

	type outcome struct {
		app    string
		table  pattern.Table
		absent bool
	}
	results := make([]outcome, len(apps))

	g, gctx := errgroup.WithContext(ctx)
	for i, app := range apps {
		i, app := i, app
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			idxs := byApp[app]
			if len(idxs) == 0 {
				log.Warnf(component, "%s", string(apperrors.EmptyTrainingWarning)+": "+app)
				results[i] = outcome{app: app, absent: true}
				return nil
			}
			table := mineApp(train, idxs, cfg)
			if len(table) == 0 {
				log.Warnf(component, "%s", string(apperrors.EmptyPatternWarning)+": "+app)
			}
			results[i] = outcome{app: app, table: table}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, r := range results {
		if r.absent {
			continue
		}
		store[r.app] = r.table
	}
	return store, nil
}

// mineApp mines one application's transactions and returns its filtered
// PatternTable.
func mineApp(train *record.Table, idxs []int, cfg Config) pattern.Table {
	transactions := make([][]string, 0, len(idxs))
	for _, i := range idxs {
		transactions = append(transactions, train.At(i).Tokens(cfg.ContextAttributes))
	}

	itemsets := frequentItemsets(transactions, cfg.MinSupport)
	sort.SliceStable(itemsets, func(i, j int) bool {
		return itemsets[i].Support > itemsets[j].Support
	})
	return pattern.ApplyFilters(itemsets, cfg.Filters)
}

// frequentItemsets runs level-wise Apriori over string-token
// transactions and returns every itemset (of any length) meeting
// minSupport, deduplicated by identity.
func frequentItemsets(transactions [][]string, minSupport float64) []pattern.Itemset {
	n := len(transactions)
	if n == 0 {
		return nil
	}

	txSets := make([]map[string]struct{}, n)
	for i, tx := range transactions {
		set := make(map[string]struct{}, len(tx))
		for _, tok := range tx {
			set[tok] = struct{}{}
		}
		txSets[i] = set
	}

	// Level 1: count distinct single tokens.
	counts := map[string]int{}
	for _, set := range txSets {
		for tok := range set {
			counts[tok]++
		}
	}

	var level [][]string
	seen := map[string]struct{}{}
	var results []pattern.Itemset
	for tok, c := range counts {
		support := float64(c) / float64(n)
		if support >= minSupport {
			level = append(level, []string{tok})
		}
	}
	sort.Slice(level, func(i, j int) bool { return level[i][0] < level[j][0] })

	addResult := func(tokens []string, support float64) {
		item := pattern.New(tokens, support)
		if _, dup := seen[item.Key()]; dup {
			return
		}
		seen[item.Key()] = struct{}{}
		results = append(results, item)
	}

	for _, tokens := range level {
		addResult(tokens, countSupport(txSets, tokens, n))
	}

	for len(level) > 0 {
		candidates := joinCandidates(level)
		var next [][]string
		for _, cand := range candidates {
			support := countSupport(txSets, cand, n)
			if support >= minSupport {
				next = append(next, cand)
				addResult(cand, support)
			}
		}
		level = next
	}

	return results
}

// countSupport returns the fraction of transactions containing every
// token in itemset.
func countSupport(txSets []map[string]struct{}, itemset []string, n int) float64 {
	count := 0
	for _, set := range txSets {
		if containsAll(set, itemset) {
			count++
		}
	}
	return float64(count) / float64(n)
}

func containsAll(set map[string]struct{}, tokens []string) bool {
	for _, t := range tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// joinCandidates generates level-(k+1) candidates from sorted,
// deduplicated level-k itemsets by joining pairs sharing a (k-1)-token
// prefix, the classic Apriori candidate-generation step.
func joinCandidates(level [][]string) [][]string {
	if len(level) == 0 {
		return nil
	}
	k := len(level[0])
	seen := map[string]struct{}{}
	var out [][]string
	for i := 0; i < len(level); i++ {
		for j := i + 1; j < len(level); j++ {
			a, b := level[i], level[j]
			if k > 1 && !samePrefix(a, b, k-1) {
				continue
			}
			merged := mergeSorted(a, b)
			if len(merged) != k+1 {
				continue
			}
			key := joinKey(merged)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, merged)
		}
	}
	return out
}

func samePrefix(a, b []string, length int) bool {
	for i := 0; i < length; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func mergeSorted(a, b []string) []string {
	uniq := map[string]struct{}{}
	for _, t := range a {
		uniq[t] = struct{}{}
	}
	for _, t := range b {
		uniq[t] = struct{}{}
	}
	out := make([]string, 0, len(uniq))
	for t := range uniq {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func joinKey(tokens []string) string {
	key := ""
	for _, t := range tokens {
		key += t + "\x1f"
	}
	return key
}

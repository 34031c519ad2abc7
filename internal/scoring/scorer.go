// Package scoring implements the Similarity Scorer (spec §4.4): given a
// candidate subset of pattern tables and a context window, it returns
// the top-N applications by composite jaccard+idf+subset-bonus score,
// min-max normalized.
package scoring

import (
	"math"
	"sort"

	"tlsid/domain/pattern"
	"tlsid/domain/record"
)

// Scorer is stateless; it holds no mutable fields, so the identifier
// (not the scorer) owns statistics, per the "break the cycle" design
// note in spec §9.
type Scorer struct{}

// New returns a Scorer.
func New() *Scorer { return &Scorer{} }

// TopN scores every application in patterns against window and returns
// up to topN application names, highest normalized score first.
func (s *Scorer) TopN(patterns pattern.Store, window []record.Record, contextAttrs []string, topN int) []string {
	if len(patterns) == 0 {
		return nil
	}

	tlsSet := buildTLSSet(window, contextAttrs)
	docFreq := documentFrequency(patterns)
	numPatterns := float64(len(patterns))

	appsOrder := sortedApps(patterns)
	scores := make(map[string]float64, len(appsOrder))
	for _, app := range appsOrder {
		sc := scoreApp(patterns[app], tlsSet, docFreq, numPatterns)
		if sc > 0 {
			scores[app] = sc
		}
	}
	if len(scores) == 0 {
		return nil
	}

	normalized := minMaxNormalize(scores)

	type ranked struct {
		app   string
		score float64
	}
	var list []ranked
	for _, app := range appsOrder {
		if sc, ok := normalized[app]; ok {
			list = append(list, ranked{app: app, score: sc})
		}
	}
	// appsOrder is already the stable (sorted) iteration order, so a
	// stable sort on score alone preserves that order as the tie-break.
	sort.SliceStable(list, func(i, j int) bool { return list[i].score > list[j].score })

	if topN > len(list) {
		topN = len(list)
	}
	out := make([]string, 0, topN)
	for i := 0; i < topN; i++ {
		out = append(out, list[i].app)
	}
	return out
}

func scoreApp(table pattern.Table, tlsSet map[string]struct{}, docFreq map[string]int, numPatterns float64) float64 {
	var total float64
	for _, item := range table {
		if item.Len() == 0 {
			continue
		}
		idf := idfOf(item.Key(), docFreq, numPatterns)
		total += (pattern.Jaccard(item.Set(), tlsSet) + 1) * idf
		if item.SubsetOf(tlsSet) {
			total += float64(item.Len()) * 10 * idf * (item.NormalizedSupport + 1)
		}
	}
	return total
}

func idfOf(key string, docFreq map[string]int, numPatterns float64) float64 {
	df := docFreq[key]
	if df == 0 {
		return 0
	}
	return math.Log1p(numPatterns / float64(df))
}

// documentFrequency counts, per itemset identity, how many applications'
// tables contain it at least once (duplicates within one app's table
// count once).
func documentFrequency(patterns pattern.Store) map[string]int {
	df := map[string]int{}
	for _, table := range patterns {
		seen := map[string]struct{}{}
		for _, item := range table {
			if item.Len() == 0 {
				continue
			}
			if _, ok := seen[item.Key()]; ok {
				continue
			}
			seen[item.Key()] = struct{}{}
			df[item.Key()]++
		}
	}
	return df
}

// buildTLSSet is the set of all configured-attribute values observed
// across the window's records.
func buildTLSSet(window []record.Record, contextAttrs []string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, r := range window {
		for _, tok := range r.Tokens(contextAttrs) {
			set[tok] = struct{}{}
		}
	}
	return set
}

func sortedApps(patterns pattern.Store) []string {
	out := make([]string, 0, len(patterns))
	for app := range patterns {
		out = append(out, app)
	}
	sort.Strings(out)
	return out
}

// minMaxNormalize scales scores to [0,1]. Identical scores all map to
// 0.5 (spec §4.4, §8 law 7).
func minMaxNormalize(scores map[string]float64) map[string]float64 {
	min, max := minMax(scores)
	out := make(map[string]float64, len(scores))
	if min == max {
		for app := range scores {
			out[app] = 0.5
		}
		return out
	}
	for app, sc := range scores {
		out[app] = (sc - min) / (max - min)
	}
	return out
}

func minMax(scores map[string]float64) (min, max float64) {
	first := true
	for _, sc := range scores {
		if first {
			min, max = sc, sc
			first = false
			continue
		}
		if sc < min {
			min = sc
		}
		if sc > max {
			max = sc
		}
	}
	return min, max
}

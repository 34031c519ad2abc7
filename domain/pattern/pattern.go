// Package pattern holds the frequent-itemset data model shared by the
// miner and the scorer: Itemset, the per-application PatternTable, and
// the PatternStore mapping applications to their tables (spec §3, §4.3).
package pattern

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Itemset is an unordered set of context tokens annotated with its
// observed training support.
type Itemset struct {
	Tokens            []string
	Support           float64
	NormalizedSupport float64
}

// New builds an Itemset from tokens (deduplicated, sorted for a stable
// identity) and a support fraction, deriving NormalizedSupport per the
// invariant in spec §3: normalized_support = log(1 + support).
func New(tokens []string, support float64) Itemset {
	uniq := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		uniq[t] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for t := range uniq {
		sorted = append(sorted, t)
	}
	sort.Strings(sorted)
	return Itemset{
		Tokens:            sorted,
		Support:           support,
		NormalizedSupport: math.Log1p(support),
	}
}

// Key is the deduplication identity: two itemsets with the same token
// set collide, regardless of support.
func (i Itemset) Key() string {
	return strings.Join(i.Tokens, "\x1f")
}

// Len is the itemset's cardinality.
func (i Itemset) Len() int { return len(i.Tokens) }

// Set returns the tokens as a lookup set.
func (i Itemset) Set() map[string]struct{} {
	s := make(map[string]struct{}, len(i.Tokens))
	for _, t := range i.Tokens {
		s[t] = struct{}{}
	}
	return s
}

// SubsetOf reports whether every token in i is present in other. An
// empty itemset is never reported as a subset.
func (i Itemset) SubsetOf(other map[string]struct{}) bool {
	if len(i.Tokens) == 0 {
		return false
	}
	for _, t := range i.Tokens {
		if _, ok := other[t]; !ok {
			return false
		}
	}
	return true
}

// Jaccard computes |A∩B| / |A∪B|, 0 when both are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Operator is a cardinality comparison used by a pattern filter.
type Operator string

const (
	OpEq Operator = "=="
	OpNe Operator = "!="
	OpLt Operator = "<"
	OpLe Operator = "<="
	OpGt Operator = ">"
	OpGe Operator = ">="
)

// Filter keeps the first Head itemsets (in descending-support order)
// whose cardinality satisfies Operator against Length (spec §4.3).
type Filter struct {
	Operator Operator
	Length   int
	Head     int
}

// Matches reports whether length satisfies the filter's predicate.
func (f Filter) Matches(length int) bool {
	switch f.Operator {
	case OpEq:
		return length == f.Length
	case OpNe:
		return length != f.Length
	case OpLt:
		return length < f.Length
	case OpLe:
		return length <= f.Length
	case OpGt:
		return length > f.Length
	case OpGe:
		return length >= f.Length
	default:
		return false
	}
}

// Table is a per-application PatternTable: the ordered, filtered
// itemset list produced by mining. Entries may repeat across distinct
// filters on purpose (spec §4.3): that duplication biases scoring by
// coverage, so Table is a plain slice, not a set.
type Table []Itemset

// ApplyFilters concatenates, in filter order, the first Head entries of
// sorted (already support-descending, deduplicated by Key) that satisfy
// each filter's predicate.
func ApplyFilters(sorted []Itemset, filters []Filter) Table {
	var out Table
	for _, f := range filters {
		kept := 0
		for _, item := range sorted {
			if kept >= f.Head {
				break
			}
			if f.Matches(item.Len()) {
				out = append(out, item)
				kept++
			}
		}
	}
	return out
}

// Store maps application name to its PatternTable.
type Store map[string]Table

// Subset returns the entries of s restricted to apps present in both s
// and apps.
func (s Store) Subset(apps map[string]struct{}) Store {
	out := make(Store, len(apps))
	for app := range apps {
		if t, ok := s[app]; ok {
			out[app] = t
		}
	}
	return out
}

// Complement returns the entries of s whose application is not in sub.
func (s Store) Complement(sub Store) Store {
	out := make(Store, len(s))
	for app, t := range s {
		if _, excluded := sub[app]; !excluded {
			out[app] = t
		}
	}
	return out
}

// String implements fmt.Stringer for debug logging.
func (f Filter) String() string {
	return fmt.Sprintf("%s%d/head%d", f.Operator, f.Length, f.Head)
}

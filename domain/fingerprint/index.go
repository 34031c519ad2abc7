// Package fingerprint implements the per-key inverted index used for
// direct fingerprint lookup (spec §4.2): primary hash, session hash,
// and SNI each map to the set of applications observed with that value
// during training.
package fingerprint

import (
	"sort"

	"tlsid/domain/record"
)

// Field identifies one of the three indexed columns.
type Field string

const (
	FieldPrimary Field = "primary_hash"
	FieldSession Field = "session_hash"
	FieldSNI     Field = "sni"
)

// AppSet is a deduplicated, order-independent set of application names.
type AppSet map[string]struct{}

// NewAppSet builds a set from a slice.
func NewAppSet(apps ...string) AppSet {
	s := make(AppSet, len(apps))
	for _, a := range apps {
		s[a] = struct{}{}
	}
	return s
}

// Sorted returns the set's members in deterministic (lexical) order.
func (s AppSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the intersection of non-empty sets only. Per spec
// §4.2, an empty set means "no evidence from this field", not "rule
// everything out" — so it is excluded from the intersection rather than
// collapsing the result to empty.
func Intersect(sets ...AppSet) AppSet {
	var nonEmpty []AppSet
	for _, s := range sets {
		if len(s) > 0 {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) == 0 {
		return AppSet{}
	}
	out := make(AppSet, len(nonEmpty[0]))
	for app := range nonEmpty[0] {
		out[app] = struct{}{}
	}
	for _, s := range nonEmpty[1:] {
		for app := range out {
			if _, ok := s[app]; !ok {
				delete(out, app)
			}
		}
	}
	return out
}

// Index is the three-field inverted fingerprint index. Built once from
// training records; read-only thereafter.
type Index struct {
	byValue map[Field]map[string]AppSet
}

// Build constructs the index from the training table. Absent field
// values are never inserted, per the invariant in spec §3.
func Build(train *record.Table) *Index {
	idx := &Index{byValue: map[Field]map[string]AppSet{
		FieldPrimary: {},
		FieldSession: {},
		FieldSNI:     {},
	}}
	for i := 0; i < train.Len(); i++ {
		app := train.App[i]
		idx.insert(FieldPrimary, train.PrimaryHash[i], app)
		idx.insert(FieldSession, train.SessionHash[i], app)
		idx.insert(FieldSNI, train.SNI[i], app)
	}
	return idx
}

func (idx *Index) insert(field Field, v record.FieldValue, app string) {
	if !v.IsPresent() {
		return
	}
	byVal := idx.byValue[field]
	set, ok := byVal[v.String()]
	if !ok {
		set = AppSet{}
		byVal[v.String()] = set
	}
	set[app] = struct{}{}
}

// Candidates returns the apps observed with value for field. An absent
// value or an unknown value both yield the empty set.
func (idx *Index) Candidates(field Field, v record.FieldValue) AppSet {
	if !v.IsPresent() {
		return AppSet{}
	}
	set, ok := idx.byValue[field][v.String()]
	if !ok {
		return AppSet{}
	}
	out := make(AppSet, len(set))
	for a := range set {
		out[a] = struct{}{}
	}
	return out
}

// Combined intersects the non-empty per-field candidate sets for
// primary hash, session hash, and SNI. If all three are empty, the
// result is empty.
func (idx *Index) Combined(primary, session, sni record.FieldValue) AppSet {
	return Intersect(
		idx.Candidates(FieldPrimary, primary),
		idx.Candidates(FieldSession, session),
		idx.Candidates(FieldSNI, sni),
	)
}

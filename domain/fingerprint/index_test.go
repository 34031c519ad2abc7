package fingerprint

import (
	"testing"

	"tlsid/domain/record"
)

func buildTable(rows ...record.Record) *record.Table {
	t := record.NewTable()
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

// S1 (pure fingerprint hit): two apps with distinct primary hashes; a
// test row matching A's hash must only yield A.
func TestIndex_Candidates_PureFingerprintHit(t *testing.T) {
	train := buildTable(
		record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Present("h1"), SessionHash: record.Present("k1"), SNI: record.Present("example.com")},
		record.Record{App: "B", TraceID: "t2", PrimaryHash: record.Present("h2"), SessionHash: record.Present("k1"), SNI: record.Present("example.com")},
	)
	idx := Build(train)

	cands := idx.Candidates(FieldPrimary, record.Present("h1"))
	if len(cands) != 1 {
		t.Fatalf("expected exactly one candidate, got %v", cands)
	}
	if _, ok := cands["A"]; !ok {
		t.Fatalf("expected candidate A, got %v", cands)
	}

	comb := idx.Combined(record.Present("h1"), record.Present("k1"), record.Present("example.com"))
	if len(comb) != 1 {
		t.Fatalf("expected exactly one combined candidate, got %v", comb)
	}
	if _, ok := comb["A"]; !ok {
		t.Fatalf("expected combined candidate A, got %v", comb)
	}
}

// Law 1: candidates(f,v) returns only apps observed with v in training.
func TestIndex_Candidates_OnlyObservedApps(t *testing.T) {
	train := buildTable(
		record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Present("h1")},
		record.Record{App: "B", TraceID: "t2", PrimaryHash: record.Present("h2")},
	)
	idx := Build(train)

	cands := idx.Candidates(FieldPrimary, record.Present("h1"))
	if _, ok := cands["B"]; ok {
		t.Fatalf("B must not appear for a hash it never had: %v", cands)
	}

	unknown := idx.Candidates(FieldPrimary, record.Present("never-seen"))
	if len(unknown) != 0 {
		t.Fatalf("unknown value must yield empty set, got %v", unknown)
	}

	absent := idx.Candidates(FieldPrimary, record.Absent())
	if len(absent) != 0 {
		t.Fatalf("absent value must yield empty set, got %v", absent)
	}
}

// Law 2: combined(p,s,n) ⊆ candidates(primary,p) whenever primary is
// present and non-empty.
func TestIndex_Combined_SubsetOfPrimary(t *testing.T) {
	train := buildTable(
		record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Present("h1"), SessionHash: record.Present("k1"), SNI: record.Present("a.com")},
		record.Record{App: "B", TraceID: "t2", PrimaryHash: record.Present("h1"), SessionHash: record.Present("k2"), SNI: record.Present("b.com")},
	)
	idx := Build(train)

	primary := idx.Candidates(FieldPrimary, record.Present("h1"))
	comb := idx.Combined(record.Present("h1"), record.Present("k1"), record.Present("a.com"))

	for app := range comb {
		if _, ok := primary[app]; !ok {
			t.Fatalf("combined result %v not subset of primary result %v", comb, primary)
		}
	}
}

// Intersect treats empty sets as "no evidence", not "eliminate everything".
func TestIntersect_EmptySetIsNoEvidence(t *testing.T) {
	a := NewAppSet("X", "Y")
	empty := AppSet{}

	got := Intersect(a, empty)
	if len(got) != 2 {
		t.Fatalf("expected intersection to ignore the empty set, got %v", got)
	}

	gotAllEmpty := Intersect(empty, empty)
	if len(gotAllEmpty) != 0 {
		t.Fatalf("all-empty intersection must be empty, got %v", gotAllEmpty)
	}
}

func TestIndex_Build_AbsentFieldsNeverIndexed(t *testing.T) {
	train := buildTable(
		record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Absent(), SessionHash: record.Present("k1"), SNI: record.Absent()},
	)
	idx := Build(train)

	if len(idx.byValue[FieldPrimary]) != 0 {
		t.Fatalf("absent primary hash must never be indexed: %v", idx.byValue[FieldPrimary])
	}
	if len(idx.byValue[FieldSNI]) != 0 {
		t.Fatalf("absent SNI must never be indexed: %v", idx.byValue[FieldSNI])
	}
	if len(idx.byValue[FieldSession]) != 1 {
		t.Fatalf("present session hash must be indexed: %v", idx.byValue[FieldSession])
	}
}

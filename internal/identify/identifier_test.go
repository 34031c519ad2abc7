package identify

import (
	"context"
	"testing"

	"tlsid/domain/fingerprint"
	"tlsid/domain/pattern"
	"tlsid/domain/record"
	"tlsid/internal/logging"
)

func tbl(rows ...record.Record) *record.Table {
	t := record.NewTable()
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

// S1 (pure fingerprint hit): a test row whose primary hash was only ever
// seen with app A must rank A first in both modes.
func TestIdentifier_S1_PureFingerprintHit(t *testing.T) {
	train := tbl(
		record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Present("h1"), SessionHash: record.Present("k1"), SNI: record.Present("example.com")},
		record.Record{App: "B", TraceID: "t2", PrimaryHash: record.Present("h2"), SessionHash: record.Present("k1"), SNI: record.Present("example.com")},
	)
	index := fingerprint.Build(train)
	store := pattern.Store{
		"A": pattern.Table{pattern.New([]string{"ctx=v"}, 0.9)},
		"B": pattern.Table{pattern.New([]string{"ctx=v"}, 0.9)},
	}

	test := tbl(
		record.Record{App: "A", TraceID: "t3", PrimaryHash: record.Present("h1"), SessionHash: record.Present("k1"), SNI: record.Present("example.com"), Extra: map[string]record.FieldValue{"ctx": record.Present("v")}},
	)

	id := New(index, store, Config{Window: 1, TopN: 1, ContextAttributes: []string{"ctx"}}, logging.Default(false))
	report, err := id.Run(context.Background(), test)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.JA.Correct[0] != 1 {
		t.Fatalf("expected ja rank-1 hit, got %+v", report.JA)
	}
	if report.JAComb.Correct[0] != 1 {
		t.Fatalf("expected ja_comb rank-1 hit, got %+v", report.JAComb)
	}
}

// S3 (empty subset fallback): a test row whose primary hash never
// appeared in training must fall back to the whole PatternStore.
func TestIdentifier_S3_EmptySubsetFallsBackToWholeStore(t *testing.T) {
	train := tbl(
		record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Present("h1")},
	)
	index := fingerprint.Build(train)
	store := pattern.Store{
		"A": pattern.Table{pattern.New([]string{"ctx=v"}, 0.9)},
	}

	test := tbl(
		record.Record{App: "A", TraceID: "t2", PrimaryHash: record.Present("never-seen"), Extra: map[string]record.FieldValue{"ctx": record.Present("v")}},
	)

	id := New(index, store, Config{Window: 1, TopN: 1, ContextAttributes: []string{"ctx"}}, logging.Default(false))
	report, err := id.Run(context.Background(), test)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.JA.ContextUsingWholeDB != 1 {
		t.Fatalf("expected context_using_whole_db to increment once, got %+v", report.JA)
	}
	if report.JA.Correct[0] != 1 {
		t.Fatalf("expected the whole-store fallback to still find A via context, got %+v", report.JA)
	}
}

// S5 (shuffle determinism): apps {A,B,C} with traces
// A:[a1,a2], B:[b1], C:[c1,c2,c3] shuffle to round-robin order by trace.
func TestRoundRobinShuffle_S5_Deterministic(t *testing.T) {
	test := tbl(
		record.Record{App: "A", TraceID: "a1"},
		record.Record{App: "A", TraceID: "a2"},
		record.Record{App: "B", TraceID: "b1"},
		record.Record{App: "C", TraceID: "c1"},
		record.Record{App: "C", TraceID: "c2"},
		record.Record{App: "C", TraceID: "c3"},
	)

	shuffled := roundRobinShuffle(test)
	var traces []string
	for i := 0; i < shuffled.Len(); i++ {
		traces = append(traces, shuffled.At(i).TraceID)
	}

	want := []string{"a1", "b1", "c1", "a2", "c2", "c3"}
	if len(traces) != len(want) {
		t.Fatalf("expected %v, got %v", want, traces)
	}
	for i := range want {
		if traces[i] != want[i] {
			t.Fatalf("expected round-robin order %v, got %v", want, traces)
		}
	}
}

func TestClip(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{5, 0, 10, 5},
		{5, 8, 2, 8}, // degenerate hi < lo clamps to lo
	}
	for _, c := range cases {
		if got := clip(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("clip(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestIdentifier_Run_CancellationYieldsPartialResult(t *testing.T) {
	train := tbl(record.Record{App: "A", TraceID: "t1", PrimaryHash: record.Present("h1")})
	index := fingerprint.Build(train)
	store := pattern.Store{"A": pattern.Table{pattern.New([]string{"ctx=v"}, 0.9)}}

	test := tbl(
		record.Record{App: "A", TraceID: "t2", PrimaryHash: record.Present("h1")},
		record.Record{App: "A", TraceID: "t3", PrimaryHash: record.Present("h1")},
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := New(index, store, Config{Window: 1, TopN: 1, ContextAttributes: []string{"ctx"}}, logging.Default(false))
	report, err := id.Run(ctx, test)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.JA.Total() != 0 {
		t.Fatalf("expected no rows processed after immediate cancellation, got %+v", report.JA)
	}
}

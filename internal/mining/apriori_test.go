package mining

import (
	"context"
	"testing"

	"tlsid/domain/pattern"
	"tlsid/domain/record"
	"tlsid/internal/logging"
)

func buildTrain(rows ...record.Record) *record.Table {
	t := record.NewTable()
	for _, r := range rows {
		t.Append(r)
	}
	return t
}

func appRow(app, trace string, extra map[string]string) record.Record {
	fv := make(map[string]record.FieldValue, len(extra))
	for k, v := range extra {
		fv[k] = record.Present(v)
	}
	return record.Record{App: app, TraceID: trace, Extra: fv}
}

// Law 3: every stored itemset originally had support >= min_support.
func TestMine_OnlyStoresItemsetsAtOrAboveMinSupport(t *testing.T) {
	train := buildTrain(
		appRow("A", "t1", map[string]string{"x": "1", "y": "1"}),
		appRow("A", "t1", map[string]string{"x": "1", "y": "1"}),
		appRow("A", "t1", map[string]string{"x": "1", "y": "2"}),
	)
	cfg := Config{
		ContextAttributes: []string{"x", "y"},
		MinSupport:        0.9,
		Filters:           []pattern.Filter{{Operator: pattern.OpGe, Length: 1, Head: 10}},
	}
	store, err := Mine(context.Background(), train, cfg, logging.Default(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range store["A"] {
		if item.Support < cfg.MinSupport {
			t.Fatalf("stored itemset %v has support %v below min_support %v", item.Tokens, item.Support, cfg.MinSupport)
		}
	}
}

// S4 (no itemsets): min_support = 1.0 with no itemset present in every
// transaction yields an empty table for the app.
func TestMine_S4_NoItemsetsAtMinSupportOne(t *testing.T) {
	train := buildTrain(
		appRow("A", "t1", map[string]string{"x": "1"}),
		appRow("A", "t1", map[string]string{"x": "2"}),
	)
	cfg := Config{
		ContextAttributes: []string{"x"},
		MinSupport:        1.0,
		Filters:           []pattern.Filter{{Operator: pattern.OpGe, Length: 1, Head: 10}},
	}
	store, err := Mine(context.Background(), train, cfg, logging.Default(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store["A"]) != 0 {
		t.Fatalf("expected empty table at min_support=1.0 with no universal token, got %v", store["A"])
	}
}

func TestMine_EmptyTrainingYieldsAbsentApp(t *testing.T) {
	train := buildTrain()
	cfg := Config{ContextAttributes: []string{"x"}, MinSupport: 0.1}
	store, err := Mine(context.Background(), train, cfg, logging.Default(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store) != 0 {
		t.Fatalf("expected no applications in store, got %v", store)
	}
}

func TestFrequentItemsets_DeduplicatesByIdentity(t *testing.T) {
	transactions := [][]string{
		{"a", "b"},
		{"a", "b"},
		{"a", "b", "c"},
	}
	items := frequentItemsets(transactions, 0.5)
	seen := map[string]bool{}
	for _, it := range items {
		if seen[it.Key()] {
			t.Fatalf("duplicate itemset identity %q found in frequentItemsets output", it.Key())
		}
		seen[it.Key()] = true
	}
}

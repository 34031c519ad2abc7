// Package record holds the immutable data model for observed TLS
// connections: the Record tuple and the columnar Table that stores
// training and test rows.
package record

import "sort"

// FieldValue is an explicit optional string. Absent is a distinct state
// from a present-but-empty value never occurs for the fields this
// system tracks (primary hash, session hash, SNI, and context
// attributes); ingest collapses empty CSV cells to Absent.
type FieldValue struct {
	present bool
	value   string
}

// Present wraps v as an observed value.
func Present(v string) FieldValue { return FieldValue{present: true, value: v} }

// Absent represents a missing field.
func Absent() FieldValue { return FieldValue{} }

// IsPresent reports whether the value was observed.
func (f FieldValue) IsPresent() bool { return f.present }

// String returns the observed value, or "" if absent.
func (f FieldValue) String() string { return f.value }

// Token renders the value for pattern mining, preserving missingness as
// a distinct token rather than silently skipping the attribute.
func (f FieldValue) Token(attr string) string {
	if !f.present {
		return attr + "=<missing>"
	}
	return attr + "=" + f.value
}

// Record is one TLS connection observation.
type Record struct {
	App         string
	TraceID     string
	PrimaryHash FieldValue
	SessionHash FieldValue
	SNI         FieldValue
	Extra       map[string]FieldValue
}

// Table is the columnar in-memory Record Store: parallel slices rather
// than a slice of structs, so fields used by hot loops (index build,
// mining) stay compact.
type Table struct {
	App         []string
	TraceID     []string
	PrimaryHash []FieldValue
	SessionHash []FieldValue
	SNI         []FieldValue
	Extra       []map[string]FieldValue
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Append adds r as a new row. Records are never mutated after this.
func (t *Table) Append(r Record) {
	t.App = append(t.App, r.App)
	t.TraceID = append(t.TraceID, r.TraceID)
	t.PrimaryHash = append(t.PrimaryHash, r.PrimaryHash)
	t.SessionHash = append(t.SessionHash, r.SessionHash)
	t.SNI = append(t.SNI, r.SNI)
	t.Extra = append(t.Extra, r.Extra)
}

// Len is the row count.
func (t *Table) Len() int { return len(t.App) }

// At reconstructs the Record at row i.
func (t *Table) At(i int) Record {
	return Record{
		App:         t.App[i],
		TraceID:     t.TraceID[i],
		PrimaryHash: t.PrimaryHash[i],
		SessionHash: t.SessionHash[i],
		SNI:         t.SNI[i],
		Extra:       t.Extra[i],
	}
}

// GroupByTrace returns, in order of first appearance, the distinct
// trace IDs and the row indices belonging to each.
func (t *Table) GroupByTrace() (order []string, rows map[string][]int) {
	rows = make(map[string][]int)
	for i, trace := range t.TraceID {
		if _, seen := rows[trace]; !seen {
			order = append(order, trace)
		}
		rows[trace] = append(rows[trace], i)
	}
	return order, rows
}

// GroupByApp returns, in order of first appearance, the distinct app
// names and the row indices belonging to each.
func (t *Table) GroupByApp() (order []string, rows map[string][]int) {
	rows = make(map[string][]int)
	for i, app := range t.App {
		if _, seen := rows[app]; !seen {
			order = append(order, app)
		}
		rows[app] = append(rows[app], i)
	}
	return order, rows
}

// Select returns a new table built from the given row indices, in the
// given order.
func (t *Table) Select(indices []int) *Table {
	out := NewTable()
	for _, i := range indices {
		out.Append(t.At(i))
	}
	return out
}

// Tokens projects the row's context attributes (in the configured
// order) to mining tokens.
func (r Record) Tokens(attrs []string) []string {
	toks := make([]string, 0, len(attrs))
	for _, a := range attrs {
		toks = append(toks, r.fieldValue(a).Token(a))
	}
	return toks
}

func (r Record) fieldValue(attr string) FieldValue {
	if v, ok := r.Extra[attr]; ok {
		return v
	}
	return Absent()
}

// CanonicalKey is a dedup key for exact-duplicate training rows.
func (r Record) CanonicalKey() string {
	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s := r.App + "\x1f" + r.TraceID + "\x1f" + r.PrimaryHash.String() + "\x1f" + r.SessionHash.String() + "\x1f" + r.SNI.String()
	for _, k := range keys {
		s += "\x1f" + k + "=" + r.Extra[k].String()
	}
	return s
}

// Package ingest implements the Record Store's ingestion and train/test
// split (spec §4.1): reading a semicolon-delimited CSV (or, as an
// enrichment mirroring the teacher's DataReader, an .xlsx workbook),
// dropping DNS-style rows, projecting to the configured context
// attributes, and splitting deterministically per trace.
package ingest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"tlsid/domain/record"
	"tlsid/internal/config"
	apperrors "tlsid/internal/errors"
	"tlsid/internal/logging"
)

const component = "ingest"

// hashColumns describes which CSV columns feed PrimaryHash/SessionHash
// for a given ja_version.
func hashColumns(jaVersion int) (primary, session string) {
	if jaVersion == 3 {
		return "JA3hash", "JA3Shash"
	}
	return "JA4hash", "JA4Shash"
}

// Result holds the deterministic train/test split.
type Result struct {
	Train *record.Table
	Test  *record.Table
}

// Load reads cfg.DatasetPath and produces the train/test split.
func Load(cfg *config.Config, log *logging.Logger) (*Result, error) {
	rows, header, err := readRows(cfg.DatasetPath)
	if err != nil {
		return nil, err
	}
	idx, err := requiredColumns(header, cfg.JAVersion)
	if err != nil {
		return nil, err
	}

	full := record.NewTable()
	primaryCol, sessionCol := hashColumns(cfg.JAVersion)
	for _, row := range rows {
		if get(row, idx, "Type") == "A" {
			continue
		}
		r := record.Record{
			App:         get(row, idx, "AppName"),
			TraceID:     get(row, idx, "Filename"),
			PrimaryHash: fieldOrAbsent(row, idx, primaryCol),
			SessionHash: fieldOrAbsent(row, idx, sessionCol),
			SNI:         fieldOrAbsent(row, idx, "SNI"),
			Extra:       make(map[string]record.FieldValue, len(cfg.ContextAttributes)),
		}
		for _, attr := range cfg.ContextAttributes {
			r.Extra[attr] = fieldOrAbsent(row, idx, attr)
		}
		full.Append(r)
	}

	return split(full, cfg.TestRatio, log), nil
}

func fieldOrAbsent(row []string, idx map[string]int, col string) record.FieldValue {
	v := get(row, idx, col)
	if v == "" {
		return record.Absent()
	}
	return record.Present(v)
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func requiredColumns(header []string, jaVersion int) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	required := []string{"AppName", "Filename", "SNI", "Type"}
	primary, session := hashColumns(jaVersion)
	required = append(required, primary, session)
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, apperrors.Ingest("missing required columns: " + strings.Join(missing, ", "))
	}
	return idx, nil
}

func readRows(path string) (rows [][]string, header []string, err error) {
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		return nil, nil, apperrors.Ingest("dataset file not found: " + path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, apperrors.Ingest("dataset file is empty: " + path)
	}
	if len(rows) < 2 {
		return nil, nil, apperrors.Ingest("dataset file has a header but no data rows: " + path)
	}
	return rows[1:], rows[0], nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Ingest("failed to open dataset file: " + err.Error())
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, apperrors.Ingest("malformed CSV: " + err.Error())
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.Ingest("failed to open workbook: " + err.Error())
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.Ingest("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, apperrors.Ingest("failed to read sheet: " + err.Error())
	}
	return rows, nil
}

// split partitions full per-trace by testRatio (75/25 at the default
// 0.25), deterministically and with no shuffle.
// Single-row trace groups go entirely to training (logged as a
// warning). Training rows are deduplicated exactly.
func split(full *record.Table, testRatio float64, log *logging.Logger) *Result {
	order, byTrace := full.GroupByTrace()

	var trainIdx, testIdx []int
	for _, trace := range order {
		idxs := byTrace[trace]
		if len(idxs) == 1 {
			log.Warnf(component, "trace %q has a single row; assigning it entirely to training", trace)
			trainIdx = append(trainIdx, idxs...)
			continue
		}
		trainCount := int(float64(len(idxs)) * (1 - testRatio))
		if trainCount < 1 {
			trainCount = 1
		}
		if trainCount > len(idxs) {
			trainCount = len(idxs)
		}
		trainIdx = append(trainIdx, idxs[:trainCount]...)
		testIdx = append(testIdx, idxs[trainCount:]...)
	}

	train := dedup(full.Select(trainIdx))
	test := full.Select(testIdx)
	return &Result{Train: train, Test: test}
}

func dedup(t *record.Table) *record.Table {
	seen := make(map[string]struct{}, t.Len())
	out := record.NewTable()
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		k := r.CanonicalKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Append(r)
	}
	return out
}

// Package report writes the optional identification report (spec §6):
// an append-only, semicolon-delimited CSV with a stable header, plus
// two enrichments — a markdown/HTML human summary and an optional
// Postgres run-history sink.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tlsid/internal/config"
	apperrors "tlsid/internal/errors"
	"tlsid/internal/stats"
)

// Row is one report line: one mode (ja or ja_comb) from one run.
type Row struct {
	RunID               string
	IsComb              bool
	ContextAttributes   []string
	PatternFilters      []config.FilterSpec
	MinSupport          float64
	MaxCandidatesLength int
	JAVersion           int
	Mode                stats.ModeStats
	Derived             stats.Derived
}

var header = []string{
	"run_id", "is_comb", "context_attributes", "pattern_filters", "min_support",
	"candidate_size", "ja_version", "correct", "incorrect", "empty_candidates",
	"total", "overall_accuracy", "error_rate", "len_mean", "len_median",
	"len_mode", "len_min", "len_max", "per_rank_counts", "per_rank_fractions",
}

func correctSum(counts []int) int {
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return sum
}

// AppendCSV appends rows to path, writing the header first if the file
// is new. The file is always closed, on every exit path, including
// write errors.
func AppendCSV(path string, rows []Row) (err error) {
	if path == "" {
		return nil
	}
	isNew := false
	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		isNew = true
	}

	f, openErr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if openErr != nil {
		return apperrors.Wrap(openErr, "failed to open report file")
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = apperrors.Wrap(closeErr, "failed to close report file")
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = ';'
	defer w.Flush()

	if isNew {
		if err := w.Write(header); err != nil {
			return apperrors.Wrap(err, "failed to write report header")
		}
	}
	for _, r := range rows {
		if err := w.Write(toRecord(r)); err != nil {
			return apperrors.Wrap(err, "failed to write report row")
		}
	}
	return nil
}

func toRecord(r Row) []string {
	total := r.Mode.Total()
	correctStrs := make([]string, len(r.Mode.Correct))
	fracStrs := make([]string, len(r.Mode.Correct))
	for i, c := range r.Mode.Correct {
		correctStrs[i] = strconv.Itoa(c)
		fracStrs[i] = strconv.FormatFloat(r.Derived.PerRankAccuracy[i], 'f', 6, 64)
	}
	filters := make([]string, len(r.PatternFilters))
	for i, f := range r.PatternFilters {
		filters[i] = fmt.Sprintf("%s%d/head%d", f.Operator, f.Length, f.Head)
	}
	modeStrs := make([]string, len(r.Derived.LenMode))
	for i, m := range r.Derived.LenMode {
		modeStrs[i] = strconv.FormatFloat(m, 'f', 6, 64)
	}

	return []string{
		r.RunID,
		strconv.FormatBool(r.IsComb),
		strings.Join(r.ContextAttributes, ","),
		strings.Join(filters, ","),
		strconv.FormatFloat(r.MinSupport, 'f', 6, 64),
		strconv.Itoa(r.MaxCandidatesLength),
		strconv.Itoa(r.JAVersion),
		strconv.Itoa(correctSum(r.Mode.Correct)),
		strconv.Itoa(r.Mode.Incorrect),
		strconv.Itoa(r.Mode.EmptyCandidates),
		strconv.Itoa(total),
		strconv.FormatFloat(r.Derived.OverallAccuracy, 'f', 6, 64),
		strconv.FormatFloat(r.Derived.ErrorRate, 'f', 6, 64),
		strconv.FormatFloat(r.Derived.LenMean, 'f', 6, 64),
		strconv.FormatFloat(r.Derived.LenMedian, 'f', 6, 64),
		strings.Join(modeStrs, "|"),
		strconv.FormatFloat(r.Derived.LenMin, 'f', 6, 64),
		strconv.FormatFloat(r.Derived.LenMax, 'f', 6, 64),
		strings.Join(correctStrs, "|"),
		strings.Join(fracStrs, "|"),
	}
}

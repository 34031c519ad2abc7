package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"tlsid/internal/config"
	"tlsid/internal/logging"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}

func TestLoad_DropsTypeARowsAndSplitsByTrace(t *testing.T) {
	dir := t.TempDir()
	csv := "AppName;Filename;SNI;Type;JA4hash;JA4Shash;ctx\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;A;h1;k1;v\n"
	path := writeCSV(t, dir, "data.csv", csv)

	cfg := &config.Config{
		DatasetPath:       path,
		JAVersion:         4,
		ContextAttributes: []string{"ctx"},
		TestRatio:         0.25,
	}
	result, err := Load(cfg, logging.Default(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Dropping the Type=A row leaves 4 identical rows: 3 go to training
	// and deduplicate to 1, and 1 goes to test.
	if result.Train.Len()+result.Test.Len() != 2 {
		t.Fatalf("expected the Type=A row dropped, total rows should be 2 (1 deduplicated train + 1 test), got train=%d test=%d",
			result.Train.Len(), result.Test.Len())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg := &config.Config{DatasetPath: "/no/such/file.csv", JAVersion: 4, ContextAttributes: []string{"x"}, TestRatio: 0.25}
	_, err := Load(cfg, logging.Default(false))
	if err == nil {
		t.Fatalf("expected an IngestError for a missing file")
	}
}

func TestLoad_MissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	csv := "AppName;Filename;Type;JA4hash;JA4Shash\nA;t1;C;h1;k1\n"
	path := writeCSV(t, dir, "bad.csv", csv)

	cfg := &config.Config{DatasetPath: path, JAVersion: 4, ContextAttributes: []string{"x"}, TestRatio: 0.25}
	_, err := Load(cfg, logging.Default(false))
	if err == nil {
		t.Fatalf("expected an IngestError for a missing SNI column")
	}
}

func TestLoad_SingleRowTraceGoesEntirelyToTraining(t *testing.T) {
	dir := t.TempDir()
	csv := "AppName;Filename;SNI;Type;JA4hash;JA4Shash;ctx\nA;solo;example.com;C;h1;k1;v\n"
	path := writeCSV(t, dir, "solo.csv", csv)

	cfg := &config.Config{DatasetPath: path, JAVersion: 4, ContextAttributes: []string{"ctx"}, TestRatio: 0.25}
	result, err := Load(cfg, logging.Default(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Train.Len() != 1 || result.Test.Len() != 0 {
		t.Fatalf("expected a single-row trace entirely in training, got train=%d test=%d", result.Train.Len(), result.Test.Len())
	}
}

func TestLoad_DeduplicatesExactTrainingRows(t *testing.T) {
	dir := t.TempDir()
	csv := "AppName;Filename;SNI;Type;JA4hash;JA4Shash;ctx\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;C;h1;k1;v\n" +
		"A;t1;example.com;C;h1;k1;v\n"
	path := writeCSV(t, dir, "dup.csv", csv)

	cfg := &config.Config{DatasetPath: path, JAVersion: 4, ContextAttributes: []string{"ctx"}, TestRatio: 0.25}
	result, err := Load(cfg, logging.Default(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Train.Len() != 1 {
		t.Fatalf("expected exact-duplicate training rows deduplicated to 1, got %d", result.Train.Len())
	}
}

// Package app wires together the Record Store, Fingerprint Index,
// Pattern Miner, and Context Identifier into the end-to-end
// identification run (spec §2), the way the teacher's app/ services
// compose adapters behind a single entry point.
package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tlsid/domain/fingerprint"
	"tlsid/internal/config"
	"tlsid/internal/identify"
	"tlsid/internal/ingest"
	"tlsid/internal/logging"
	"tlsid/internal/mining"
	"tlsid/internal/report"
	"tlsid/internal/stats"
)

const component = "app"

// Result is everything a caller needs after a run: the two modes'
// statistics and the report rows already shaped for persistence.
type Result struct {
	RunID  string
	Report *stats.Report
	Rows   []report.Row
}

// Service runs the full pipeline for one configuration.
type Service struct {
	cfg *config.Config
	log *logging.Logger
}

// New constructs a Service.
func New(cfg *config.Config, log *logging.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Run executes ingest → index build → mining → identification → report,
// returning the aggregated result. Fatal errors (IngestError,
// ConfigError) are returned directly, per spec §7.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	runID := uuid.NewString()
	s.log.Infof(component, "starting run %s on %s", runID, s.cfg.DatasetPath)

	split, err := ingest.Load(s.cfg, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Infof(component, "ingested %d training rows, %d test rows", split.Train.Len(), split.Test.Len())

	index := fingerprint.Build(split.Train)

	store, err := mining.Mine(ctx, split.Train, mining.Config{
		ContextAttributes: s.cfg.ContextAttributes,
		MinSupport:        s.cfg.MinSupport,
		Filters:           s.cfg.Filters(),
	}, s.log)
	if err != nil {
		return nil, err
	}
	s.log.Infof(component, "mined patterns for %d applications", len(store))

	identifier := identify.New(index, store, identify.Config{
		Window:            s.cfg.SlidingWindowSize,
		TopN:              s.cfg.MaxCandidatesLength,
		ContextAttributes: s.cfg.ContextAttributes,
	}, s.log)

	result, err := identifier.Run(ctx, split.Test)
	if err != nil {
		return nil, err
	}

	rows := []report.Row{
		s.toReportRow(runID, false, result.JA, result.JADerived),
		s.toReportRow(runID, true, result.JAComb, result.JACombDerived),
	}

	if err := report.AppendCSV(s.cfg.CSVReportPath, rows); err != nil {
		s.log.Errorf(component, "failed to append CSV report: %v", err)
	}
	if err := report.WriteHTMLSummary(s.cfg.HTMLReportPath, rows); err != nil {
		s.log.Errorf(component, "failed to write HTML summary: %v", err)
	}
	if err := report.WriteDB(ctx, s.cfg.ReportDBDSN, rows, time.Now()); err != nil {
		s.log.Errorf(component, "failed to write report database: %v", err)
	}

	return &Result{RunID: runID, Report: result, Rows: rows}, nil
}

func (s *Service) toReportRow(runID string, comb bool, mode stats.ModeStats, derived stats.Derived) report.Row {
	return report.Row{
		RunID:               runID,
		IsComb:              comb,
		ContextAttributes:   s.cfg.ContextAttributes,
		PatternFilters:      s.cfg.PatternFilters,
		MinSupport:          s.cfg.MinSupport,
		MaxCandidatesLength: s.cfg.MaxCandidatesLength,
		JAVersion:           s.cfg.JAVersion,
		Mode:                mode,
		Derived:             derived,
	}
}

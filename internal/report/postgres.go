package report

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	apperrors "tlsid/internal/errors"
)

// schema holds a subset of the CSV report's columns; kept intentionally small,
// following the teacher's adapters/postgres repository style of one
// table per concern with a plain parameterized INSERT.
const schema = `
CREATE TABLE IF NOT EXISTS identification_runs (
	run_id               TEXT NOT NULL,
	is_comb              BOOLEAN NOT NULL,
	min_support          DOUBLE PRECISION NOT NULL,
	candidate_size       INTEGER NOT NULL,
	ja_version           INTEGER NOT NULL,
	correct              INTEGER NOT NULL,
	incorrect            INTEGER NOT NULL,
	empty_candidates     INTEGER NOT NULL,
	total                INTEGER NOT NULL,
	overall_accuracy     DOUBLE PRECISION NOT NULL,
	error_rate           DOUBLE PRECISION NOT NULL,
	recorded_at          TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, is_comb)
)`

const insert = `
INSERT INTO identification_runs
	(run_id, is_comb, min_support, candidate_size, ja_version, correct, incorrect,
	 empty_candidates, total, overall_accuracy, error_rate, recorded_at)
VALUES
	(:run_id, :is_comb, :min_support, :candidate_size, :ja_version, :correct, :incorrect,
	 :empty_candidates, :total, :overall_accuracy, :error_rate, :recorded_at)
ON CONFLICT (run_id, is_comb) DO NOTHING`

type runRow struct {
	RunID               string    `db:"run_id"`
	IsComb              bool      `db:"is_comb"`
	MinSupport          float64   `db:"min_support"`
	MaxCandidatesLength int       `db:"candidate_size"`
	JAVersion           int       `db:"ja_version"`
	Correct             int       `db:"correct"`
	Incorrect           int       `db:"incorrect"`
	EmptyCandidates     int       `db:"empty_candidates"`
	Total               int       `db:"total"`
	OverallAccuracy     float64   `db:"overall_accuracy"`
	ErrorRate           float64   `db:"error_rate"`
	RecordedAt          time.Time `db:"recorded_at"`
}

// WriteDB inserts rows into the optional Postgres run-history sink when
// dsn is non-empty; a row whose (run_id, is_comb) already exists is left
// unchanged. It never blocks the CSV report contract: a DB
// failure here is surfaced to the caller but the CSV append already
// happened independently.
func WriteDB(ctx context.Context, dsn string, rows []Row, recordedAt time.Time) (err error) {
	if dsn == "" {
		return nil
	}

	db, openErr := sqlx.ConnectContext(ctx, "postgres", dsn)
	if openErr != nil {
		return apperrors.Wrap(openErr, "failed to connect to report database")
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = apperrors.Wrap(closeErr, "failed to close report database connection")
		}
	}()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return apperrors.Wrap(err, "failed to ensure report schema")
	}

	for _, r := range rows {
		row := runRow{
			RunID:               r.RunID,
			IsComb:              r.IsComb,
			MinSupport:          r.MinSupport,
			MaxCandidatesLength: r.MaxCandidatesLength,
			JAVersion:           r.JAVersion,
			Correct:             correctSum(r.Mode.Correct),
			Incorrect:           r.Mode.Incorrect,
			EmptyCandidates:     r.Mode.EmptyCandidates,
			Total:               r.Mode.Total(),
			OverallAccuracy:     r.Derived.OverallAccuracy,
			ErrorRate:           r.Derived.ErrorRate,
			RecordedAt:          recordedAt,
		}
		if _, err := db.NamedExecContext(ctx, insert, row); err != nil {
			return apperrors.Wrap(err, "failed to upsert report row")
		}
	}
	return nil
}

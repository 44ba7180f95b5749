package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"markscan/internal/common"
	"markscan/internal/entity"
)

// RunRepository records batch runs, their sheets and box results.
type RunRepository interface {
	CreateRun(ctx context.Context, run *entity.Run) error
	SaveSheet(ctx context.Context, runID uuid.UUID, sheet *entity.Sheet) error
	FinishRun(ctx context.Context, run *entity.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*entity.Run, error)
	ListRuns(ctx context.Context) ([]*entity.Run, error)
}

type runRepository struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

func NewRunRepository(db *sql.DB, driver string, logger *slog.Logger) RunRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &runRepository{db: db, driver: driver, logger: logger}
}

func (r *runRepository) CreateRun(ctx context.Context, run *entity.Run) error {
	q := rebind(r.driver, `INSERT INTO runs
		(id, source_dir, output_dir, model_version, started_at)
		VALUES (?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, q,
		run.ID.String(), run.SourceDir, run.OutputDir, run.ModelVersion, run.StartedAt)
	if err != nil {
		r.logger.Error("failed to create run", "run_id", run.ID, "error", err)
		return common.NewAppError("DB_ERROR", "create run", err)
	}
	return nil
}

// SaveSheet stores a sheet and its box rows in one transaction.
func (r *runRepository) SaveSheet(ctx context.Context, runID uuid.UUID, sheet *entity.Sheet) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewAppError("DB_ERROR", "begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	crossed, empty := sheet.Tally()
	q := rebind(r.driver, `INSERT INTO sheets
		(id, run_id, path, status, reason, crossed, empty)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q,
		sheet.ID.String(), runID.String(), sheet.Path, string(sheet.Status), sheet.Reason, crossed, empty); err != nil {
		return common.NewAppError("DB_ERROR", "insert sheet", err)
	}

	boxQ := rebind(r.driver, `INSERT INTO boxes
		(sheet_id, question, option_num, label, confidence)
		VALUES (?, ?, ?, ?, ?)`)
	for _, b := range sheet.Boxes {
		if _, err := tx.ExecContext(ctx, boxQ,
			sheet.ID.String(), b.Question, b.Option, string(b.Label), b.Confidence); err != nil {
			return common.NewAppError("DB_ERROR", "insert box", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return common.NewAppError("DB_ERROR", "commit sheet", err)
	}
	return nil
}

func (r *runRepository) FinishRun(ctx context.Context, run *entity.Run) error {
	now := time.Now().UTC()
	run.FinishedAt = &now

	q := rebind(r.driver, `UPDATE runs
		SET finished_at = ?, sheets_ok = ?, sheets_skipped = ?, sheets_failed = ?
		WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, q,
		*run.FinishedAt, run.SheetsOK, run.SheetsSkip, run.SheetsFail, run.ID.String())
	if err != nil {
		r.logger.Error("failed to finish run", "run_id", run.ID, "error", err)
		return common.NewAppError("DB_ERROR", "finish run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError("DB_ERROR", fmt.Sprintf("run %s not found", run.ID), common.ErrNotFound)
	}
	return nil
}

func (r *runRepository) GetRun(ctx context.Context, id uuid.UUID) (*entity.Run, error) {
	q := rebind(r.driver, `SELECT id, source_dir, output_dir, model_version,
		started_at, finished_at, sheets_ok, sheets_skipped, sheets_failed
		FROM runs WHERE id = ?`)
	run, err := scanRun(r.db.QueryRowContext(ctx, q, id.String()))
	if err == sql.ErrNoRows {
		return nil, common.NewAppError("DB_ERROR", fmt.Sprintf("run %s", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "get run", err)
	}
	return run, nil
}

func (r *runRepository) ListRuns(ctx context.Context) ([]*entity.Run, error) {
	q := `SELECT id, source_dir, output_dir, model_version,
		started_at, finished_at, sheets_ok, sheets_skipped, sheets_failed
		FROM runs ORDER BY started_at`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, common.NewAppError("DB_ERROR", "list runs", err)
	}
	defer rows.Close()

	var runs []*entity.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, common.NewAppError("DB_ERROR", "scan run", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*entity.Run, error) {
	var (
		run      entity.Run
		id       string
		finished sql.NullTime
	)
	if err := row.Scan(&id, &run.SourceDir, &run.OutputDir, &run.ModelVersion,
		&run.StartedAt, &finished, &run.SheetsOK, &run.SheetsSkip, &run.SheetsFail); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	run.ID = parsed
	if finished.Valid {
		t := finished.Time
		run.FinishedAt = &t
	}
	return &run, nil
}

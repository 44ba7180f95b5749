package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"markscan/constants"
	"markscan/internal/common"
	"markscan/internal/entity"
)

func testRepo(t *testing.T) RunRepository {
	t.Helper()
	db, driver, err := Open(context.Background(), common.StoreConfig{
		DSN:         ":memory:",
		DialTimeout: 5 * time.Second,
	}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRunRepository(db, driver, nil)
}

func newRun() *entity.Run {
	return &entity.Run{
		ID:           uuid.New(),
		SourceDir:    "/scans/in",
		OutputDir:    "/scans/out",
		ModelVersion: "v1 gen3 acc0.9990",
		StartedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	run := newRun()

	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	sheet := &entity.Sheet{
		ID:     uuid.New(),
		Path:   "/scans/in/page1.png",
		Status: constants.SheetStatusOK,
		Boxes: []entity.BoxResult{
			{Question: 1, Option: 1, Label: constants.LabelCrossed, Confidence: 0.98},
			{Question: 1, Option: 2, Label: constants.LabelEmpty, Confidence: 0.91},
		},
	}
	if err := repo.SaveSheet(ctx, run.ID, sheet); err != nil {
		t.Fatalf("SaveSheet: %v", err)
	}

	run.SheetsOK, run.SheetsSkip, run.SheetsFail = 1, 0, 0
	if err := repo.FinishRun(ctx, run); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	if run.FinishedAt == nil {
		t.Fatal("FinishRun did not set FinishedAt")
	}

	got, err := repo.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.ID != run.ID {
		t.Errorf("ID = %s, want %s", got.ID, run.ID)
	}
	if got.SourceDir != run.SourceDir || got.ModelVersion != run.ModelVersion {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.SheetsOK != 1 {
		t.Errorf("SheetsOK = %d, want 1", got.SheetsOK)
	}
	if got.FinishedAt == nil {
		t.Error("FinishedAt not persisted")
	}
}

func TestSaveSheetIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)
	run := newRun()
	if err := repo.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	// Duplicate box coordinates violate the primary key; the sheet row
	// must roll back with them.
	sheet := &entity.Sheet{
		ID:     uuid.New(),
		Path:   "/scans/in/dup.png",
		Status: constants.SheetStatusOK,
		Boxes: []entity.BoxResult{
			{Question: 1, Option: 1, Label: constants.LabelCrossed, Confidence: 0.9},
			{Question: 1, Option: 1, Label: constants.LabelEmpty, Confidence: 0.8},
		},
	}
	if err := repo.SaveSheet(ctx, run.ID, sheet); err == nil {
		t.Fatal("expected constraint violation")
	}

	// A clean retry with the same sheet ID succeeds, proving rollback.
	sheet.Boxes = sheet.Boxes[:1]
	if err := repo.SaveSheet(ctx, run.ID, sheet); err != nil {
		t.Fatalf("retry after rollback: %v", err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	repo := testRepo(t)
	_, err := repo.GetRun(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFinishRunNotFound(t *testing.T) {
	repo := testRepo(t)
	err := repo.FinishRun(context.Background(), newRun())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListRunsOrdered(t *testing.T) {
	ctx := context.Background()
	repo := testRepo(t)

	base := time.Now().UTC().Truncate(time.Second)
	var ids []uuid.UUID
	for i := 2; i >= 0; i-- {
		run := newRun()
		run.StartedAt = base.Add(time.Duration(i) * time.Minute)
		if err := repo.CreateRun(ctx, run); err != nil {
			t.Fatalf("CreateRun: %v", err)
		}
		ids = append([]uuid.UUID{run.ID}, ids...)
	}

	runs, err := repo.ListRuns(ctx)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("len = %d, want 3", len(runs))
	}
	for i, run := range runs {
		if run.ID != ids[i] {
			t.Errorf("runs[%d].ID = %s, want %s (started_at order)", i, run.ID, ids[i])
		}
	}
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	if got := rebind("sqlite", q); got != q {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
	want := "INSERT INTO t (a, b) VALUES ($1, $2)"
	if got := rebind("pgx", q); got != want {
		t.Errorf("pgx rebind = %q, want %q", got, want)
	}
}

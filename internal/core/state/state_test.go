package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	v1 "github.com/f9-o/inspiral/api/v1"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunIDsAreSequential(t *testing.T) {
	db := openTemp(t)
	first, err := db.NewRunID()
	if err != nil {
		t.Fatalf("NewRunID: %v", err)
	}
	second, _ := db.NewRunID()
	if first != "run-000001" || second != "run-000002" {
		t.Fatalf("ids = %q, %q", first, second)
	}
}

func TestRunRecordRoundTrip(t *testing.T) {
	db := openTemp(t)

	if got, err := db.GetRun("run-000404"); err != nil || got != nil {
		t.Fatalf("GetRun(missing) = %v, %v", got, err)
	}

	for i := 1; i <= 3; i++ {
		id, _ := db.NewRunID()
		rec := v1.RunRecord{
			ID:        id,
			Params:    v1.DefaultOrbitParams(),
			StartedAt: time.Date(2026, 1, i, 0, 0, 0, 0, time.UTC),
			Ticks:     300,
			Result:    v1.ResultCompleted,
		}
		if err := db.PutRun(rec); err != nil {
			t.Fatalf("PutRun: %v", err)
		}
	}

	got, err := db.GetRun("run-000002")
	if err != nil || got == nil {
		t.Fatalf("GetRun = %v, %v", got, err)
	}
	if got.Params.Body1 != (r3.Vec{X: -3}) || got.Ticks != 300 {
		t.Fatalf("round-tripped record = %+v", got)
	}

	runs, err := db.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != "run-000003" || runs[2].ID != "run-000001" {
		t.Fatalf("ListRuns order = %v", runs)
	}
}

func TestFramesInTickOrderAndDelete(t *testing.T) {
	db := openTemp(t)
	id, _ := db.NewRunID()
	_ = db.PutRun(v1.RunRecord{ID: id})

	// Tick 256 would sort before tick 3 with a decimal string key.
	batch := []v1.Frame{{Tick: 256}, {Tick: 3}, {Tick: 1}}
	if err := db.AppendFrames(id, batch); err != nil {
		t.Fatalf("AppendFrames: %v", err)
	}
	frames, err := db.Frames(id)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 3 || frames[0].Tick != 1 || frames[1].Tick != 3 || frames[2].Tick != 256 {
		t.Fatalf("frames = %+v", frames)
	}

	if err := db.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if frames, _ := db.Frames(id); len(frames) != 0 {
		t.Fatalf("frames survived DeleteRun: %v", frames)
	}
	if rec, _ := db.GetRun(id); rec != nil {
		t.Fatalf("record survived DeleteRun")
	}
	// Deleting a run without frames is fine.
	if err := db.DeleteRun("run-999999"); err != nil {
		t.Fatalf("DeleteRun(missing): %v", err)
	}
}

func TestRecorderBatchesAndFlushes(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	rec := NewRecorder(db, "run-000001", true)
	rec.batchSize = 4

	for i := 1; i <= 10; i++ {
		if err := rec.ObserveFrame(ctx, v1.Frame{Tick: i}); err != nil {
			t.Fatalf("ObserveFrame: %v", err)
		}
	}
	if frames, _ := db.Frames("run-000001"); len(frames) != 8 {
		t.Fatalf("before finish: %d frames stored, want 8", len(frames))
	}

	if err := rec.RunFinished(ctx, v1.RunRecord{ID: "run-000001", Ticks: 10, Result: v1.ResultCompleted}); err != nil {
		t.Fatalf("RunFinished: %v", err)
	}
	if frames, _ := db.Frames("run-000001"); len(frames) != 10 {
		t.Fatalf("after finish: %d frames stored, want 10", len(frames))
	}
	if got, _ := db.GetRun("run-000001"); got == nil || got.Ticks != 10 {
		t.Fatalf("run record not stored: %+v", got)
	}
}

func TestRecorderWithoutFrames(t *testing.T) {
	db := openTemp(t)
	rec := NewRecorder(db, "run-000001", false)
	_ = rec.ObserveFrame(context.Background(), v1.Frame{Tick: 1})
	_ = rec.RunFinished(context.Background(), v1.RunRecord{ID: "run-000001"})
	if frames, _ := db.Frames("run-000001"); len(frames) != 0 {
		t.Fatalf("frames recorded with recordFrames=false")
	}
}

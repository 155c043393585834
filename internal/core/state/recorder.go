package state

import (
	"context"
	"sync"

	v1 "github.com/f9-o/inspiral/api/v1"
)

// DefaultBatchSize is how many frames the Recorder buffers before writing.
const DefaultBatchSize = 50

// Recorder persists a run's frames and its final record. It implements
// render.FrameObserver and render.RunObserver.
type Recorder struct {
	db        *DB
	runID     string
	frames    bool
	batchSize int

	mu      sync.Mutex
	pending []v1.Frame
}

// NewRecorder returns a Recorder for runID. When recordFrames is false only the
// RunRecord is stored.
func NewRecorder(db *DB, runID string, recordFrames bool) *Recorder {
	return &Recorder{db: db, runID: runID, frames: recordFrames, batchSize: DefaultBatchSize}
}

func (r *Recorder) ObserveFrame(_ context.Context, f v1.Frame) error {
	if !r.frames {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, f)
	if len(r.pending) < r.batchSize {
		return nil
	}
	return r.flushLocked()
}

// RunFinished flushes buffered frames and stores the record.
func (r *Recorder) RunFinished(_ context.Context, rec v1.RunRecord) error {
	r.mu.Lock()
	err := r.flushLocked()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return r.db.PutRun(rec)
}

func (r *Recorder) flushLocked() error {
	if len(r.pending) == 0 {
		return nil
	}
	if err := r.db.AppendFrames(r.runID, r.pending); err != nil {
		return err
	}
	r.pending = r.pending[:0]
	return nil
}

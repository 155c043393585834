// Package state manages inspiral's persistent run history using BoltDB.
// All writes are transactional; reads use read-only transactions to minimise contention.
package state

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/pkg/errs"
)

// Bucket names
var (
	bucketRuns   = []byte("runs")
	bucketFrames = []byte("frames") // one nested bucket per run ID
)

// DB wraps a BoltDB instance with typed accessor methods.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the state database at the given path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errs.Wrap(err, errs.ErrStateWrite, "state.mkdir").WithResource(path)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrStateRead, "state.open").
			WithResource(path).
			WithAdvice("another inspiral process may hold the lock on the state file")
	}

	// Ensure all buckets exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketRuns, bucketFrames} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %q: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(err, errs.ErrStateWrite, "state.init_buckets").WithResource(path)
	}

	return &DB{bolt: db}, nil
}

// Close closes the underlying BoltDB file.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// ─────────────────────────────────────────────────────────────────────────────
// Run records
// ─────────────────────────────────────────────────────────────────────────────

// NewRunID reserves the next run identifier ("run-000001", "run-000002", ...).
func (db *DB) NewRunID() (string, error) {
	var id string
	err := db.bolt.Update(func(tx *bbolt.Tx) error {
		seq, err := tx.Bucket(bucketRuns).NextSequence()
		if err != nil {
			return err
		}
		id = fmt.Sprintf("run-%06d", seq)
		return nil
	})
	if err != nil {
		return "", errs.Wrap(err, errs.ErrStateWrite, "state.new_run_id")
	}
	return id, nil
}

// PutRun upserts a RunRecord.
func (db *DB) PutRun(rec v1.RunRecord) error {
	if err := db.putJSON(bucketRuns, rec.ID, rec); err != nil {
		return errs.Wrap(err, errs.ErrStateWrite, "state.put_run").WithResource(rec.ID)
	}
	return nil
}

// GetRun retrieves a RunRecord by ID. Returns nil, nil if not found.
func (db *DB) GetRun(id string) (*v1.RunRecord, error) {
	var rec v1.RunRecord
	found, err := db.getJSON(bucketRuns, id, &rec)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrStateRead, "state.get_run").WithResource(id)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// ListRuns returns all run records, newest first.
func (db *DB) ListRuns() ([]v1.RunRecord, error) {
	var recs []v1.RunRecord
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRuns).ForEach(func(k, v []byte) error {
			var r v1.RunRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("unmarshal run %q: %w", k, err)
			}
			recs = append(recs, r)
			return nil
		})
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrStateRead, "state.list_runs")
	}
	// IDs are zero-padded sequence numbers, so key order is creation order.
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].ID > recs[j].ID })
	return recs, nil
}

// DeleteRun removes a run record and its frame log.
func (db *DB) DeleteRun(id string) error {
	err := db.bolt.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketRuns).Delete([]byte(id)); err != nil {
			return err
		}
		frames := tx.Bucket(bucketFrames)
		if frames.Bucket([]byte(id)) == nil {
			return nil
		}
		return frames.DeleteBucket([]byte(id))
	})
	if err != nil {
		return errs.Wrap(err, errs.ErrStateWrite, "state.delete_run").WithResource(id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Frame log
// ─────────────────────────────────────────────────────────────────────────────

// AppendFrames stores frames under the run's frame bucket in a single transaction.
// Keys are big-endian tick numbers, so iteration yields tick order.
func (db *DB) AppendFrames(runID string, frames []v1.Frame) error {
	if len(frames) == 0 {
		return nil
	}
	err := db.bolt.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(bucketFrames).CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}
		for _, f := range frames {
			data, err := json.Marshal(f)
			if err != nil {
				return fmt.Errorf("marshal frame %d: %w", f.Tick, err)
			}
			if err := b.Put(tickKey(f.Tick), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errs.Wrap(err, errs.ErrStateWrite, "state.append_frames").WithResource(runID)
	}
	return nil
}

// Frames returns every stored frame of a run in tick order.
func (db *DB) Frames(runID string) ([]v1.Frame, error) {
	var out []v1.Frame
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketFrames).Bucket([]byte(runID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var f v1.Frame
			if err := json.Unmarshal(v, &f); err != nil {
				return fmt.Errorf("unmarshal frame %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, f)
			return nil
		})
	})
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrStateRead, "state.frames").WithResource(runID)
	}
	return out, nil
}

func tickKey(tick int) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(tick))
	return k
}

// ─────────────────────────────────────────────────────────────────────────────
// Generic helpers
// ─────────────────────────────────────────────────────────────────────────────

func (db *DB) putJSON(bucket []byte, key string, val any) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return db.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func (db *DB) getJSON(bucket []byte, key string, out any) (bool, error) {
	var found bool
	err := db.bolt.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, out)
	})
	return found, err
}

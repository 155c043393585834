package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	_ "github.com/mattn/go-sqlite3"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/pkg/errs"
)

// Export formats.
const (
	FormatJSON   = "json"
	FormatTOML   = "toml"
	FormatSQLite = "sqlite"
)

// Trajectory is a run together with its recorded frames.
type Trajectory struct {
	Run    v1.RunRecord `json:"run"    toml:"run"`
	Frames []v1.Frame   `json:"frames" toml:"frames"`
}

// ExportJSON writes t as indented JSON.
func ExportJSON(w io.Writer, t Trajectory) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return errs.Wrap(err, errs.ErrSinkExport, "export.json").WithResource(t.Run.ID)
	}
	return nil
}

// ExportTOML writes t as a TOML document with a [run] table and [[frames]] array.
func ExportTOML(w io.Writer, t Trajectory) error {
	if err := toml.NewEncoder(w).Encode(t); err != nil {
		return errs.Wrap(err, errs.ErrSinkExport, "export.toml").WithResource(t.Run.ID)
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	started_at   TEXT NOT NULL,
	completed_at TEXT NOT NULL,
	ticks        INTEGER NOT NULL,
	result       TEXT NOT NULL,
	radius       REAL NOT NULL,
	phase        REAL NOT NULL,
	radius_step  REAL NOT NULL,
	phase_step   REAL NOT NULL,
	exponent     REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
	run_id   TEXT NOT NULL REFERENCES runs(id),
	tick     INTEGER NOT NULL,
	phase    REAL NOT NULL,
	radius   REAL NOT NULL,
	body1_x  REAL NOT NULL,
	body1_y  REAL NOT NULL,
	body1_z  REAL NOT NULL,
	body2_x  REAL NOT NULL,
	body2_y  REAL NOT NULL,
	body2_z  REAL NOT NULL,
	PRIMARY KEY (run_id, tick)
);`

// ExportSQLite writes t into the SQLite database at path, creating the schema
// when needed. Re-exporting a run replaces its rows.
func ExportSQLite(ctx context.Context, path string, t Trajectory) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errs.Wrap(err, errs.ErrSinkExport, "export.sqlite.open").WithResource(path)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return errs.Wrap(err, errs.ErrSinkExport, "export.sqlite.schema").WithResource(path)
	}

	if err := writeTrajectory(ctx, db, t); err != nil {
		return errs.Wrap(err, errs.ErrSinkExport, "export.sqlite.write").WithResource(path)
	}
	return nil
}

func writeTrajectory(ctx context.Context, db *sql.DB, t Trajectory) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM frames WHERE run_id = ?`, t.Run.ID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, t.Run.ID); err != nil {
		return err
	}

	p := t.Run.Params
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, completed_at, ticks, result, radius, phase, radius_step, phase_step, exponent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Run.ID, t.Run.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		t.Run.CompletedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		t.Run.Ticks, string(t.Run.Result), p.Radius, p.Phase, p.RadiusStep, p.PhaseStep, p.Exponent,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frames (run_id, tick, phase, radius, body1_x, body1_y, body1_z, body2_x, body2_y, body2_z)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range t.Frames {
		if _, err = stmt.ExecContext(ctx, t.Run.ID, f.Tick, f.Phase, f.Radius,
			f.Body1.X, f.Body1.Y, f.Body1.Z, f.Body2.X, f.Body2.Y, f.Body2.Z); err != nil {
			return fmt.Errorf("insert frame %d: %w", f.Tick, err)
		}
	}
	return tx.Commit()
}

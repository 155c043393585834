// inspiral export: write a recorded run to JSON, TOML or SQLite.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/internal/sink"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

func NewExportCmd() *cobra.Command {
	var (
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Export a recorded run and its frames",
		Example: `  inspiral export run-000001 --format json
  inspiral export run-000001 --format toml --out run.toml
  inspiral export run-000001 --format sqlite --out runs.db`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			rec, err := lookupRun(rt.State, args[0])
			if err != nil {
				return err
			}
			frames, err := rt.State.Frames(rec.ID)
			if err != nil {
				return err
			}
			traj := sink.Trajectory{Run: *rec, Frames: frames}

			switch format {
			case sink.FormatSQLite:
				if out == "" || out == "-" {
					return errs.Newf(errs.ErrValidation, "export", "--out is required for sqlite exports")
				}
				err = sink.ExportSQLite(cmd.Context(), out, traj)
			case sink.FormatJSON, sink.FormatTOML:
				err = writeTo(out, func(w io.Writer) error {
					if format == sink.FormatTOML {
						return sink.ExportTOML(w, traj)
					}
					return sink.ExportJSON(w, traj)
				})
			default:
				return errs.Newf(errs.ErrValidation, "export", "unknown format %q (want json | toml | sqlite)", format)
			}
			if err != nil {
				return err
			}

			rt.Log.Audit(logger.AuditEntry{
				Op:     "export",
				User:   logger.CurrentUser(),
				RunID:  rec.ID,
				Result: "success",
				Meta:   map[string]string{"format": format, "out": out},
			})
			if out != "" && out != "-" {
				pprint.Success("Exported %s (%d frames) to %s", rec.ID, len(frames), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", sink.FormatJSON, "Export format: json | toml | sqlite")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default stdout; required for sqlite)")
	return cmd
}

// writeTo runs write against out, or stdout when out is empty or "-".
func writeTo(out string, write func(io.Writer) error) (err error) {
	if out == "" || out == "-" {
		return write(pprint.Out)
	}
	f, err := os.Create(out)
	if err != nil {
		return errs.Wrap(err, errs.ErrSinkExport, "export.create").WithResource(out)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", out, cerr)
		}
	}()
	return write(f)
}

// inspiral history: list, inspect and delete recorded runs.
package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/internal/core/state"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Example: `  inspiral history ls
  inspiral history show run-000003
  inspiral history rm run-000003`,
		SilenceUsage: true,
	}
	cmd.AddCommand(newHistoryLsCmd(), newHistoryShowCmd(), newHistoryRmCmd())
	return cmd
}

func newHistoryLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "ls",
		Aliases:      []string{"list"},
		Short:        "List recorded runs, newest first",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			runs, err := rt.State.ListRuns()
			if err != nil {
				return err
			}
			if rt.Flags.JSONOutput {
				return printJSON(runs)
			}
			if len(runs) == 0 {
				pprint.Info("No runs recorded yet. Start one with: inspiral run")
				return nil
			}

			tbl := pprint.NewTable("ID", "STARTED", "SURFACE", "TICKS", "RESULT", "FINAL θ")
			for _, r := range runs {
				tbl.AddRow(r.ID,
					r.StartedAt.Local().Format(time.DateTime),
					r.Surface,
					strconv.Itoa(r.Ticks),
					resultLabel(r.Result),
					fmt.Sprintf("%.4f", r.FinalPhase),
				)
			}
			tbl.Render()
			return nil
		},
	}
}

func newHistoryShowCmd() *cobra.Command {
	var showFrames bool

	cmd := &cobra.Command{
		Use:          "show <id>",
		Short:        "Show one run and optionally its frames",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			rec, err := lookupRun(rt.State, args[0])
			if err != nil {
				return err
			}
			var frames []v1.Frame
			if showFrames || rt.Flags.JSONOutput {
				if frames, err = rt.State.Frames(rec.ID); err != nil {
					return err
				}
			}

			if rt.Flags.JSONOutput {
				return printJSON(map[string]any{"run": rec, "frames": frames})
			}

			p := rec.Params
			pprint.Header("Run " + rec.ID)
			pprint.KV("Result", resultLabel(rec.Result))
			if rec.Error != "" {
				pprint.KV("Error", rec.Error)
			}
			pprint.KV("Surface", rec.Surface)
			pprint.KV("Started", rec.StartedAt.Local().Format(time.RFC3339))
			pprint.KV("Duration", fmt.Sprintf("%d ms", rec.DurationMS))
			pprint.KV("Ticks", strconv.Itoa(rec.Ticks))
			pprint.KV("Final phase", fmt.Sprintf("%.6f rad", rec.FinalPhase))
			pprint.KV("Radius", fmt.Sprintf("%g (step %g)", p.Radius, p.RadiusStep))
			pprint.KV("Phase", fmt.Sprintf("%g (step %g, exponent %g)", p.Phase, p.PhaseStep, p.Exponent))
			pprint.KV("Body 1", fmt.Sprintf("(%g, %g, %g)", p.Body1.X, p.Body1.Y, p.Body1.Z))

			if showFrames {
				tbl := pprint.NewTable("TICK", "PHASE", "RADIUS", "BODY 1 (x, z)", "BODY 2 (x, z)")
				for _, f := range frames {
					tbl.AddRow(strconv.Itoa(f.Tick),
						fmt.Sprintf("%.4f", f.Phase),
						fmt.Sprintf("%.4f", f.Radius),
						fmt.Sprintf("(%+.4f, %+.4f)", f.Body1.X, f.Body1.Z),
						fmt.Sprintf("(%+.4f, %+.4f)", f.Body2.X, f.Body2.Z),
					)
				}
				fmt.Fprintln(pprint.Out)
				tbl.Render()
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFrames, "frames", false, "Print every recorded frame")
	return cmd
}

func newHistoryRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:          "rm <id>",
		Aliases:      []string{"delete"},
		Short:        "Delete a run and its frames",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			rec, err := lookupRun(rt.State, args[0])
			if err != nil {
				return err
			}
			if err := rt.State.DeleteRun(rec.ID); err != nil {
				return err
			}
			rt.Log.Audit(logger.AuditEntry{
				Op:     "history.rm",
				User:   logger.CurrentUser(),
				RunID:  rec.ID,
				Result: "success",
			})
			pprint.Success("Deleted %s", rec.ID)
			return nil
		},
	}
}

// lookupRun fetches a run, mapping a missing ID onto ErrRunNotFound.
func lookupRun(db *state.DB, id string) (*v1.RunRecord, error) {
	rec, err := db.GetRun(id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errs.Newf(errs.ErrRunNotFound, "history.lookup", "no run with id %q", id).
			WithResource(id).
			WithAdvice("list recorded runs with: inspiral history ls")
	}
	return rec, nil
}

func resultLabel(r v1.RunResult) string {
	switch r {
	case v1.ResultCompleted:
		return pprint.StyleSuccess.Render(string(r))
	case v1.ResultInterrupted:
		return pprint.StyleWarning.Render(string(r))
	default:
		return pprint.StyleError.Render(string(r))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(pprint.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

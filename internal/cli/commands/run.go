// inspiral run: run one inspiral headless, streaming frames to stdout.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	v1 "github.com/f9-o/inspiral/api/v1"
	"github.com/f9-o/inspiral/internal/orbit"
	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

func NewRunCmd() *cobra.Command {
	var (
		frames   string
		noPace   bool
		maxTicks int
		noRecord bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the inspiral headless and stream every frame",
		Example: `  inspiral run
  inspiral run --no-pace --frames json > frames.jsonl
  inspiral run --max-ticks 50 --no-record`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			cfg := rt.Config

			if !cmd.Flags().Changed("frames") {
				frames = cfg.Render.Frames
			}
			if maxTicks < 0 {
				return errs.Newf(errs.ErrValidation, "run.flags", "--max-ticks must be ≥ 0, got %d", maxTicks)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stream, err := render.NewStream(pprint.Out, frames)
			if err != nil {
				return errs.Wrap(err, errs.ErrValidation, "run.flags").WithResource("--frames")
			}

			sess, err := newSession(ctx, rt, !noRecord)
			if err != nil {
				return err
			}

			pacer := orbit.NewPacer(cfg.Render.RateHz)
			if noPace {
				pacer = orbit.Unpaced()
			}

			observers := []render.FrameObserver{stream}
			if frames == render.FormatNone && !rt.Flags.JSONOutput {
				observers = append(observers, newProgressObserver(cfg.Orbit, maxTicks))
			}

			runner, err := sess.newRunner(ctx, runSpec{
				Surface:     stream,
				SurfaceName: "stream",
				Observers:   observers,
				Pacer:       pacer,
				MaxTicks:    maxTicks,
			})
			if err != nil {
				return err
			}

			rec, runErr := runner.Run(ctx)
			if err := stream.Close(); err != nil && runErr == nil {
				runErr = err
			}

			if rt.Flags.JSONOutput {
				printJSON(rec)
			} else {
				printRecord(rec, !noRecord)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&frames, "frames", render.FormatTable, "Frame output: table | json | none")
	cmd.Flags().BoolVar(&noPace, "no-pace", false, "Run as fast as possible instead of at render.rate_hz")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Stop after N ticks (0 = until the bodies merge)")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store the run in history")
	return cmd
}

// printRecord summarises a finished run.
func printRecord(rec v1.RunRecord, saved bool) {
	fmt.Fprintln(pprint.Out)
	switch rec.Result {
	case v1.ResultCompleted:
		pprint.Success("Bodies merged after %d ticks", rec.Ticks)
	case v1.ResultInterrupted:
		pprint.Warn("Run interrupted at tick %d", rec.Ticks)
	default:
		pprint.Error("Run failed at tick %d: %s", rec.Ticks, rec.Error)
	}
	pprint.KV("Run", rec.ID)
	pprint.KV("Final phase", fmt.Sprintf("%.6f rad", rec.FinalPhase))
	pprint.KV("Duration", fmt.Sprintf("%d ms", rec.DurationMS))
	if saved {
		pprint.Info("inspect it with: inspiral history show %s", rec.ID)
	}
}

// progressObserver draws a progress bar when frames are not printed.
type progressObserver struct {
	bar *pprint.Progress
}

func newProgressObserver(p v1.OrbitParams, maxTicks int) *progressObserver {
	total := orbit.Budget(p.Radius, p.RadiusStep)
	if maxTicks > 0 && maxTicks < total {
		total = maxTicks
	}
	return &progressObserver{bar: pprint.NewProgress("inspiral", total, 40)}
}

func (o *progressObserver) ObserveFrame(_ context.Context, f v1.Frame) error {
	o.bar.Set(f.Tick)
	return nil
}

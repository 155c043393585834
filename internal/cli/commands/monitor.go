// inspiral monitor: follow runs published on the Redis channel.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/internal/sink"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

func NewMonitorCmd() *cobra.Command {
	var (
		format string
		runID  string
		once   bool
	)

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Stream frames that other inspiral runs publish to Redis",
		Example: `  inspiral monitor
  inspiral monitor --format json --run run-000007
  inspiral monitor --once`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			cfg := rt.Config.Redis

			stream, err := render.NewStream(pprint.Out, format)
			if err != nil {
				return errs.Wrap(err, errs.ErrValidation, "monitor.flags").WithResource("--format")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			if !rt.Flags.JSONOutput && format != render.FormatJSON {
				pprint.PrintBannerSmall()
				pprint.Info("following %s on %s (Ctrl+C to stop)", cfg.Channel, cfg.Addr)
			}

			return sink.Watch(ctx, cfg.Addr, cfg.Channel, rt.Log, func(msg sink.Message) error {
				if runID != "" && msg.RunID != runID {
					return nil
				}
				switch msg.Kind {
				case sink.KindFrame:
					if msg.Frame != nil {
						return stream.ObserveFrame(ctx, *msg.Frame)
					}
				case sink.KindDone:
					if msg.Run != nil && format != render.FormatJSON {
						printRecord(*msg.Run, false)
					}
					if once {
						cancel()
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", render.FormatTable, "Output format: table | json | none")
	cmd.Flags().StringVar(&runID, "run", "", "Only show frames of this run")
	cmd.Flags().BoolVar(&once, "once", false, "Exit after the first run finishes")
	return cmd
}

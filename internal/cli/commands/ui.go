// inspiral ui: animate the inspiral in the terminal.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/f9-o/inspiral/internal/orbit"
	"github.com/f9-o/inspiral/internal/render"
	"github.com/f9-o/inspiral/internal/tui"
)

func NewUICmd() *cobra.Command {
	var noRecord bool

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Animate the inspiral in an interactive terminal view",
		Example: `  inspiral ui
  INSPIRAL_RENDER_RATE_HZ=30 inspiral ui`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt := FromContext(cmd.Context())
			ctx := cmd.Context()
			cfg := rt.Config

			sess, err := newSession(ctx, rt, !noRecord)
			if err != nil {
				return err
			}

			app, err := tui.New(ctx, tui.Config{
				RateHz: cfg.Render.RateHz,
				Trail:  cfg.Render.Trail,
				Width:  cfg.Render.Width,
				Height: cfg.Render.Height,
				NewRunner: func(surface render.Surface) (*orbit.Runner, error) {
					// frames are paced by the TUI ticker
					return sess.newRunner(ctx, runSpec{Surface: surface, SurfaceName: "tui"})
				},
				Log:      rt.Log,
				LogLines: rt.LogLines,
			})
			if err != nil {
				return err
			}

			if err := tui.Run(ctx, app); err != nil {
				return fmt.Errorf("tui: %w", err)
			}
			if rec := app.Record(); rec != nil {
				printRecord(*rec, !noRecord)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not store runs in history")
	return cmd
}

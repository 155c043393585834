// Package cli defines the root Cobra command and global flag/context setup.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/f9-o/inspiral/internal/cli/commands"
	"github.com/f9-o/inspiral/internal/core/config"
	"github.com/f9-o/inspiral/internal/core/logger"
	"github.com/f9-o/inspiral/internal/core/state"
	"github.com/f9-o/inspiral/pkg/errs"
	"github.com/f9-o/inspiral/pkg/pprint"
)

// globalFlags holds values bound to persistent global flags.
var globalFlags struct {
	configFile string
	debug      bool
	jsonOutput bool
}

// current is the bundle built by PersistentPreRunE; closed after the command.
var current *commands.Runtime

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "inspiral",
		Short:         "inspiral: two black holes spiralling into each other, in your terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare `inspiral`: help func already prints banner
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "completion" || cmd.Name() == "help" {
				return nil
			}
			return initRuntime(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return closeRuntime()
		},
	}

	root.PersistentFlags().StringVarP(&globalFlags.configFile, "config", "c", "", "Path to inspiral.yaml or .toml (defaults to auto-discovery)")
	root.PersistentFlags().BoolVar(&globalFlags.debug, "debug", false, "Enable debug-level logging")
	root.PersistentFlags().BoolVar(&globalFlags.jsonOutput, "json", false, "Output in machine-readable JSON")

	root.AddCommand(
		commands.NewRunCmd(),
		commands.NewUICmd(),
		commands.NewInitCmd(),
		commands.NewHistoryCmd(),
		commands.NewExportCmd(),
		commands.NewMonitorCmd(),
		commands.NewVersionCmd(),
	)
	return root
}

// Execute runs the CLI. Called by main().
func Execute() {
	if err := execute(os.Args[1:]); err != nil {
		if ie := errs.AsInspiral(err); ie != nil {
			pprint.Error("%s", ie.UserMessage())
		} else {
			pprint.Error("%s", err)
		}
		os.Exit(1)
	}
}

func execute(args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)

	// Show banner before every help screen
	origHelp := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		pprint.PrintBanner(commands.Version, commands.BuildDate)
		origHelp(cmd, args)
	})

	err := rootCmd.Execute()
	// PostRun is skipped when RunE fails
	if cerr := closeRuntime(); err == nil {
		err = cerr
	}
	return err
}

// initRuntime loads config, logger, and state before each command runs.
func initRuntime(cmd *cobra.Command) error {
	cfg, err := config.Load(globalFlags.configFile)
	if err != nil {
		// init must work even when the current project file is broken
		if cmd.Name() != "init" {
			return err
		}
		cfg = config.Default()
	}

	// The TUI owns the terminal: route log lines into it instead of stderr.
	var logLines chan string
	if cmd.Name() == "ui" {
		logLines = make(chan string, 64)
		logger.SetTUISink(logLines)
	}

	home := config.Home()
	if err := os.MkdirAll(home, 0750); err != nil {
		return fmt.Errorf("create inspiral home: %w", err)
	}
	log, err := logger.Init(cfg.Log.Level, cfg.Log.Format, cfg.LogPath(), home, globalFlags.debug)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}

	db, err := state.Open(cfg.StatePath())
	if err != nil {
		return err
	}

	current = &commands.Runtime{
		Config: cfg,
		Log:    log,
		State:  db,
		Flags: commands.GlobalFlags{
			ConfigFile: globalFlags.configFile,
			Debug:      globalFlags.debug,
			JSONOutput: globalFlags.jsonOutput,
		},
		LogLines: logLines,
	}
	cmd.SetContext(commands.NewContext(cmd.Context(), current))
	return nil
}

func closeRuntime() error {
	rt := current
	current = nil
	return rt.Close()
}

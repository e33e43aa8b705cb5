package main

import (
	"fmt"

	"github.com/cpsk-tools/extreg"
	"github.com/cpsk-tools/extreg/internal/logging"
	"github.com/cpsk-tools/extreg/internal/settings"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds the state shared by all subcommands of one invocation.
type app struct {
	fs       afero.Fs
	settings *settings.Settings
	logger   zerolog.Logger
	closeLog func() error

	verbosity    int
	configPath   string
	settingsPath string
	dryRun       bool
	keepCaches   bool
}

// newRootCmd creates the command tree. Every call returns an independent
// tree so tests can execute commands repeatedly. The returned function
// closes the log file and must be called after Execute, whether it failed
// or not.
func newRootCmd() (*cobra.Command, func() error) {
	a := &app{
		fs:       afero.NewOsFs(),
		closeLog: func() error { return nil },
	}

	rootCmd := &cobra.Command{
		Use:   "extreg",
		Short: "Register pyRevit extensions",
		Long: `extreg adds and removes extension search paths in the pyRevit
configuration (core.userextensions in pyRevit_config.ini). It is meant to be
run by an installer after installing and before uninstalling an extension.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "pyRevit config file (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&a.settingsPath, "settings", "", "extreg settings file (default: $XDG_CONFIG_HOME/extreg/extreg.toml)")
	rootCmd.PersistentFlags().BoolVar(&a.dryRun, "dry-run", false, "Preview changes without writing them")

	rootCmd.AddCommand(
		newRegisterCmd(a),
		newUnregisterCmd(a),
		newListCmd(a),
		newVersionCmd(),
	)

	return rootCmd, a.close
}

func (a *app) setup(cmd *cobra.Command) error {
	s, err := settings.Load(a.settingsPath)
	if err != nil {
		return err
	}
	a.settings = s

	a.closeLog = logging.SetupLogger(logging.Options{
		Verbosity:  a.verbosity,
		File:       s.Log.File,
		MaxSizeMB:  s.Log.MaxSizeMB,
		MaxBackups: s.Log.MaxBackups,
		Console:    cmd.ErrOrStderr(),
	})
	a.logger = logging.GetLogger(cmd.Name())
	a.logger.Debug().Strs("args", cmd.Flags().Args()).Bool("dryRun", a.dryRun).Msg("Command started")

	return nil
}

func (a *app) close() error {
	err := a.closeLog()
	a.closeLog = func() error { return nil }

	return err
}

// registry builds a registry for the resolved pyRevit config.
func (a *app) registry() (*extreg.Registry, *extreg.FileStore) {
	override := a.configPath
	if override == "" {
		override = a.settings.PyRevit.Config
	}

	store := extreg.NewFileStore(a.fs, extreg.LocateConfig(a.fs, override))
	store.NoWrites = a.dryRun
	store.OnSkip = func(lineNo int, line string) {
		a.logger.Warn().Str("config", store.Path).Int("line", lineNo).Str("content", line).Msg("Skipping malformed config line")
	}

	r := extreg.NewRegistry(store)
	r.Section = a.settings.PyRevit.Section
	r.Key = a.settings.PyRevit.Key

	return r, store
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "extreg version %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", date)
		},
	}
}

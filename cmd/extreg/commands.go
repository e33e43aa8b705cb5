package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cpsk-tools/extreg"
	"github.com/cpsk-tools/extreg/internal/cleanup"
	"github.com/spf13/cobra"
)

func newRegisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "register <extension-path>",
		Short: "Add the directory containing an extension to pyRevit",
		Long: `Adds the parent directory of the given extension bundle to the pyRevit
extension search paths. Nothing is written if it is already registered.`,
		Example: `  extreg register "C:\Program Files\CPSK\CPSK.extension"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := extensionParent(args[0])
			if err != nil {
				return err
			}
			r, store := a.registry()

			added, err := r.Register(parent)
			if err != nil {
				a.logger.Error().Err(err).Str("config", store.Path).Str("path", parent).Msg("Register failed")

				return err
			}

			if added {
				a.logger.Info().Str("config", store.Path).Str("path", parent).Msg("Registered extension path")
				fmt.Fprintf(cmd.OutOrStdout(), "registered %s in %s\n", parent, store.Path)
			} else {
				a.logger.Info().Str("config", store.Path).Str("path", parent).Msg("Extension path already registered")
				fmt.Fprintf(cmd.OutOrStdout(), "%s already registered in %s\n", parent, store.Path)
			}

			return nil
		},
	}
}

func newUnregisterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unregister <extension-path>",
		Short: "Remove the directory containing an extension from pyRevit",
		Long: `Removes the parent directory of the given extension bundle from the pyRevit
extension search paths, then removes cached files and, if the installer
left a marker, uninstalls the companion pyRevit install. The cleanup steps
are best-effort: failures are logged but do not change the exit code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, err := extensionParent(args[0])
			if err != nil {
				return err
			}
			r, store := a.registry()

			removed, err := r.Unregister(parent)
			switch {
			case err != nil:
				a.logger.Error().Err(err).Str("config", store.Path).Str("path", parent).Msg("Unregister failed")
			case removed:
				a.logger.Info().Str("config", store.Path).Str("path", parent).Msg("Unregistered extension path")
				fmt.Fprintf(cmd.OutOrStdout(), "unregistered %s from %s\n", parent, store.Path)
			default:
				a.logger.Info().Str("config", store.Path).Str("path", parent).Msg("Extension path was not registered")
				fmt.Fprintf(cmd.OutOrStdout(), "%s not registered in %s\n", parent, store.Path)
			}

			if !a.keepCaches {
				a.cleanupPlan(parent).Run(cmd.Context())
			}

			return err
		},
	}

	cmd.Flags().BoolVar(&a.keepCaches, "keep-caches", false, "Skip cache cleanup and companion uninstall")

	return cmd
}

// extensionParent returns the directory registered for an extension bundle.
func extensionParent(ext string) (string, error) {
	if strings.TrimSpace(ext) == "" {
		return "", extreg.ErrEmptyPath
	}

	return extreg.ParentDir(ext), nil
}

func (a *app) cleanupPlan(parent string) *cleanup.Plan {
	cs := a.settings.Cleanup
	marker := a.settings.Companion.Marker
	if marker != "" && !filepath.IsAbs(marker) {
		marker = filepath.Join(parent, marker)
	}

	return &cleanup.Plan{
		Logger: a.logger,
		Steps: []cleanup.Step{
			{
				Name: "caches",
				Run: func(context.Context) error {
					if a.dryRun {
						a.logger.Info().Str("root", cs.Root).Strs("patterns", cs.Patterns).Msg("Dry run, not removing caches")

						return nil
					}
					removed, err := cleanup.Caches(a.fs, cs.Root, cs.Patterns)
					for _, p := range removed {
						a.logger.Info().Str("dir", p).Msg("Removed cache directory")
					}

					return err
				},
			},
			{
				Name: "companion",
				Run: func(ctx context.Context) error {
					if a.dryRun {
						a.logger.Info().Str("marker", marker).Msg("Dry run, not uninstalling companion")

						return nil
					}
					ran, err := cleanup.Companion(ctx, a.fs, cleanup.ExecRunner{}, marker, a.settings.Companion.Command)
					if ran && err == nil {
						a.logger.Info().Strs("command", a.settings.Companion.Command).Msg("Uninstalled companion")
					}

					return err
				},
			},
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered extension paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, store := a.registry()

			pl, err := r.List()
			if err != nil {
				return err
			}
			a.logger.Debug().Str("config", store.Path).Int("count", len(pl)).Msg("Listed extension paths")

			for _, p := range pl {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}

			return nil
		},
	}
}

// exitCode maps an error returned by the command tree to a process exit
// status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, extreg.ErrEmptyPath) {
		return 2
	}

	return 1
}

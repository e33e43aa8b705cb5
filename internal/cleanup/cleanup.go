// Package cleanup implements the best-effort steps run after an extension
// has been unregistered: removing cached build artifacts and uninstalling a
// companion dependency that was installed alongside the extension.
//
// Steps are independent. A failing step is logged and recorded but never
// stops the steps after it and nothing is rolled back.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"

	"github.com/cpsk-tools/extreg"
	"github.com/gobwas/glob"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Runner executes an external command.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the command and returns its combined output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Caches removes every directory below root whose slash separated path
// relative to root matches one of the glob patterns (** is supported). A
// missing root is not an error. It returns the removed directories and all
// errors encountered, joined.
func Caches(fsys afero.Fs, root string, patterns []string) ([]string, error) {
	var errs []error

	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := extreg.CompileGlob(p)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid cache pattern %q: %w", p, err))

			continue
		}
		globs = append(globs, g)
	}

	if root == "" || len(globs) == 0 {
		return nil, errors.Join(errs...)
	}

	if ok, err := afero.DirExists(fsys, root); err != nil || !ok {
		return nil, errors.Join(append(errs, err)...)
	}

	var removed []string
	walkErr := afero.Walk(fsys, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			errs = append(errs, err)
			if info != nil && info.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}
		if !info.IsDir() || path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			errs = append(errs, err)

			return nil
		}
		rel = filepath.ToSlash(rel)

		if !matchAny(globs, rel) {
			return nil
		}

		if err := fsys.RemoveAll(path); err != nil {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", path, err))
		} else {
			removed = append(removed, path)
		}

		return filepath.SkipDir
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}

	return removed, errors.Join(errs...)
}

func matchAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}

	return false
}

// Companion uninstalls a companion dependency if the marker file exists.
// The marker is left behind by the installer when it installed the
// dependency itself, so dependencies the user installed on their own are
// never touched. The marker is removed after the command succeeded. It
// reports whether the uninstall command was run.
func Companion(ctx context.Context, fsys afero.Fs, r Runner, marker string, command []string) (bool, error) {
	if marker == "" {
		return false, nil
	}

	ok, err := afero.Exists(fsys, marker)
	if err != nil {
		return false, fmt.Errorf("failed to check marker %s: %w", marker, err)
	}
	if !ok {
		return false, nil
	}

	if len(command) == 0 || command[0] == "" {
		return false, fmt.Errorf("marker %s present but no uninstall command configured", marker)
	}

	out, err := r.Run(ctx, command[0], command[1:]...)
	if err != nil {
		return true, fmt.Errorf("companion uninstall %q failed: %w (output: %s)", command[0], err, out)
	}

	if err := fsys.Remove(marker); err != nil {
		return true, fmt.Errorf("failed to remove marker %s: %w", marker, err)
	}

	return true, nil
}

// Step is a single named cleanup action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result records the outcome of one step.
type Result struct {
	Step string
	Err  error
}

// Report is the outcome of a Plan run, in step order.
type Report []Result

// Err returns all step errors joined, or nil if every step succeeded.
func (r Report) Err() error {
	errs := make([]error, 0, len(r))
	for _, res := range r {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Step, res.Err))
		}
	}

	return errors.Join(errs...)
}

// Plan runs steps sequentially.
type Plan struct {
	Steps  []Step
	Logger zerolog.Logger
}

// Run executes every step in order. Failures are logged and recorded but
// never abort the remaining steps. A cancelled context skips the steps that
// have not started yet.
func (p *Plan) Run(ctx context.Context) Report {
	report := make(Report, 0, len(p.Steps))
	for _, s := range p.Steps {
		if err := ctx.Err(); err != nil {
			p.Logger.Warn().Str("step", s.Name).Err(err).Msg("Skipping cleanup step")
			report = append(report, Result{Step: s.Name, Err: err})

			continue
		}

		p.Logger.Debug().Str("step", s.Name).Msg("Running cleanup step")
		err := s.Run(ctx)
		if err != nil {
			p.Logger.Warn().Str("step", s.Name).Err(err).Msg("Cleanup step failed")
		} else {
			p.Logger.Info().Str("step", s.Name).Msg("Cleanup step completed")
		}
		report = append(report, Result{Step: s.Name, Err: err})
	}

	return report
}

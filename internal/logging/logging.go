// Package logging configures the zerolog logger used by the extreg command.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "extreg"

// Options controls where and how much is logged.
type Options struct {
	Verbosity  int
	File       string // empty selects DefaultLogFile
	MaxSizeMB  int
	MaxBackups int
	Console    io.Writer // defaults to os.Stderr
}

// SetupLogger configures the global logger based on verbosity level.
// Output goes to the console and to an append-only, timestamped log file
// that is rotated by size. It returns a function that closes the log file.
func SetupLogger(opts Options) func() error {
	zerolog.SetGlobalLevel(levelFor(opts.Verbosity))

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        console,
			TimeFormat: time.Kitchen,
		},
	}

	logFile := opts.File
	if logFile == "" {
		logFile = DefaultLogFile()
	}

	var err error
	closer := func() error { return nil }
	if err = os.MkdirAll(filepath.Dir(logFile), 0o755); err == nil {
		lj := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		writers = append(writers, lj)
		closer = lj.Close
	}

	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()

	if err != nil {
		log.Warn().Err(err).Str("path", logFile).Msg("Failed to create log directory, logging to console only")
	}

	if opts.Verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", opts.Verbosity).Str("logFile", logFile).Msg("Logger initialized")

	return closer
}

func levelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// DefaultLogFile returns the log file below the XDG state directory,
// e.g. ~/.local/state/extreg/extreg.log.
func DefaultLogFile() string {
	return filepath.Join(xdg.StateHome, appName, appName+".log")
}

// GetLogger returns a contextualized logger with the given name.
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

package extreg

import (
	"os"
	"path/filepath"

	"github.com/gopasspw/gopass/pkg/appdir"
	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/spf13/afero"
)

const (
	// HostName is the application directory name used by pyRevit.
	HostName = "pyRevit"
	// ConfigFile is the name of the pyRevit configuration file.
	ConfigFile = "pyRevit_config.ini"
)

// UserConfigPath returns the per-user pyRevit config location,
// e.g. %APPDATA%\pyRevit\pyRevit_config.ini.
func UserConfigPath() string {
	return filepath.Join(appdir.New(HostName).UserConfig(), ConfigFile)
}

// ConfigCandidates returns all locations where a pyRevit config might be
// found, in order of preference.
func ConfigCandidates() []string {
	locs := []string{
		UserConfigPath(),
	}

	// machine wide installs keep their config below %PROGRAMDATA%
	if pd := os.Getenv("PROGRAMDATA"); pd != "" {
		locs = append(locs, filepath.Join(pd, HostName, ConfigFile))
	}

	return locs
}

// LocateConfig determines which pyRevit config file to operate on.
//
// Behavior:
// - A non-empty override is returned as is
// - Otherwise the first existing candidate is used
// - If none exists the per-user location is returned so it can be created
func LocateConfig(fsys afero.Fs, override string) string {
	if override != "" {
		debug.V(1).Log("using config override %s", override)

		return override
	}

	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	locs := ConfigCandidates()
	debug.V(1).Log("trying to find pyRevit config in %v", locs)
	for _, p := range locs {
		ok, err := afero.Exists(fsys, p)
		if err != nil {
			debug.V(1).Log("failed to stat %s: %s", p, err)

			continue
		}
		if ok {
			debug.V(1).Log("found pyRevit config at %s", p)

			return p
		}
	}

	debug.V(1).Log("no pyRevit config found, defaulting to %s", locs[0])

	return locs[0]
}

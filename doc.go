// Package extreg registers pyRevit extension search paths in the pyRevit
// INI configuration file. It is meant to be driven by an installer at
// post-install and pre-uninstall time and only ever touches a single key
// (core.userextensions by default), leaving every other entry intact.
//
// The INI support is intentionally small: comments and blank lines are
// dropped, malformed lines are skipped and the file is always rewritten in
// a canonical, sorted form. We do not attempt to retain the original
// formatting of the file.
//
// # Usage
//
// Register the directory containing an extension bundle:
//
//	added, err := extreg.Register(cfgPath, extreg.ParentDir(`C:\Tools\CPSK.extension`))
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Remove it again on uninstall:
//
//	removed, err := extreg.Unregister(cfgPath, `C:\Tools`)
//
// Both operations are idempotent. If nothing changes the file is not
// written at all.
//
// # Stores
//
// Registry works on a Store, i.e. anything that can load and save a
// Document. FileStore implements it on top of an afero.Fs, so tests can use
// an in-memory filesystem:
//
//	r := extreg.NewRegistry(extreg.NewFileStore(afero.NewMemMapFs(), "/cfg.ini"))
//	_, _ = r.Register("/opt/extensions")
//
// # Path lists
//
// The value of core.userextensions is a bracketed list of double quoted
// paths, e.g.
//
//	userextensions = ["C:/Tools", "D:/Other"]
//
// Paths are compared after normalization (slash direction, duplicate and
// trailing separators). Comparison is case-sensitive.
//
// # Known limitations
//
//   - There is no locking. Concurrent writers to the same file race.
//   - Keys and values are trimmed, quoting inside values is not interpreted.
//   - Multi-line values are not supported.
package extreg

package extreg

import (
	"fmt"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
)

const (
	// DefaultSection is the pyRevit config section holding the extension list.
	DefaultSection = "core"
	// DefaultKey is the pyRevit config key holding the extension list.
	DefaultKey = "userextensions"
)

// Registry adds and removes extension search paths from a path list value
// stored in a Store.
//
// Every call reads the document fresh from the store, mutates it in memory
// and writes it back only when something changed. There is no state kept
// between calls and no locking.
type Registry struct {
	store   Store
	Section string
	Key     string
}

// NewRegistry creates a registry on top of the given store, using the
// default pyRevit section and key.
func NewRegistry(s Store) *Registry {
	return &Registry{
		store:   s,
		Section: DefaultSection,
		Key:     DefaultKey,
	}
}

// String implements fmt.Stringer for debugging.
func (r *Registry) String() string {
	return fmt.Sprintf("Registry{Section: %s - Key: %s - Store: %T}", r.Section, r.Key, r.store)
}

// Register adds path to the list unless an entry with the same normalized
// form is already present. The path is stored as given (modulo slash
// direction, see PathList.Encode). It reports whether the path was newly
// registered. If it was already present the store is not written.
func (r *Registry) Register(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, ErrEmptyPath
	}

	d, err := r.store.Load()
	if err != nil {
		return false, err
	}

	d.EnsureSection(r.Section)
	raw, _ := d.Get(r.Section, r.Key)

	pl, added := DecodePathList(raw).Add(path)
	if !added {
		debug.V(1).Log("%q already registered in %s.%s", path, r.Section, r.Key)

		return false, nil
	}

	d.Set(r.Section, r.Key, pl.Encode())
	if err := r.store.Save(d); err != nil {
		return false, err
	}

	debug.Log("registered %q in %s.%s", path, r.Section, r.Key)

	return true, nil
}

// Unregister removes every entry that normalizes to the same path. When the
// list becomes empty the key is removed entirely. A missing config loads as
// an empty document and is never created. It reports whether
// anything was removed. If nothing was removed the store is not written.
func (r *Registry) Unregister(path string) (bool, error) {
	if strings.TrimSpace(path) == "" {
		return false, ErrEmptyPath
	}

	d, err := r.store.Load()
	if err != nil {
		return false, err
	}

	raw, found := d.Get(r.Section, r.Key)
	if !found {
		debug.V(1).Log("no %s.%s key, nothing to unregister", r.Section, r.Key)

		return false, nil
	}

	pl, removed := DecodePathList(raw).Remove(path)
	if removed == 0 {
		debug.V(1).Log("%q not registered in %s.%s", path, r.Section, r.Key)

		return false, nil
	}

	if len(pl) > 0 {
		d.Set(r.Section, r.Key, pl.Encode())
	} else {
		d.Unset(r.Section, r.Key)
	}

	if err := r.store.Save(d); err != nil {
		return false, err
	}

	debug.Log("unregistered %q (%d entries) from %s.%s", path, removed, r.Section, r.Key)

	return true, nil
}

// List returns the currently registered paths.
func (r *Registry) List() (PathList, error) {
	d, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	raw, _ := d.Get(r.Section, r.Key)

	return DecodePathList(raw), nil
}

// Register adds path to the extension list of the pyRevit config at
// configPath on the OS filesystem.
func Register(configPath, path string) (bool, error) {
	return NewRegistry(NewFileStore(nil, configPath)).Register(path)
}

// Unregister removes path from the extension list of the pyRevit config at
// configPath on the OS filesystem.
func Unregister(configPath, path string) (bool, error) {
	return NewRegistry(NewFileStore(nil, configPath)).Unregister(path)
}

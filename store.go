package extreg

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/spf13/afero"
)

// Store loads and saves a Document. The file on disk (or whatever backs the
// store) is the only source of truth, a Store must not cache documents
// between calls.
type Store interface {
	Load() (*Document, error)
	Save(*Document) error
}

// FileStore is a Store backed by a single file on an afero.Fs.
//
// Fields:
// - Path: location of the INI file
// - NoWrites: if true, Save only logs and never touches the filesystem
// - OnSkip: optional handler for malformed lines encountered by Load
type FileStore struct {
	fs       afero.Fs
	Path     string
	NoWrites bool
	OnSkip   SkipFunc
}

// NewFileStore creates a store for path on the given filesystem. A nil fs
// selects the OS filesystem.
func NewFileStore(fsys afero.Fs, path string) *FileStore {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	return &FileStore{
		fs:   fsys,
		Path: path,
	}
}

// Load reads and parses the file. A missing file yields an empty document.
func (s *FileStore) Load() (*Document, error) {
	fh, err := s.fs.Open(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			debug.V(1).Log("config %s does not exist, starting empty", s.Path)

			return NewDocument(), nil
		}

		return nil, fmt.Errorf("%w from %s: %w", ErrReadConfig, s.Path, err)
	}
	defer fh.Close() //nolint:errcheck

	var opts []ParseOption
	if s.OnSkip != nil {
		opts = append(opts, WithSkipHandler(s.OnSkip))
	}

	d, err := ReadDocument(fh, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w from %s: %w", ErrReadConfig, s.Path, err)
	}
	debug.V(3).Log("loaded config from %s:\n%s", s.Path, d)

	return d, nil
}

// Save serializes the document and replaces the file. The new content is
// written to a temporary file in the same directory first and then renamed
// over the target. If the rename fails the file is written in place.
func (s *FileStore) Save(d *Document) error {
	if s.NoWrites {
		debug.V(1).Log("not writing changes to %s (noWrites):\n%s", s.Path, d)

		return nil
	}

	dir := filepath.Dir(s.Path)
	if err := s.fs.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("%w %q for %q: %w", ErrCreateConfigDir, dir, s.Path, err)
	}

	buf := d.Bytes()
	perm := fs.FileMode(0o600)
	if fi, err := s.fs.Stat(s.Path); err == nil {
		perm = fi.Mode().Perm()
	}

	if err := s.replace(dir, buf, perm); err != nil {
		debug.V(1).Log("atomic replace of %s failed, writing in place: %s", s.Path, err)
		if err := afero.WriteFile(s.fs, s.Path, buf, perm); err != nil {
			return fmt.Errorf("%w to %s: %w", ErrWriteConfig, s.Path, err)
		}
	}

	debug.V(1).Log("wrote config to %s", s.Path)

	return nil
}

func (s *FileStore) replace(dir string, buf []byte, perm fs.FileMode) error {
	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)

		return err
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)

		return err
	}
	if err := s.fs.Chmod(tmpName, perm); err != nil {
		debug.V(3).Log("failed to chmod %s: %s", tmpName, err)
	}
	if err := s.fs.Rename(tmpName, s.Path); err != nil {
		_ = s.fs.Remove(tmpName)

		return err
	}

	return nil
}

// MemStore is a Store that keeps the serialized document in memory. It is
// mostly useful for tests and dry runs.
type MemStore struct {
	Data   []byte
	Writes int
}

// Load parses the stored bytes.
func (m *MemStore) Load() (*Document, error) {
	d, err := ReadDocument(bytes.NewReader(m.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
	}

	return d, nil
}

// Save replaces the stored bytes.
func (m *MemStore) Save(d *Document) error {
	m.Data = d.Bytes()
	m.Writes++

	return nil
}

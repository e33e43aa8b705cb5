package extreg

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = "/appdata/pyRevit/pyRevit_config.ini"

func newMemRegistry(t *testing.T, content string) (*Registry, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	if content != "" {
		require.NoError(t, afero.WriteFile(fs, testConfig, []byte(content), 0o644))
	}

	return NewRegistry(NewFileStore(fs, testConfig)), fs
}

func readConfig(t *testing.T, fs afero.Fs) string {
	t.Helper()

	buf, err := afero.ReadFile(fs, testConfig)
	require.NoError(t, err)

	return string(buf)
}

func TestRegisterMissingConfig(t *testing.T) {
	t.Parallel()

	r, fs := newMemRegistry(t, "")

	added, err := r.Register(ParentDir(`C:\Tools\CPSK.extension`))
	require.NoError(t, err)
	assert.True(t, added)

	assert.Equal(t, "[core]\nuserextensions = [\"C:/Tools\"]\n\n", readConfig(t, fs))
}

func TestRegisterAppends(t *testing.T) {
	t.Parallel()

	r, fs := newMemRegistry(t, "[core]\nuserextensions = [\"C:/Other\"]\n")

	added, err := r.Register(ParentDir(`C:\Tools\CPSK.extension`))
	require.NoError(t, err)
	assert.True(t, added)

	d := ParseBytes([]byte(readConfig(t, fs)))
	v, found := d.Get("core", "userextensions")
	require.True(t, found)
	assert.Equal(t, `["C:/Other", "C:/Tools"]`, v)
}

func TestRegisterKeepsOtherEntries(t *testing.T) {
	t.Parallel()

	in := `[environment]
clones = {"master": "C:/pyRevit-Master"}
[core]
checkupdates = false
bincache = true
`
	r, fs := newMemRegistry(t, in)

	_, err := r.Register("D:/ext")
	require.NoError(t, err)

	want := ParseBytes([]byte(in))
	want.Set("core", "userextensions", `["D:/ext"]`)
	assert.True(t, want.Equal(ParseBytes([]byte(readConfig(t, fs)))))
}

func TestRegisterIdempotent(t *testing.T) {
	t.Parallel()

	r, fs := newMemRegistry(t, "; hand written\n[core]\nuserextensions=[\"C:/Other\"]\n")

	added, err := r.Register(`C:\Tools`)
	require.NoError(t, err)
	require.True(t, added)
	first := readConfig(t, fs)

	for _, p := range []string{`C:\Tools`, "C:/Tools", "C:/Tools/", `C:\\Tools\`} {
		added, err = r.Register(p)
		require.NoError(t, err)
		assert.False(t, added, p)
		assert.Equal(t, first, readConfig(t, fs), p)
	}
}

func TestRegisterNoWriteWhenPresent(t *testing.T) {
	t.Parallel()

	in := "; keep me\n[core]\nuserextensions = [ 'C:\\Tools' ]\n"
	r, fs := newMemRegistry(t, in)

	added, err := r.Register("C:/Tools")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, in, readConfig(t, fs), "file must not be rewritten")
}

func TestRegisterEmptyPath(t *testing.T) {
	t.Parallel()

	r, _ := newMemRegistry(t, "")

	_, err := r.Register("  ")
	require.ErrorIs(t, err, ErrEmptyPath)

	_, err = r.Unregister("")
	require.ErrorIs(t, err, ErrEmptyPath)
}

func TestUnregisterLastEntryRemovesKey(t *testing.T) {
	t.Parallel()

	r, fs := newMemRegistry(t, "[core]\nuserextensions = [\"C:/Tools\"]\ncheckupdates = true\n")

	removed, err := r.Unregister(ParentDir(`C:\Tools\CPSK.extension`))
	require.NoError(t, err)
	assert.True(t, removed)

	d := ParseBytes([]byte(readConfig(t, fs)))
	_, found := d.Get("core", "userextensions")
	assert.False(t, found)
	v, _ := d.Get("core", "checkupdates")
	assert.Equal(t, "true", v)
}

func TestUnregisterKeepsOthers(t *testing.T) {
	t.Parallel()

	r, fs := newMemRegistry(t, "[core]\nuserextensions = [\"C:/Tools\", \"C:/Other\"]\n")

	removed, err := r.Unregister("C:/Tools")
	require.NoError(t, err)
	assert.True(t, removed)

	assert.Equal(t, "[core]\nuserextensions = [\"C:/Other\"]\n\n", readConfig(t, fs))
}

func TestUnregisterNoop(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		content string
	}{
		{name: "no core section", content: "[other]\na = b\n"},
		{name: "no key", content: "[core]\ncheckupdates = true\n"},
		{name: "not registered", content: "; comment\n[core]\nuserextensions = [\"C:/Other\"]\n"},
		{name: "unrecognized value", content: "[core]\nuserextensions = C:/Tools\n"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r, fs := newMemRegistry(t, tc.content)

			removed, err := r.Unregister("C:/Tools")
			require.NoError(t, err)
			assert.False(t, removed)
			assert.Equal(t, tc.content, readConfig(t, fs))
		})
	}
}

func TestUnregisterMissingConfig(t *testing.T) {
	t.Parallel()

	r, fs := newMemRegistry(t, "")

	removed, err := r.Unregister("C:/Tools")
	require.NoError(t, err)
	assert.False(t, removed)

	exists, err := afero.Exists(fs, testConfig)
	require.NoError(t, err)
	assert.False(t, exists, "unregister must not create the config")
}

func TestRegisterUnregisterInverse(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		"",
		"[core]\nuserextensions = [\"C:/Other\"]\n",
		"[core]\nuserextensions = [\"C:/Other\", \"D:/More\"]\n[x]\ny = z\n",
	} {
		r, fs := newMemRegistry(t, in)

		_, err := r.Register(`C:\ext\foo`)
		require.NoError(t, err)
		removed, err := r.Unregister("C:/ext/foo/")
		require.NoError(t, err)
		assert.True(t, removed, in)

		pl, err := r.List()
		require.NoError(t, err)
		assert.False(t, pl.Contains("C:/ext/foo"), in)

		if in == "" {
			_, found := ParseBytes([]byte(readConfig(t, fs))).Get("core", "userextensions")
			assert.False(t, found)
		}
	}
}

func TestRegistryCustomKey(t *testing.T) {
	t.Parallel()

	m := &MemStore{}
	r := NewRegistry(m)
	r.Section = "extensions"
	r.Key = "paths"

	added, err := r.Register("/opt/a")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, m.Writes)
	assert.Equal(t, "[extensions]\npaths = [\"/opt/a\"]\n\n", string(m.Data))

	pl, err := r.List()
	require.NoError(t, err)
	assert.Equal(t, PathList{"/opt/a"}, pl)

	removed, err := r.Unregister("/opt/a/")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 2, m.Writes)
	assert.Equal(t, "[extensions]\n\n", string(m.Data))

	removed, err = r.Unregister("/opt/a")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, 2, m.Writes)
}

func TestRegisterOnDisk(t *testing.T) {
	t.Parallel()

	td := t.TempDir()
	cfg := filepath.Join(td, "pyRevit", ConfigFile)

	added, err := Register(cfg, `C:\Tools`)
	require.NoError(t, err)
	assert.True(t, added)

	buf, err := os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "[core]\nuserextensions = [\"C:/Tools\"]\n\n", string(buf))

	removed, err := Unregister(cfg, "C:/Tools")
	require.NoError(t, err)
	assert.True(t, removed)

	buf, err = os.ReadFile(cfg)
	require.NoError(t, err)
	assert.Equal(t, "[core]\n\n", string(buf))

	entries, err := os.ReadDir(filepath.Dir(cfg))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files must be left behind")
}

func TestRegisterKeepsLongLines(t *testing.T) {
	t.Parallel()

	big := strings.Repeat("x", 70*1024)
	r, fs := newMemRegistry(t, "[aaa]\nbig = "+big+"\n[core]\nuserextensions = [\"C:/Other\"]\n[zzz]\nkeep = me\n")

	added, err := r.Register(`C:\Tools`)
	require.NoError(t, err)
	assert.True(t, added)

	assert.Equal(t, "[aaa]\nbig = "+big+"\n\n"+
		"[core]\nuserextensions = [\"C:/Other\", \"C:/Tools\"]\n\n"+
		"[zzz]\nkeep = me\n\n", readConfig(t, fs))
}

func TestRegistryReadErrorAborts(t *testing.T) {
	t.Parallel()

	mfs := afero.NewMemMapFs()
	content := []byte("[core]\nuserextensions = [\"C:/Tools\"]\n")
	require.NoError(t, afero.WriteFile(mfs, testConfig, content, 0o644))

	r := NewRegistry(NewFileStore(deniedFs{Fs: mfs, err: iofs.ErrPermission}, testConfig))

	removed, err := r.Unregister("C:/Tools")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadConfig)
	assert.ErrorIs(t, err, iofs.ErrPermission)
	assert.False(t, removed)

	added, err := r.Register("C:/Other")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReadConfig)
	assert.False(t, added)

	_, err = r.List()
	require.Error(t, err)

	buf, err := afero.ReadFile(mfs, testConfig)
	require.NoError(t, err)
	assert.Equal(t, content, buf, "config must be left untouched")
}

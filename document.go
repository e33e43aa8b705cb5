package extreg

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"maps"
	"strings"

	"github.com/gopasspw/gopass/pkg/debug"
	"github.com/gopasspw/gopass/pkg/set"
)

// NoSection is the name of the synthetic section that holds keys appearing
// before the first section header.
const NoSection = ""

var keyValueTpl = "%s = %s\n"

// Document represents a single INI file as a mapping of section to
// key-value pairs.
//
// A Document always contains the NoSection bucket. Sections are emitted in
// sorted order when serialized, so the in-memory order carries no meaning.
//
// Note: Document is not thread-safe.
type Document struct {
	sections map[string]map[string]string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		sections: map[string]map[string]string{
			NoSection: {},
		},
	}
}

// SkipFunc is called for every line the parser ignores because it is
// neither blank, a comment, a section header nor a key-value pair.
// lineNo is 1-based.
type SkipFunc func(lineNo int, line string)

// ParseOption configures ParseDocument.
type ParseOption func(*parser)

// WithSkipHandler registers a callback for malformed lines.
func WithSkipHandler(fn SkipFunc) ParseOption {
	return func(p *parser) {
		p.onSkip = fn
	}
}

type parser struct {
	onSkip SkipFunc
}

// maxLineSize bounds a single line, well above the 64 KiB bufio default.
const maxLineSize = 16 << 20

// ParseDocument parses an INI document from the given reader. It never fails.
// Malformed lines are silently skipped (but reported to a skip handler, if
// any). A read error stops parsing and returns what was read so far, use
// ReadDocument when the document is going to be written back.
func ParseDocument(r io.Reader, opts ...ParseOption) *Document {
	d, err := ReadDocument(r, opts...)
	if err != nil {
		debug.Log("%s", err)
	}

	return d
}

// ReadDocument parses an INI document like ParseDocument but returns read
// errors, including lines longer than 16 MiB. The returned document is
// incomplete if err is not nil.
func ReadDocument(r io.Reader, opts ...ParseOption) (*Document, error) {
	p := &parser{}
	for _, o := range opts {
		o(p)
	}

	d := NewDocument()

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	section := NoSection
	var lineNo int
	for s.Scan() {
		lineNo++
		line := strings.TrimSpace(s.Text())

		if line == "" {
			continue
		}
		// Handle full-line comments
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		// Handle section headers
		if name, ok := parseSectionHeader(line); ok {
			section = name
			d.EnsureSection(section)

			continue
		}

		k, v, found := strings.Cut(line, "=")
		if !found {
			debug.V(3).Log("no valid KV-pair on line %d: %q", lineNo, line)
			if p.onSkip != nil {
				p.onSkip(lineNo, s.Text())
			}

			continue
		}

		d.Set(section, strings.TrimSpace(k), strings.TrimSpace(v))
	}

	if err := s.Err(); err != nil {
		return d, fmt.Errorf("failed to read document after line %d: %w", lineNo, err)
	}

	return d, nil
}

// ParseBytes is a convenience wrapper around ParseDocument.
func ParseBytes(buf []byte, opts ...ParseOption) *Document {
	return ParseDocument(bytes.NewReader(buf), opts...)
}

func parseSectionHeader(line string) (string, bool) {
	if len(line) < 2 || line[0] != '[' || line[len(line)-1] != ']' {
		return "", false
	}

	return strings.TrimSpace(line[1 : len(line)-1]), true
}

// Get returns the value of key in section.
func (d *Document) Get(section, key string) (string, bool) {
	if d == nil {
		return "", false
	}
	v, found := d.sections[section][key]

	return v, found
}

// Set stores value under key in section, creating the section if needed.
func (d *Document) Set(section, key, value string) {
	d.EnsureSection(section)[key] = value
}

// Unset removes key from section. It reports whether the key was present.
// The section itself is kept, even if it becomes empty.
func (d *Document) Unset(section, key string) bool {
	kv, found := d.sections[section]
	if !found {
		return false
	}
	if _, found := kv[key]; !found {
		return false
	}
	delete(kv, key)

	return true
}

// HasSection reports whether the section exists (possibly empty).
func (d *Document) HasSection(section string) bool {
	if d == nil {
		return false
	}
	_, found := d.sections[section]

	return found
}

// EnsureSection makes sure the section exists and returns its key-value map.
func (d *Document) EnsureSection(section string) map[string]string {
	if d.sections == nil {
		d.sections = map[string]map[string]string{NoSection: {}}
	}
	kv, found := d.sections[section]
	if !found {
		kv = make(map[string]string, 8)
		d.sections[section] = kv
	}

	return kv
}

// Sections returns the sorted names of all named sections. The NoSection
// bucket is not included.
func (d *Document) Sections() []string {
	names := make([]string, 0, len(d.sections))
	for name := range d.sections {
		if name == NoSection {
			continue
		}
		names = append(names, name)
	}

	return set.Sorted(names)
}

// Keys returns the sorted keys of the given section.
func (d *Document) Keys(section string) []string {
	keys := make([]string, 0, len(d.sections[section]))
	for k := range d.sections[section] {
		keys = append(keys, k)
	}

	return set.Sorted(keys)
}

// Equal reports whether both documents hold the same sections with the same
// key-value pairs. An empty NoSection bucket equals a missing one.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	if !maps.Equal(d.sections[NoSection], o.sections[NoSection]) {
		return false
	}

	return maps.EqualFunc(d.named(), o.named(), func(a, b map[string]string) bool {
		return maps.Equal(a, b)
	})
}

func (d *Document) named() map[string]map[string]string {
	out := make(map[string]map[string]string, len(d.sections))
	for name, kv := range d.sections {
		if name == NoSection {
			continue
		}
		out[name] = kv
	}

	return out
}

// WriteTo serializes the document in its canonical form: the NoSection
// bucket first (without a header), then every section in lexicographic
// order with its keys sorted, each block followed by a blank line.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64

	write := func(format string, args ...any) error {
		c, err := fmt.Fprintf(bw, format, args...)
		n += int64(c)

		return err
	}

	if keys := d.Keys(NoSection); len(keys) > 0 {
		for _, k := range keys {
			if err := write(keyValueTpl, k, d.sections[NoSection][k]); err != nil {
				return n, err
			}
		}
		if err := write("\n"); err != nil {
			return n, err
		}
	}

	for _, name := range d.Sections() {
		if err := write("[%s]\n", name); err != nil {
			return n, err
		}
		for _, k := range d.Keys(name) {
			if err := write(keyValueTpl, k, d.sections[name][k]); err != nil {
				return n, err
			}
		}
		if err := write("\n"); err != nil {
			return n, err
		}
	}

	return n, bw.Flush()
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)

	return buf.Bytes()
}

// String implements fmt.Stringer.
func (d *Document) String() string {
	return string(d.Bytes())
}

package index

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/kamusis/pyckles/errdefs"
)

// Load reads a catalogue listing from path.
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalogue listing %s: %w", path, err)
	}
	defer f.Close()

	idx, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("invalid catalogue listing %s: %w", path, err)
	}
	return idx, nil
}

// Parse reads a whitespace separated listing. Blank lines and lines starting
// with '#' are skipped; the first remaining line is the header, which must
// name at least the "name" and "filename" columns.
//
// Duplicate names are kept: Resolve reports them as ambiguous.
func Parse(r io.Reader) (*Index, error) {
	idx := &Index{byName: map[string][]int{}}
	pos := map[string]int{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		if idx.Columns == nil {
			for i, c := range fields {
				c = strings.ToLower(c)
				if _, dup := pos[c]; dup {
					return nil, fmt.Errorf("line %d: duplicate column %q", lineNo, c)
				}
				pos[c] = i
				idx.Columns = append(idx.Columns, c)
			}
			for _, required := range []string{ColName, ColFilename} {
				if _, ok := pos[required]; !ok {
					return nil, fmt.Errorf("line %d: header lacks %q column", lineNo, required)
				}
			}
			continue
		}

		if len(fields) != len(idx.Columns) {
			return nil, fmt.Errorf("line %d: got %d fields, header has %d", lineNo, len(fields), len(idx.Columns))
		}
		e := Entry{Name: fields[pos[ColName]], Filename: fields[pos[ColFilename]]}
		for i, c := range idx.Columns {
			switch c {
			case ColName, ColFilename:
			case ColHash:
				e.Hash = optional(fields[i])
			case ColType:
				e.Type = optional(fields[i])
			default:
				if e.Extra == nil {
					e.Extra = map[string]string{}
				}
				e.Extra[c] = fields[i]
			}
		}
		key := Normalize(e.Name)
		idx.byName[key] = append(idx.byName[key], len(idx.entries))
		idx.entries = append(idx.entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read listing: %w", err)
	}
	if idx.Columns == nil {
		return nil, fmt.Errorf("listing has no header")
	}
	return idx, nil
}

func optional(v string) string {
	if v == absent {
		return ""
	}
	return v
}

// Normalize returns the lookup key for a catalogue name: surrounding space
// trimmed and case folded.
func Normalize(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Resolve returns the single entry whose name matches name case-insensitively.
func (ix *Index) Resolve(name string) (Entry, error) {
	key := Normalize(name)
	if key == "" {
		return Entry{}, fmt.Errorf("empty catalogue name: %w", errdefs.ErrInvalidValue)
	}
	hits := ix.byName[key]
	if len(hits) != 1 {
		return Entry{}, &LookupError{Name: name, Matches: len(hits)}
	}
	return ix.entries[hits[0]], nil
}

// Len returns the number of entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Entries returns a copy of the entries in listing order.
func (ix *Index) Entries() []Entry { return slices.Clone(ix.entries) }

// Names returns the catalogue names in listing order.
func (ix *Index) Names() []string {
	out := make([]string, len(ix.entries))
	for i, e := range ix.entries {
		out[i] = e.Name
	}
	return out
}

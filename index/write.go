package index

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// absent marks an empty optional cell in a written listing.
const absent = "-"

// Write serializes ix in listing form, one row per entry in listing order.
// Parse(Write(ix)) reproduces ix.
func Write(w io.Writer, ix *Index) error {
	if ix == nil || len(ix.Columns) == 0 {
		return fmt.Errorf("no columns to write")
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, strings.Join(ix.Columns, " ")); err != nil {
		return err
	}
	for _, e := range ix.entries {
		row, err := e.fields(ix.Columns)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(bw, strings.Join(row, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Table renders the listing as an aligned table for diagnostics.
func (ix *Index) Table() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(ix.Columns, "\t"))
	for _, e := range ix.entries {
		row, _ := e.fields(ix.Columns)
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()
	return b.String()
}

func (e Entry) fields(columns []string) ([]string, error) {
	row := make([]string, len(columns))
	for i, c := range columns {
		var v string
		switch c {
		case ColName:
			v = e.Name
		case ColFilename:
			v = e.Filename
		case ColHash:
			v = e.Hash
		case ColType:
			v = e.Type
		default:
			v = e.Extra[c]
		}
		if v == "" {
			v = absent
		}
		if strings.ContainsAny(v, " \t\n") {
			return nil, fmt.Errorf("entry %q: column %q value %q cannot be written", e.Name, c, v)
		}
		row[i] = v
	}
	return row, nil
}

// New builds an index from entries. The header is name, filename and,
// when any entry uses them, hash and type.
func New(entries []Entry) *Index {
	ix := &Index{Columns: []string{ColName, ColFilename}, byName: map[string][]int{}}
	var hasHash, hasType bool
	for _, e := range entries {
		hasHash = hasHash || e.Hash != ""
		hasType = hasType || e.Type != ""
	}
	if hasHash {
		ix.Columns = append(ix.Columns, ColHash)
	}
	if hasType {
		ix.Columns = append(ix.Columns, ColType)
	}
	for _, e := range entries {
		key := Normalize(e.Name)
		ix.byName[key] = append(ix.byName[key], len(ix.entries))
		ix.entries = append(ix.entries, e)
	}
	return ix
}

// Package catalog opens catalogue files and resolves catalogue names to
// them.
//
// A catalogue is a FITS file: HDU 0 carries catalogue metadata, HDU 1 is a
// summary table mapping each spectrum name to the HDU holding its data, and
// every further HDU is one spectrum table.
package catalog

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/kamusis/pyckles/errdefs"
)

// KeyFilename is the primary header card recording where the catalogue was
// opened from.
const KeyFilename = "FILENAME"

const summaryHDU = 1

// Catalog is an opened catalogue file. The whole file is held in memory.
type Catalog struct {
	path string
	file *fitsio.File
}

// SummaryRow maps a spectrum name to its HDU.
type SummaryRow struct {
	Name string
	Ext  int
}

// Open reads the catalogue at path, transparently decompressing gzip, zstd
// and lz4 files, and stamps the FILENAME card of the primary header with
// path.
func Open(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read catalogue %s: %w", path, err)
	}
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decompress catalogue %s: %w", path, err)
	}
	f, err := fitsio.Open(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("cannot open catalogue %s: %w", path, err)
	}
	if len(f.HDUs()) == 0 {
		f.Close()
		return nil, fmt.Errorf("catalogue %s has no HDUs: %w", path, errdefs.ErrInvalidValue)
	}
	f.HDU(0).Header().Set(KeyFilename, path, "local path of the catalogue file")
	return &Catalog{path: path, file: f}, nil
}

// Path returns the path the catalogue was opened from.
func (c *Catalog) Path() string { return c.path }

// Filename returns the FILENAME card of the primary header.
func (c *Catalog) Filename() string {
	card := c.file.HDU(0).Header().Get(KeyFilename)
	if card == nil {
		return ""
	}
	s, _ := card.Value.(string)
	return s
}

// Len returns the number of HDUs.
func (c *Catalog) Len() int { return len(c.file.HDUs()) }

// HDU returns the i-th HDU.
func (c *Catalog) HDU(i int) (fitsio.HDU, error) {
	if i < 0 || i >= c.Len() {
		return nil, fmt.Errorf("HDU %d out of range [0, %d): %w", i, c.Len(), errdefs.ErrInvalidValue)
	}
	return c.file.HDU(i), nil
}

// Table returns HDU ext, which must be a table.
func (c *Catalog) Table(ext int) (*fitsio.Table, error) {
	hdu, err := c.HDU(ext)
	if err != nil {
		return nil, err
	}
	tbl, ok := hdu.(*fitsio.Table)
	if !ok {
		return nil, fmt.Errorf("HDU %d of %s is not a table: %w", ext, c.path, errdefs.ErrInvalidValue)
	}
	return tbl, nil
}

// Summary reads the summary table. Names are trimmed of surrounding
// whitespace; every row must point at an existing spectrum HDU and no two
// rows may share a trimmed name.
func (c *Catalog) Summary() ([]SummaryRow, error) {
	tbl, err := c.Table(summaryHDU)
	if err != nil {
		return nil, fmt.Errorf("cannot read summary table: %w", err)
	}
	for _, col := range []string{"name", "ext"} {
		if tbl.Index(col) < 0 {
			return nil, fmt.Errorf("summary table of %s lacks column %q: %w", c.path, col, errdefs.ErrInvalidValue)
		}
	}

	rows, err := tbl.Read(0, tbl.NumRows())
	if err != nil {
		return nil, fmt.Errorf("cannot read summary table of %s: %w", c.path, err)
	}
	defer rows.Close()

	var out []SummaryRow
	seen := map[string]int{}
	for i := 0; rows.Next(); i++ {
		data := map[string]interface{}{}
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("summary row %d: %w", i, err)
		}
		name, ok := data["name"].(string)
		if !ok {
			return nil, fmt.Errorf("summary row %d: name is %T, not a string: %w", i, data["name"], errdefs.ErrInvalidValue)
		}
		name = strings.TrimSpace(name)
		ext, ok := toInt(data["ext"])
		if !ok {
			return nil, fmt.Errorf("summary row %d: ext is %T, not an integer: %w", i, data["ext"], errdefs.ErrInvalidValue)
		}
		if ext <= summaryHDU || ext >= c.Len() {
			return nil, fmt.Errorf("summary row %d (%s): ext %d out of range: %w", i, name, ext, errdefs.ErrInvalidValue)
		}
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("summary rows %d and %d both name %q: %w", prev, i, name, errdefs.ErrAmbiguous)
		}
		seen[name] = i
		out = append(out, SummaryRow{Name: name, Ext: ext})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cannot read summary table of %s: %w", c.path, err)
	}
	return slices.Clip(out), nil
}

// Close releases the catalogue.
func (c *Catalog) Close() error {
	return c.file.Close()
}

func toInt(v interface{}) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int8:
		return int(x), true
	case int16:
		return int(x), true
	case int32:
		return int(x), true
	case int64:
		return int(x), true
	case uint8:
		return int(x), true
	case uint16:
		return int(x), true
	case uint32:
		return int(x), true
	case uint64:
		return int(x), true
	case float32:
		if float32(int(x)) == x {
			return int(x), true
		}
	case float64:
		if float64(int(x)) == x {
			return int(x), true
		}
	}
	return 0, false
}

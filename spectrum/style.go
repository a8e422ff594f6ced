package spectrum

import "strings"

// Style selects the representation Convert produces.
type Style string

const (
	// StyleFITS returns the record itself.
	StyleFITS Style = "fits"
	// StyleArray returns bare wavelength and flux slices.
	StyleArray Style = "array"
	// StyleQuantity returns the slices tagged with their units.
	StyleQuantity Style = "quantity"
	// StyleSynphot returns a model built by the registered ModelBuilder.
	StyleSynphot Style = "synphot"
)

// Styles lists the recognised styles.
var Styles = []Style{StyleFITS, StyleArray, StyleQuantity, StyleSynphot}

// ParseStyle matches s case-insensitively against the known styles.
// Anything unrecognised, the empty string included, selects StyleFITS.
func ParseStyle(s string) Style {
	st, _ := LookupStyle(s)
	return st
}

// LookupStyle is like ParseStyle but also reports whether s named a known
// style.
func LookupStyle(s string) (Style, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range Styles {
		if string(st) == s {
			return st, true
		}
	}
	return StyleFITS, false
}

func (s Style) String() string { return string(s) }

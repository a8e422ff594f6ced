package units

import "strings"

// base maps every accepted spelling of an unprefixed unit to its canonical
// symbol. The flag reports whether SI prefixes may be attached.
var base = map[string]struct {
	canonical  string
	prefixable bool
}{
	// SI and derived
	"m":   {"m", true},
	"s":   {"s", true},
	"g":   {"g", true},
	"K":   {"K", true},
	"A":   {"A", true},
	"mol": {"mol", true},
	"cd":  {"cd", true},
	"rad": {"rad", true},
	"sr":  {"sr", false},
	"Hz":  {"Hz", true},
	"J":   {"J", true},
	"W":   {"W", true},
	"N":   {"N", true},
	"Pa":  {"Pa", true},
	"V":   {"V", true},
	"C":   {"C", true},
	"T":   {"T", true},
	"ohm": {"ohm", true},
	"eV":  {"eV", true},
	"Ry":  {"Ry", false},

	// cgs
	"erg":   {"erg", false},
	"dyn":   {"dyn", false},
	"G":     {"G", false},
	"barn":  {"barn", true},
	"Gauss": {"G", false},

	// spectroscopy
	"Angstrom": {"Angstrom", false},
	"angstrom": {"Angstrom", false},
	"AA":       {"Angstrom", false},
	"Å":        {"Angstrom", false},
	"micron":   {"um", false},
	"Jy":       {"Jy", true},
	"ph":       {"ph", false},
	"photon":   {"ph", false},
	"photons":  {"ph", false},
	"ct":       {"ct", false},
	"count":    {"ct", false},
	"counts":   {"ct", false},
	"adu":      {"adu", false},
	"ADU":      {"adu", false},
	"pix":      {"pix", false},
	"pixel":    {"pix", false},
	"bin":      {"bin", false},
	"chan":     {"chan", false},
	"beam":     {"beam", false},
	"mag":      {"mag", true},
	"dex":      {"dex", false},

	// angles and time
	"deg":    {"deg", false},
	"arcmin": {"arcmin", false},
	"arcsec": {"arcsec", false},
	"mas":    {"mas", false},
	"min":    {"min", false},
	"h":      {"h", false},
	"d":      {"d", false},
	"yr":     {"yr", true},
	"a":      {"yr", true},

	// astronomy
	"AU":      {"AU", false},
	"au":      {"AU", false},
	"pc":      {"pc", true},
	"lyr":     {"lyr", false},
	"solLum":  {"solLum", false},
	"Lsun":    {"solLum", false},
	"solMass": {"solMass", false},
	"Msun":    {"solMass", false},
	"solRad":  {"solRad", false},
	"Rsun":    {"solRad", false},

	// data
	"bit":  {"bit", true},
	"byte": {"byte", true},
}

var prefixes = []string{
	"da", // must precede "d"
	"Y", "Z", "E", "P", "T", "G", "M", "k", "h", "d", "c", "m", "u", "µ", "n", "p", "f", "a", "z", "y",
}

// lookup resolves a written symbol to its canonical form. Exact spellings win
// over prefix decompositions, so "mag" is magnitudes and not milli-"ag".
func lookup(sym string) (string, bool) {
	if b, ok := base[sym]; ok {
		return b.canonical, true
	}
	for _, pre := range prefixes {
		rest, ok := strings.CutPrefix(sym, pre)
		if !ok || rest == "" {
			continue
		}
		b, ok := base[rest]
		if !ok || !b.prefixable || b.canonical != rest {
			continue
		}
		if pre == "µ" {
			pre = "u"
		}
		return pre + b.canonical, true
	}
	return "", false
}

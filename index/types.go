package index

// Column names with a fixed meaning in the listing header.
const (
	ColName     = "name"
	ColFilename = "filename"
	ColHash     = "hash"
	ColType     = "type"
)

// Entry is one catalogue row of the listing.
type Entry struct {
	Name     string
	Filename string
	Hash     string
	Type     string
	// Extra holds any further columns keyed by header name.
	Extra map[string]string
}

// Index is a parsed catalogue listing. It is immutable once built.
type Index struct {
	Columns []string
	entries []Entry
	// byName maps the folded name to entry positions; more than one position
	// means the listing violates its uniqueness contract.
	byName map[string][]int
}

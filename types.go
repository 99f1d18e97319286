package epubtext

// Metadata holds the book metadata extracted from the package document.
type Metadata struct {
	// Title is the first non-empty dc:title element, if any.
	Title string

	// Authors lists every non-empty dc:creator element in document order.
	Authors []string

	// Language is the first non-empty dc:language element, if any.
	Language string
}

// segment is a unit of extracted text awaiting normalization. Preformatted
// segments keep their internal whitespace; normal segments are collapsed.
type segment struct {
	text string
	pre  bool
}

// tocEntry is a single navigation entry from the nav document or the NCX.
type tocEntry struct {
	// Path is the resolved archive path of the entry's target document.
	Path string

	// Fragment is the target fragment identifier, without the leading "#".
	// Empty when the entry points at a whole document.
	Fragment string

	// Title is the entry's link text, whitespace-collapsed.
	Title string

	// Depth is the nesting level of the entry, starting at 1 for
	// top-level entries.
	Depth int
}

// packageInfo is the processed view of the package document.
type packageInfo struct {
	// Chapters holds the reading-order chapter paths, resolved against
	// the archive root.
	Chapters []string

	// TOCPath is the resolved path of the navigation document, or empty
	// when the package declares none.
	TOCPath string

	// Metadata carries the extracted book metadata.
	Metadata Metadata
}

package epubtext

import "errors"

// Sentinel errors returned by the epubtext package.
var (
	// ErrInvalidArchive indicates the input cannot be opened as a ZIP archive.
	ErrInvalidArchive = errors.New("epubtext: invalid archive")

	// ErrMissingPackage indicates no package document could be located:
	// the container descriptor is absent or unusable, no .opf entry exists
	// in the archive, or the declared package path points nowhere.
	ErrMissingPackage = errors.New("epubtext: package document not found")

	// ErrInvalidPackage indicates the package document exists but is
	// unusable: unparsable XML or no manifest section.
	ErrInvalidPackage = errors.New("epubtext: invalid package document")

	// ErrNoContent indicates that no chapter could be resolved, even after
	// the HTML-entry fallback, or that no resolved chapter produced text.
	ErrNoContent = errors.New("epubtext: no readable content")

	// ErrTooManyChapters indicates the resolved chapter count exceeds the
	// ceiling configured via Options.MaxChapters.
	ErrTooManyChapters = errors.New("epubtext: too many chapters")

	// ErrEntryNotFound indicates a requested entry does not exist in the
	// archive.
	ErrEntryNotFound = errors.New("epubtext: entry not found in archive")
)

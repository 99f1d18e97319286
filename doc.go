// Package epubtext converts EPUB 2 and EPUB 3 archives into clean plain
// text with Markdown-flavored structural cues: headings become #-prefixed
// lines, bold runs are wrapped in **, lists are rendered as indented
// bullets, inline and display math is kept as TeX, and chapter boundaries
// are marked with a separator line.
//
// # Converting a file
//
// Use [Convert] for a file on disk, [ConvertReader] for an [io.ReaderAt],
// or open an [Archive] yourself and call [ConvertArchive]:
//
//	res, err := epubtext.Convert("book.epub", epubtext.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Text)
//
// The conversion follows the package document's spine for reading order.
// When the spine is unusable, every HTML entry in the archive is converted
// in sorted order instead. Top-level table-of-contents entries pointing
// into a chapter insert a separator at the referenced element, so books
// that keep several chapters in one file still come out separated.
//
// # Degraded input
//
// Malformed archives are converted best-effort: a missing container
// descriptor falls back to scanning for the package document, unreadable
// chapters are skipped, unknown encodings fall back to UTF-8, and broken
// markup is parsed leniently. Non-fatal problems are collected in
// [Result.Warnings]. Only structural dead ends are errors:
//   - [ErrInvalidArchive]: the input is not a readable ZIP archive
//   - [ErrMissingPackage]: no package document could be located
//   - [ErrInvalidPackage]: the package document is unparseable or has
//     no manifest
//   - [ErrNoContent]: no chapter produced any text
//   - [ErrTooManyChapters]: the chapter count exceeds the configured
//     limit
//   - [ErrEntryNotFound]: a requested archive entry does not exist
package epubtext

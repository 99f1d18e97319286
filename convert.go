package epubtext

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// chapterSeparator is the text placed between chapters and at top-level
// TOC anchor positions inside a chapter. It is part of the stable output
// contract.
const chapterSeparator = "\n\n---\n\n"

// defaultMaxChapters caps the number of chapters per conversion. Guards
// against pathological packages.
const defaultMaxChapters = 10000

// Options configures a conversion. The zero value selects all defaults.
type Options struct {
	// MaxChapters caps the number of chapters processed per archive.
	// Values <= 0 select the default of 10000.
	MaxChapters int

	// MaxEntryBytes caps the decompressed size of a single archive
	// entry. Values <= 0 select the default of 256 MB.
	MaxEntryBytes int64

	// Logger receives progress and warning records. Nil discards them;
	// warnings still accumulate on the Result either way.
	Logger *slog.Logger

	// Now supplies the footer timestamp; nil means time.Now. Tests pin
	// it for deterministic output.
	Now func() time.Time
}

// withDefaults fills unset options.
func (o Options) withDefaults() Options {
	if o.MaxChapters <= 0 {
		o.MaxChapters = defaultMaxChapters
	}
	if o.MaxEntryBytes <= 0 {
		o.MaxEntryBytes = defaultMaxEntryBytes
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Result is the outcome of one conversion.
type Result struct {
	// Text is the complete output: chapter texts joined by the chapter
	// separator, with the conversion footer appended.
	Text string

	// Metadata holds the book metadata from the package document.
	Metadata Metadata

	// Chapters counts the content documents that produced text.
	Chapters int

	// Warnings lists the non-fatal degradations encountered.
	Warnings []string
}

// Convert converts the EPUB file at path into plain text.
func Convert(path string, opts Options) (*Result, error) {
	a, err := OpenArchive(path)
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return ConvertArchive(a, opts)
}

// ConvertReader converts an EPUB archive read from r with the given size.
func ConvertReader(r io.ReaderAt, size int64, opts Options) (*Result, error) {
	a, err := NewArchive(r, size)
	if err != nil {
		return nil, err
	}
	return ConvertArchive(a, opts)
}

// ConvertArchive runs the conversion pipeline on an open archive: locate
// the package document, derive the chapter list and TOC anchors, then
// extract and normalize each chapter in reading order.
//
// Unreadable chapters and entries without an HTML-like extension are
// skipped; chapters that yield no text are dropped. When every chapter is
// skipped or empty the conversion fails with a wrapped [ErrNoContent].
//
// The archive is never modified, so a single Archive may serve concurrent
// conversions.
func ConvertArchive(a *Archive, opts Options) (*Result, error) {
	opts = opts.withDefaults()

	// The entry cap applies through a shallow copy so the caller's
	// Archive is never written to.
	scoped := *a
	scoped.maxEntry = opts.MaxEntryBytes
	a = &scoped

	warnings := a.checkMimetype()
	warnings = append(warnings, detectEncryption(a)...)

	opfPath, locateWarnings, err := locatePackage(a)
	warnings = append(warnings, locateWarnings...)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("package document located", "path", opfPath)

	info, pkgWarnings, err := parsePackage(a, opfPath)
	warnings = append(warnings, pkgWarnings...)
	if err != nil {
		return nil, err
	}

	if len(info.Chapters) > opts.MaxChapters {
		return nil, fmt.Errorf("epubtext: %d chapters exceeds limit of %d: %w", len(info.Chapters), opts.MaxChapters, ErrTooManyChapters)
	}

	entries, tocWarnings := resolveTOC(a, info.TOCPath)
	warnings = append(warnings, tocWarnings...)
	anchors := selectChapterAnchors(entries)

	var texts []string
	for _, chapter := range info.Chapters {
		if !isHTMLPath(chapter) {
			continue
		}
		raw, err := a.Read(chapter)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping chapter %s: %v", chapter, err))
			continue
		}
		content, enc := decodeContent(raw)
		if enc != "utf-8" {
			opts.Logger.Debug("decoded chapter", "path", chapter, "encoding", enc)
		}
		text := normalizeSegments(extractText(content, anchors[chapter]))
		if strings.TrimSpace(text) == "" {
			continue
		}
		texts = append(texts, text)
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("epubtext: no chapter produced any text: %w", ErrNoContent)
	}

	for _, warning := range warnings {
		opts.Logger.Warn("conversion warning", "detail", warning)
	}
	opts.Logger.Debug("conversion complete", "chapters", len(texts), "warnings", len(warnings))

	var sb strings.Builder
	sb.WriteString(strings.Join(texts, chapterSeparator))
	sb.WriteString("\n\n")
	sb.WriteString(conversionFooter(opts.Now()))

	return &Result{
		Text:     sb.String(),
		Metadata: info.Metadata,
		Chapters: len(texts),
		Warnings: warnings,
	}, nil
}

// conversionFooter is the fixed trailer appended to every conversion:
// "Converted by epub2txt on <RFC 3339 UTC timestamp>" with a trailing
// newline.
func conversionFooter(t time.Time) string {
	return "Converted by epub2txt on " + t.UTC().Format(time.RFC3339) + "\n"
}

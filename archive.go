package epubtext

import (
	"archive/zip"
	"fmt"
	"io"
	"sort"
	"strings"
)

// defaultMaxEntryBytes is the maximum allowed decompressed size for a single
// ZIP entry. This guards against zip bomb attacks. Defaults to 256 MB.
const defaultMaxEntryBytes int64 = 256 * 1024 * 1024

// expectedMimetype is the required content of the "mimetype" entry.
const expectedMimetype = "application/epub+zip"

// Archive wraps an EPUB ZIP archive with indexed entry lookup. Entry names
// are matched exactly first, then case-insensitively. An Archive is safe
// for concurrent reads once constructed.
type Archive struct {
	zip      *zip.Reader
	exact    map[string]*zip.File // exact-match entry index
	lower    map[string]*zip.File // lowercase entry index
	closer   io.Closer            // non-nil only when created via OpenArchive
	maxEntry int64                // per-entry decompression cap
}

// OpenArchive opens an EPUB file at the given path. The caller must call
// Close when done. A file that cannot be opened as a ZIP archive fails with
// a wrapped [ErrInvalidArchive].
func OpenArchive(path string) (*Archive, error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("epubtext: open %s: %v: %w", path, err, ErrInvalidArchive)
	}
	a := newArchive(&zrc.Reader)
	a.closer = zrc
	return a, nil
}

// NewArchive creates an Archive from an io.ReaderAt with the given size.
// The caller is responsible for the lifetime of r.
func NewArchive(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epubtext: open zip: %v: %w", err, ErrInvalidArchive)
	}
	return newArchive(zr), nil
}

// newArchive builds the entry indexes. The first entry wins on duplicate
// names, for both the exact and the case-insensitive index.
func newArchive(zr *zip.Reader) *Archive {
	a := &Archive{
		zip:      zr,
		exact:    make(map[string]*zip.File, len(zr.File)),
		lower:    make(map[string]*zip.File, len(zr.File)),
		maxEntry: defaultMaxEntryBytes,
	}
	for _, f := range zr.File {
		if _, exists := a.exact[f.Name]; !exists {
			a.exact[f.Name] = f
		}
		lower := strings.ToLower(f.Name)
		if _, exists := a.lower[lower]; !exists {
			a.lower[lower] = f
		}
	}
	return a
}

// Close releases resources held by the Archive. When created via
// OpenArchive, Close closes the underlying file. Close is idempotent.
func (a *Archive) Close() error {
	if a.closer != nil {
		err := a.closer.Close()
		a.closer = nil
		return err
	}
	return nil
}

// find looks up an entry by path using the pre-built indexes.
func (a *Archive) find(name string) *zip.File {
	if f, ok := a.exact[name]; ok {
		return f
	}
	if f, ok := a.lower[strings.ToLower(name)]; ok {
		return f
	}
	return nil
}

// Has reports whether the archive contains an entry with the given path,
// matched case-insensitively as a fallback.
func (a *Archive) Has(name string) bool {
	return a.find(name) != nil
}

// Read reads the full contents of the named entry. A missing entry fails
// with a wrapped [ErrEntryNotFound]. Reads are capped by the archive's
// per-entry decompression limit.
func (a *Archive) Read(name string) ([]byte, error) {
	f := a.find(name)
	if f == nil {
		return nil, fmt.Errorf("epubtext: %s: %w", name, ErrEntryNotFound)
	}
	return readEntry(f, a.maxEntry)
}

// Names returns all entry paths in archive enumeration order.
func (a *Archive) Names() []string {
	names := make([]string, 0, len(a.zip.File))
	for _, f := range a.zip.File {
		names = append(names, f.Name)
	}
	return names
}

// HTMLEntries returns the paths of all entries with an HTML-like extension,
// sorted lexicographically. This is the fallback chapter list used when a
// package document declares no usable spine.
func (a *Archive) HTMLEntries() []string {
	var entries []string
	for _, f := range a.zip.File {
		if isHTMLPath(f.Name) {
			entries = append(entries, f.Name)
		}
	}
	sort.Strings(entries)
	return entries
}

// checkMimetype verifies that the first entry is named "mimetype" and
// contains "application/epub+zip". Deviations are returned as warnings,
// never as errors.
func (a *Archive) checkMimetype() []string {
	if len(a.zip.File) == 0 {
		return []string{"empty ZIP archive; mimetype entry missing"}
	}

	first := a.zip.File[0]
	if first.Name != "mimetype" {
		return []string{`first ZIP entry is not "mimetype"`}
	}

	data, err := readEntry(first, a.maxEntry)
	if err != nil {
		return []string{fmt.Sprintf("cannot read mimetype entry: %v", err)}
	}
	if string(data) != expectedMimetype {
		return []string{fmt.Sprintf("unexpected mimetype: %q", string(data))}
	}
	return nil
}

// readEntry reads a ZIP entry enforcing limit on the decompressed size.
// The declared size is checked first, then the actual data is read through
// a limited reader in case the declared size was forged.
func readEntry(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("epubtext: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epubtext: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	lr := io.LimitReader(rc, limit+1)
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, fmt.Errorf("epubtext: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("epubtext: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}

	return data, nil
}

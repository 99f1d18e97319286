package epubtext

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// testContainerXML is a well-formed META-INF/container.xml pointing at
// OEBPS/content.opf.
const testContainerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

// buildTestZip creates an in-memory ZIP archive from the provided files
// map, keyed by entry path, and returns the raw bytes. The mimetype entry,
// when present, is written first; the rest follows in sorted path order so
// enumeration order is stable across runs. It calls t.Fatal on any error.
func buildTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	write := func(name, content string) {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", name, err)
		}
	}

	if mt, ok := files["mimetype"]; ok {
		write("mimetype", mt)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, files[name])
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}
	return buf.Bytes()
}

// newTestArchive builds an in-memory Archive from the files map.
func newTestArchive(t *testing.T, files map[string]string) *Archive {
	t.Helper()
	data := buildTestZip(t, files)
	a, err := NewArchive(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("newTestArchive: %v", err)
	}
	return a
}

// writeTestEPUB writes the files map as an EPUB (ZIP) file in a temporary
// directory and returns the file path. This variant is for testing entry
// points that require a path.
func writeTestEPUB(t *testing.T, files map[string]string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), "test.epub")
	if err := os.WriteFile(fp, buildTestZip(t, files), 0644); err != nil {
		t.Fatalf("writeTestEPUB: write file: %v", err)
	}
	return fp
}

package epubtext

import (
	"reflect"
	"testing"
)

const testNavDoc = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<body>
  <nav epub:type="landmarks"><ol><li><a href="cover.xhtml">Cover</a></li></ol></nav>
  <nav epub:type="toc">
    <h1>Contents</h1>
    <ol>
      <li><a href="part1.xhtml">Part I</a>
        <ol>
          <li><a href="chapter1.xhtml">Chapter 1</a></li>
          <li><a href="chapter2.xhtml#start">Chapter 2</a></li>
        </ol>
      </li>
      <li><a href="part2.xhtml">Part II</a></li>
    </ol>
  </nav>
</body>
</html>`

func TestResolveTOC_NavDocument(t *testing.T) {
	a := newTestArchive(t, map[string]string{
		"OEBPS/nav.xhtml": testNavDoc,
	})

	entries, warnings := resolveTOC(a, "OEBPS/nav.xhtml")
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	want := []tocEntry{
		{Path: "OEBPS/part1.xhtml", Fragment: "", Title: "Part I", Depth: 1},
		{Path: "OEBPS/chapter1.xhtml", Fragment: "", Title: "Chapter 1", Depth: 2},
		{Path: "OEBPS/chapter2.xhtml", Fragment: "start", Title: "Chapter 2", Depth: 2},
		{Path: "OEBPS/part2.xhtml", Fragment: "", Title: "Part II", Depth: 1},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestResolveTOC_EmptyPath(t *testing.T) {
	a := newTestArchive(t, map[string]string{"x.txt": "x"})

	entries, warnings := resolveTOC(a, "")
	if entries != nil || warnings != nil {
		t.Errorf("resolveTOC(\"\") = %v, %v, want nil, nil", entries, warnings)
	}
}

func TestResolveTOC_UnreadableDocument(t *testing.T) {
	a := newTestArchive(t, map[string]string{"x.txt": "x"})

	entries, warnings := resolveTOC(a, "missing/nav.xhtml")
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
	if !warningsContain(warnings, "cannot read navigation document") {
		t.Errorf("warnings = %v, want a read failure notice", warnings)
	}
}

func TestResolveTOC_NCXSelectedByExtension(t *testing.T) {
	ncx := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1"><navLabel><text>One</text></navLabel><content src="ch1.xhtml"/></navPoint>
  </navMap>
</ncx>`
	a := newTestArchive(t, map[string]string{"OEBPS/toc.ncx": ncx})

	entries, warnings := resolveTOC(a, "OEBPS/toc.ncx")
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	want := []tocEntry{{Path: "OEBPS/ch1.xhtml", Fragment: "", Title: "One", Depth: 1}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestParseNavEntries_RoleDocToc(t *testing.T) {
	doc := `<html><body>
<nav role="navigation"><ol><li><a href="skip.xhtml">Skip</a></li></ol></nav>
<nav role="doc-toc"><ol><li><a href="real.xhtml">Real</a></li></ol></nav>
</body></html>`

	entries, _ := parseNavEntries([]byte(doc), "nav.xhtml")
	if len(entries) != 1 || entries[0].Path != "real.xhtml" {
		t.Errorf("entries = %+v, want the doc-toc nav only", entries)
	}
}

func TestParseNavEntries_FallbackFirstNav(t *testing.T) {
	doc := `<html><body>
<nav><ol><li><a href="first.xhtml">First</a></li></ol></nav>
<nav><ol><li><a href="second.xhtml">Second</a></li></ol></nav>
</body></html>`

	entries, _ := parseNavEntries([]byte(doc), "nav.xhtml")
	if len(entries) != 1 || entries[0].Path != "first.xhtml" {
		t.Errorf("entries = %+v, want the first nav only", entries)
	}
}

func TestParseNavEntries_NoNavElement(t *testing.T) {
	entries, warnings := parseNavEntries([]byte("<html><body><p>no nav here</p></body></html>"), "nav.xhtml")
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
	if warnings != nil {
		t.Errorf("warnings = %v, want nil", warnings)
	}
}

func TestParseNavEntries_ItemLinkExcludesNestedLists(t *testing.T) {
	// The outer item has no link of its own; its only links sit inside the
	// nested list and must not be promoted to depth 1.
	doc := `<html><body><nav epub:type="toc">
<ol>
  <li><span>Unlinked Part</span>
    <ol>
      <li><a href="inner.xhtml#s1">Inner</a></li>
    </ol>
  </li>
</ol>
</nav></body></html>`

	entries, _ := parseNavEntries([]byte(doc), "nav.xhtml")
	want := []tocEntry{{Path: "inner.xhtml", Fragment: "s1", Title: "Inner", Depth: 2}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestParseNavEntries_TitleWhitespaceCollapsed(t *testing.T) {
	doc := `<html><body><nav epub:type="toc">
<ol><li><a href="ch1.xhtml">  Chapter
   One  </a></li></ol>
</nav></body></html>`

	entries, _ := parseNavEntries([]byte(doc), "nav.xhtml")
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Title != "Chapter One" {
		t.Errorf("Title = %q, want %q", entries[0].Title, "Chapter One")
	}
}

func TestParseNavEntries_PercentEncodedFragment(t *testing.T) {
	doc := `<html><body><nav epub:type="toc">
<ol><li><a href="ch%201.xhtml#sec%201">Section</a></li></ol>
</nav></body></html>`

	entries, _ := parseNavEntries([]byte(doc), "OEBPS/nav.xhtml")
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Path != "OEBPS/ch 1.xhtml" {
		t.Errorf("Path = %q, want %q", entries[0].Path, "OEBPS/ch 1.xhtml")
	}
	if entries[0].Fragment != "sec 1" {
		t.Errorf("Fragment = %q, want %q", entries[0].Fragment, "sec 1")
	}
}

func TestParseNCXEntries_Nested(t *testing.T) {
	ncx := `<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
    <navPoint id="np1" playOrder="1">
      <navLabel><text>Part I</text></navLabel>
      <content src="part1.xhtml"/>
      <navPoint id="np1.1" playOrder="2">
        <navLabel><text>Chapter 1</text></navLabel>
        <content src="chapter1.xhtml#intro"/>
      </navPoint>
    </navPoint>
    <navPoint id="np2" playOrder="3">
      <navLabel><text>Part II</text></navLabel>
      <content src="part2.xhtml"/>
    </navPoint>
  </navMap>
</ncx>`

	entries, warnings := parseNCXEntries([]byte(ncx), "OEBPS/toc.ncx")
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}

	want := []tocEntry{
		{Path: "OEBPS/part1.xhtml", Fragment: "", Title: "Part I", Depth: 1},
		{Path: "OEBPS/chapter1.xhtml", Fragment: "intro", Title: "Chapter 1", Depth: 2},
		{Path: "OEBPS/part2.xhtml", Fragment: "", Title: "Part II", Depth: 1},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestParseNCXEntries_HTMLEntitiesInLabel(t *testing.T) {
	ncx := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/">
  <navMap>
    <navPoint><navLabel><text>Caf&eacute;</text></navLabel><content src="ch1.xhtml"/></navPoint>
  </navMap>
</ncx>`

	entries, _ := parseNCXEntries([]byte(ncx), "toc.ncx")
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Title != "Café" {
		t.Errorf("Title = %q, want %q", entries[0].Title, "Café")
	}
}

func TestParseNCXEntries_Malformed(t *testing.T) {
	entries, warnings := parseNCXEntries([]byte("<ncx><navMap>< broken"), "toc.ncx")
	if entries != nil {
		t.Errorf("entries = %v, want nil", entries)
	}
	if !warningsContain(warnings, "cannot parse navigation document") {
		t.Errorf("warnings = %v, want a parse failure notice", warnings)
	}
}

func TestParseNCXEntries_SkipsPointsWithoutTarget(t *testing.T) {
	ncx := `<?xml version="1.0"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/">
  <navMap>
    <navPoint>
      <navLabel><text>No Target</text></navLabel>
      <content src=""/>
      <navPoint><navLabel><text>Child</text></navLabel><content src="ch1.xhtml"/></navPoint>
    </navPoint>
  </navMap>
</ncx>`

	entries, _ := parseNCXEntries([]byte(ncx), "toc.ncx")
	want := []tocEntry{{Path: "ch1.xhtml", Fragment: "", Title: "Child", Depth: 2}}
	if !reflect.DeepEqual(entries, want) {
		t.Errorf("entries = %+v, want %+v", entries, want)
	}
}

func TestSelectChapterAnchors(t *testing.T) {
	entries := []tocEntry{
		{Path: "ch1.xhtml", Fragment: "a", Depth: 1},
		{Path: "ch1.xhtml", Fragment: "b", Depth: 1},
		{Path: "ch1.xhtml", Fragment: "a", Depth: 1},  // duplicate dropped
		{Path: "ch1.xhtml", Fragment: "c", Depth: 2},  // too deep
		{Path: "ch2.xhtml", Fragment: "", Depth: 1},   // whole-document entry
		{Path: "notes.txt", Fragment: "n", Depth: 1},  // not HTML
		{Path: "", Fragment: "x", Depth: 1},           // no target
		{Path: "ch2.xhtml", Fragment: "top", Depth: 1},
	}

	got := selectChapterAnchors(entries)
	want := map[string][]string{
		"ch1.xhtml": {"a", "b"},
		"ch2.xhtml": {"top"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("selectChapterAnchors = %v, want %v", got, want)
	}
}

package epubtext

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// resolveTOC parses the navigation document at tocPath into a flat list of
// entries in document order. An empty or unreadable tocPath yields no
// entries, never an error: chapter separation derived from the TOC is an
// enhancement, not a requirement.
//
// The parse format is chosen by file extension: ".ncx" selects the legacy
// XML form, everything else the HTML nav form.
func resolveTOC(a *Archive, tocPath string) ([]tocEntry, []string) {
	if tocPath == "" {
		return nil, nil
	}

	data, err := a.Read(tocPath)
	if err != nil {
		return nil, []string{fmt.Sprintf("cannot read navigation document %s: %v", tocPath, err)}
	}

	if strings.EqualFold(path.Ext(tocPath), ".ncx") {
		return parseNCXEntries(data, tocPath)
	}
	return parseNavEntries(data, tocPath)
}

// selectChapterAnchors reduces TOC entries to the per-document anchor lists
// consumed by the extractor. Only top-level entries with both a resolved
// HTML target and a fragment participate; deeper entries are sub-sections
// and do not mark chapter boundaries. Fragments are de-duplicated per
// document, keeping first-seen order.
func selectChapterAnchors(entries []tocEntry) map[string][]string {
	anchors := make(map[string][]string)
	for _, e := range entries {
		if e.Depth != 1 || e.Path == "" || e.Fragment == "" || !isHTMLPath(e.Path) {
			continue
		}
		if containsString(anchors[e.Path], e.Fragment) {
			continue
		}
		anchors[e.Path] = append(anchors[e.Path], e.Fragment)
	}
	return anchors
}

// containsString reports whether list holds s.
func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// decodeFragment percent-decodes a fragment identifier. Decoding failure
// keeps the raw string.
func decodeFragment(frag string) string {
	if decoded, err := url.PathUnescape(frag); err == nil {
		return decoded
	}
	return frag
}

// --- HTML nav document parsing ---

// parseNavEntries parses an EPUB 3 nav document. It picks the nav element
// marked as the table of contents (epub:type="toc" or role="doc-toc"),
// falling back to the first nav element, then walks its first list.
func parseNavEntries(data []byte, basePath string) ([]tocEntry, []string) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, []string{fmt.Sprintf("cannot parse navigation document %s: %v", basePath, err)}
	}

	nav := findTOCNav(doc)
	if nav == nil {
		return nil, nil
	}
	list := findFirstList(nav)
	if list == nil {
		return nil, nil
	}

	var entries []tocEntry
	walkNavList(list, basePath, 1, &entries)
	return entries, nil
}

// findTOCNav returns the nav element marked as the table of contents, or
// the first nav element when none carries an explicit marker.
func findTOCNav(doc *html.Node) *html.Node {
	var navs []*html.Node
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Nav {
			navs = append(navs, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(doc)

	for _, nav := range navs {
		if hasAttrToken(nav, "epub:type", "toc") || hasAttrToken(nav, "role", "doc-toc") {
			return nav
		}
	}
	if len(navs) > 0 {
		return navs[0]
	}
	return nil
}

// findFirstList performs a depth-first search for the first ol or ul
// descendant of n.
func findFirstList(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Ol || c.DataAtom == atom.Ul) {
			return c
		}
		if found := findFirstList(c); found != nil {
			return found
		}
	}
	return nil
}

// walkNavList emits one entry per list item carrying a link, then recurses
// into nested lists one depth level down. The item's own link is the first
// link outside any nested list, so sub-entries are never mistaken for their
// parent.
func walkNavList(list *html.Node, basePath string, depth int, entries *[]tocEntry) {
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}

		if link := firstItemLink(c); link != nil {
			href := getAttr(link, "href")
			if resolved := resolveHref(basePath, href); resolved != "" {
				_, frag := splitFragment(href)
				*entries = append(*entries, tocEntry{
					Path:     resolved,
					Fragment: decodeFragment(frag),
					Title:    strings.TrimSpace(collapseWhitespace(textContent(link))),
					Depth:    depth,
				})
			}
		}

		for _, nested := range childLists(c) {
			walkNavList(nested, basePath, depth+1, entries)
		}
	}
}

// firstItemLink finds the first link inside a list item, skipping subtrees
// of nested lists.
func firstItemLink(li *html.Node) *html.Node {
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Ol, atom.Ul:
			continue
		case atom.A:
			return c
		}
		if found := firstItemLink(c); found != nil {
			return found
		}
	}
	return nil
}

// childLists collects the ol and ul descendants of n without descending
// into the lists it finds.
func childLists(n *html.Node) []*html.Node {
	var lists []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if c.DataAtom == atom.Ol || c.DataAtom == atom.Ul {
			lists = append(lists, c)
			continue
		}
		lists = append(lists, childLists(c)...)
	}
	return lists
}

// --- NCX XML decoding structs ---

// ncxDocument represents the root <ncx> element of an NCX file.
type ncxDocument struct {
	XMLName xml.Name  `xml:"ncx"`
	NavMap  ncxNavMap `xml:"navMap"`
}

// ncxNavMap represents the <navMap> element containing top-level navPoints.
type ncxNavMap struct {
	NavPoints []ncxNavPoint `xml:"navPoint"`
}

// ncxNavPoint represents a <navPoint> element which may contain nested
// navPoints.
type ncxNavPoint struct {
	Label    ncxNavLabel   `xml:"navLabel"`
	Content  ncxContent    `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

// ncxNavLabel represents the <navLabel> element containing the display text.
type ncxNavLabel struct {
	Text string `xml:"text"`
}

// ncxContent represents the <content> element with its src attribute.
type ncxContent struct {
	Src string `xml:"src,attr"`
}

// parseNCXEntries parses legacy NCX data into TOC entries by walking the
// navMap recursively.
func parseNCXEntries(data []byte, ncxPath string) ([]tocEntry, []string) {
	data = preprocessHTMLEntities(data)
	data = stripBOM(data)

	var doc ncxDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, []string{fmt.Sprintf("cannot parse navigation document %s: %v", ncxPath, err)}
	}

	var entries []tocEntry
	walkNavPoints(doc.NavMap.NavPoints, ncxPath, 1, &entries)
	return entries, nil
}

// walkNavPoints converts navPoint elements into TOC entries depth-first,
// nested navPoints one depth level down.
func walkNavPoints(points []ncxNavPoint, ncxPath string, depth int, entries *[]tocEntry) {
	for _, np := range points {
		src := strings.TrimSpace(np.Content.Src)
		if resolved := resolveHref(ncxPath, src); resolved != "" {
			_, frag := splitFragment(src)
			*entries = append(*entries, tocEntry{
				Path:     resolved,
				Fragment: decodeFragment(frag),
				Title:    strings.TrimSpace(collapseWhitespace(np.Label.Text)),
				Depth:    depth,
			})
		}
		walkNavPoints(np.Children, ncxPath, depth+1, entries)
	}
}

package epubtext

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// markerTag names the synthetic element inserted before chapter-boundary
// anchors. The dashed name cannot collide with a standard tag.
const markerTag = "x-chapter-break"

// walkContext is the traversal state passed by value down recursive calls,
// so a subtree can never leak preformatted or list-depth state into its
// siblings.
type walkContext struct {
	pre       bool
	listDepth int
}

// extractState is the mutable accumulator shared across one chapter's
// traversal. emitted and lastSeparator drive separator bookkeeping: a
// separator is only placed after real content and never twice in a row.
type extractState struct {
	segments      []segment
	emitted       bool
	lastSeparator bool
}

// add appends a structural segment without touching separator bookkeeping.
func (st *extractState) add(text string, pre bool) {
	st.segments = append(st.segments, segment{text: text, pre: pre})
}

// addContent appends a segment that counts as visible content when it has
// any non-whitespace in it.
func (st *extractState) addContent(text string, pre bool) {
	st.add(text, pre)
	if strings.TrimSpace(text) != "" {
		st.emitted = true
		st.lastSeparator = false
	}
}

// extractText converts one content document into an ordered segment
// sequence. anchorIDs lists the element identifiers that mark chapter
// boundaries inside this document; a marker element is injected before each
// matching element prior to traversal. Malformed markup never fails: the
// parser produces a best-effort tree and extraction proceeds on whatever it
// yields. A document without a body element is walked from its root.
func extractText(content string, anchorIDs []string) []segment {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil
	}

	root := findElement(doc, atom.Body)
	if root == nil {
		root = doc
	}

	pruneNonContent(root)
	injectAnchorMarkers(root, anchorIDs)

	st := &extractState{}
	walkNode(root, walkContext{}, st)
	return st.segments
}

// nodeKind selects the traversal rule handling an element. The declaration
// order mirrors the rule precedence.
type nodeKind int

const (
	kindDefault nodeKind = iota
	kindMarker
	kindBreak
	kindScript
	kindMath
	kindImage
	kindBold
	kindList
	kindListItem
	kindHeading
	kindBlock
	kindPre
)

// elementKinds assigns each known tag to its traversal rule. The table
// makes the precedence between overlapping categories explicit in one
// place: a heading is never treated as a generic block, pre wins over
// block. Tags not listed descend with unchanged state.
var elementKinds = map[atom.Atom]nodeKind{
	atom.Br: kindBreak,

	atom.Script: kindScript,
	atom.Math:   kindMath,
	atom.Img:    kindImage,

	atom.B:      kindBold,
	atom.Strong: kindBold,

	atom.Ul: kindList,
	atom.Ol: kindList,
	atom.Li: kindListItem,

	atom.H1: kindHeading,
	atom.H2: kindHeading,
	atom.H3: kindHeading,
	atom.H4: kindHeading,
	atom.H5: kindHeading,
	atom.H6: kindHeading,

	atom.P:          kindBlock,
	atom.Div:        kindBlock,
	atom.Blockquote: kindBlock,
	atom.Hr:         kindBlock,
	atom.Hgroup:     kindBlock,
	atom.Table:      kindBlock,
	atom.Thead:      kindBlock,
	atom.Tbody:      kindBlock,
	atom.Tfoot:      kindBlock,
	atom.Tr:         kindBlock,
	atom.Td:         kindBlock,
	atom.Th:         kindBlock,
	atom.Caption:    kindBlock,
	atom.Section:    kindBlock,
	atom.Article:    kindBlock,
	atom.Aside:      kindBlock,
	atom.Header:     kindBlock,
	atom.Footer:     kindBlock,
	atom.Main:       kindBlock,
	atom.Nav:        kindBlock,
	atom.Figure:     kindBlock,
	atom.Figcaption: kindBlock,
	atom.Dl:         kindBlock,
	atom.Dt:         kindBlock,
	atom.Dd:         kindBlock,

	atom.Pre:  kindPre,
	atom.Code: kindPre,
	atom.Samp: kindPre,
	atom.Kbd:  kindPre,
}

// classify maps an element to its traversal rule. The marker element and
// tags absent from the atom table are matched by name.
func classify(n *html.Node) nodeKind {
	if n.Data == markerTag {
		return kindMarker
	}
	if k, ok := elementKinds[n.DataAtom]; ok {
		return k
	}
	if n.Data == "tt" {
		return kindPre
	}
	return kindDefault
}

// walkNode dispatches one node through the traversal rules and recurses
// into children as each rule dictates.
func walkNode(n *html.Node, ctx walkContext, st *extractState) {
	if n.Type == html.TextNode {
		if ctx.pre {
			if n.Data != "" {
				st.addContent(n.Data, true)
			}
			return
		}
		if text := collapseWhitespace(n.Data); text != "" {
			st.addContent(text, false)
		}
		return
	}
	if n.Type != html.ElementNode {
		walkChildren(n, ctx, st)
		return
	}

	switch classify(n) {
	case kindMarker:
		// A separator is only meaningful after content and never
		// doubled.
		if st.emitted && !st.lastSeparator {
			st.add(chapterSeparator, false)
			st.lastSeparator = true
		}

	case kindBreak:
		st.add("\n", ctx.pre)

	case kindScript:
		// Only scripts carrying inline math markup survive pruning.
		typ := strings.ToLower(getAttr(n, "type"))
		if tex := strings.TrimSpace(textContent(n)); tex != "" {
			emitMath(st, tex, strings.Contains(typ, "mode=display"), ctx.pre)
		}

	case kindMath:
		block := mathIsBlock(n)
		if tex := findTeXAnnotation(n); tex != "" {
			emitMath(st, tex, block, ctx.pre)
			return
		}
		if block && !ctx.pre {
			st.add("\n", false)
			walkChildren(n, ctx, st)
			st.add("\n", false)
			return
		}
		walkChildren(n, ctx, st)

	case kindImage:
		if alt := mathImageAlt(n); alt != "" {
			if mathIsBlock(n) && !ctx.pre {
				st.add("\n", false)
				st.addContent("[MATH: "+alt+"]", false)
				st.add("\n", false)
			} else {
				st.addContent("[MATH: "+alt+"]", false)
			}
			return
		}
		walkChildren(n, ctx, st)

	case kindBold:
		if ctx.pre {
			walkChildren(n, ctx, st)
			return
		}
		st.add("**", false)
		walkChildren(n, ctx, st)
		st.add("**", false)

	case kindList:
		st.add("\n", ctx.pre)
		nctx := ctx
		nctx.listDepth++
		walkChildren(n, nctx, st)
		st.add("\n", ctx.pre)

	case kindListItem:
		st.add("\n", ctx.pre)
		if !ctx.pre {
			depth := ctx.listDepth
			if depth < 1 {
				depth = 1
			}
			// The indent is emitted preformatted so normalization keeps
			// the nesting spaces. The space after the dash is a normal
			// segment, so leading whitespace in the item text folds into
			// it instead of doubling up.
			st.add(strings.Repeat("    ", depth-1)+"-", true)
			st.add(" ", false)
		}
		walkChildren(n, ctx, st)
		st.add("\n", ctx.pre)

	case kindHeading:
		text := strings.TrimSpace(collapseWhitespace(textContent(n)))
		if text == "" {
			// An empty heading only contributes block spacing.
			if ctx.pre {
				walkChildren(n, ctx, st)
				return
			}
			st.add("\n", false)
			walkChildren(n, ctx, st)
			st.add("\n", false)
			return
		}
		st.add("\n", ctx.pre)
		st.addContent(strings.Repeat("#", headingLevel(n.DataAtom))+" "+text, false)
		st.add("\n", ctx.pre)

	case kindBlock:
		if ctx.pre {
			walkChildren(n, ctx, st)
			return
		}
		st.add("\n", false)
		walkChildren(n, ctx, st)
		st.add("\n", false)

	case kindPre:
		nctx := ctx
		nctx.pre = true
		walkChildren(n, nctx, st)

	default:
		walkChildren(n, ctx, st)
	}
}

// walkChildren visits the children of n in document order.
func walkChildren(n *html.Node, ctx walkContext, st *extractState) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNode(c, ctx, st)
	}
}

// headingLevel returns the display level of a heading tag, capped at 6.
func headingLevel(a atom.Atom) int {
	switch a {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	}
	return 6
}

// emitMath renders TeX content with inline or display delimiters. The
// formula is always a normal segment; display math gets its own lines
// outside preformatted context.
func emitMath(st *extractState, tex string, display, pre bool) {
	wrapped := "$" + tex + "$"
	if display {
		wrapped = "$$" + tex + "$$"
	}
	if display && !pre {
		st.add("\n", false)
		st.addContent(wrapped, false)
		st.add("\n", false)
		return
	}
	st.addContent(wrapped, false)
}

// --- preprocessing ---

// pruneNonContent removes elements that never contribute text: style,
// title, meta and noscript, plus script elements that do not carry inline
// math markup.
func pruneNonContent(n *html.Node) {
	var next *html.Node
	for c := n.FirstChild; c != nil; c = next {
		next = c.NextSibling
		if c.Type == html.ElementNode && shouldPrune(c) {
			n.RemoveChild(c)
			continue
		}
		pruneNonContent(c)
	}
}

func shouldPrune(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Style, atom.Title, atom.Meta, atom.Noscript:
		return true
	case atom.Script:
		return !isMathScript(n)
	}
	return false
}

// isMathScript reports whether a script element carries inline TeX markup
// rather than executable code.
func isMathScript(n *html.Node) bool {
	typ := strings.ToLower(getAttr(n, "type"))
	return strings.Contains(typ, "math/tex") || strings.Contains(typ, "math/latex")
}

// injectAnchorMarkers inserts a marker element before each element
// referenced by an anchor ID. An anchor nested inside a heading retargets
// to the heading itself, so the separator lands before the whole heading
// line. A target already marked by an earlier anchor is skipped, as is an
// ID with no matching element.
func injectAnchorMarkers(root *html.Node, anchorIDs []string) {
	if len(anchorIDs) == 0 {
		return
	}
	marked := make(map[*html.Node]bool, len(anchorIDs))
	for _, id := range anchorIDs {
		target := findAnchorTarget(root, id)
		if target == nil {
			continue
		}
		if h := enclosingHeading(target); h != nil {
			target = h
		}
		if target.Parent == nil || marked[target] {
			continue
		}
		marked[target] = true
		marker := &html.Node{Type: html.ElementNode, Data: markerTag}
		target.Parent.InsertBefore(marker, target)
	}
}

// findAnchorTarget locates the element carrying the given fragment ID,
// preferring an id attribute match and falling back to a legacy name
// attribute match.
func findAnchorTarget(root *html.Node, id string) *html.Node {
	if n := findByAttr(root, "id", id); n != nil {
		return n
	}
	return findByAttr(root, "name", id)
}

// findByAttr performs a depth-first search for the first element whose
// attribute key equals val.
func findByAttr(n *html.Node, key, val string) *html.Node {
	if n.Type == html.ElementNode && getAttr(n, key) == val {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByAttr(c, key, val); found != nil {
			return found
		}
	}
	return nil
}

// enclosingHeading returns the nearest heading ancestor of n, or nil.
func enclosingHeading(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && isHeadingAtom(p.DataAtom) {
			return p
		}
	}
	return nil
}

func isHeadingAtom(a atom.Atom) bool {
	switch a {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		return true
	}
	return false
}

// --- math detection ---

// texTokenPattern matches alt text that reads like TeX source.
var texTokenPattern = regexp.MustCompile(`\\[a-zA-Z]+|\\\(|\\\[|\^\{|_\{`)

// mathImageAlt returns the alternative text of an image that stands in for
// a formula, or "" when the image is not math-like or carries no text. The
// class match is token-exact so names like "text-center" do not trigger it.
func mathImageAlt(n *html.Node) string {
	alt := strings.TrimSpace(getAttr(n, "alt"))
	if alt == "" {
		alt = strings.TrimSpace(getAttr(n, "aria-label"))
	}
	if alt == "" {
		return ""
	}
	if strings.EqualFold(strings.TrimSpace(getAttr(n, "role")), "math") {
		return alt
	}
	for _, cls := range strings.Fields(strings.ToLower(getAttr(n, "class"))) {
		switch cls {
		case "math", "tex", "latex", "mathjax", "mimetex", "mathml", "equation":
			return alt
		}
	}
	if texTokenPattern.MatchString(alt) {
		return alt
	}
	return ""
}

// findTeXAnnotation searches a MathML subtree for an annotation element
// whose encoding names TeX or LaTeX and returns its text content.
func findTeXAnnotation(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "annotation" {
		enc := strings.ToLower(getAttr(n, "encoding"))
		if strings.HasSuffix(enc, "tex") || strings.Contains(enc, "latex") {
			return strings.TrimSpace(textContent(n))
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if tex := findTeXAnnotation(c); tex != "" {
			return tex
		}
	}
	return ""
}

// mathIsBlock reports whether a math-bearing element is flagged as
// block-level, via its display attribute or a class name containing
// "block" or "display".
func mathIsBlock(n *html.Node) bool {
	if strings.EqualFold(strings.TrimSpace(getAttr(n, "display")), "block") {
		return true
	}
	class := strings.ToLower(getAttr(n, "class"))
	return strings.Contains(class, "block") || strings.Contains(class, "display")
}

// --- shared tree helpers ---

// getAttr returns the value of the attribute with the given key on n.
func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// hasAttrToken reports whether the space-separated attribute value on n
// contains the given token.
func hasAttrToken(n *html.Node, key, token string) bool {
	for _, t := range strings.Fields(getAttr(n, key)) {
		if t == token {
			return true
		}
	}
	return false
}

// textContent recursively collects all text content within a node.
func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(textContent(c))
	}
	return sb.String()
}

// findElement performs a depth-first search for a node with the given atom
// tag.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

// collapseWhitespace replaces runs of whitespace characters with a single
// space. Boundary whitespace is kept as one space so spacing between
// inline elements survives; all-whitespace input collapses to one space.
func collapseWhitespace(s string) string {
	if s == "" {
		return ""
	}
	var buf strings.Builder
	buf.Grow(len(s))
	inSpace := false
	for _, r := range s {
		if isWhitespace(r) {
			inSpace = true
			continue
		}
		if inSpace && buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteRune(r)
		inSpace = false
	}
	if buf.Len() == 0 {
		return " "
	}
	result := buf.String()
	if isWhitespace(rune(s[0])) {
		result = " " + result
	}
	if inSpace {
		result += " "
	}
	return result
}

// isWhitespace reports whether r is an ASCII whitespace character.
func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}

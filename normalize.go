package epubtext

import (
	"regexp"
	"strings"
)

var (
	// horizontalSpacePattern matches runs of horizontal whitespace.
	horizontalSpacePattern = regexp.MustCompile(`[ \t\f\v]+`)

	// paddedNewlinePattern matches a newline with space padding on either
	// side.
	paddedNewlinePattern = regexp.MustCompile(` *\n *`)

	// newlineRunPattern matches three or more consecutive newlines.
	newlineRunPattern = regexp.MustCompile(`\n{3,}`)
)

// normalizeSegments collapses a segment sequence into the final chapter
// text. Consecutive normal segments are buffered and folded together;
// preformatted segments pass through verbatim apart from line-ending
// normalization. The combined result is trimmed of leading and trailing
// newlines only.
func normalizeSegments(segs []segment) string {
	var out strings.Builder
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		out.WriteString(foldWhitespace(buf.String()))
		buf.Reset()
	}

	for _, seg := range segs {
		if seg.pre {
			flush()
			out.WriteString(normalizeLineEndings(seg.text))
			continue
		}
		buf.WriteString(seg.text)
	}
	flush()

	return strings.Trim(out.String(), "\n")
}

// foldWhitespace normalizes line endings, collapses horizontal whitespace
// runs to one space, strips space padding around newlines, and caps
// newline runs at two.
func foldWhitespace(s string) string {
	s = normalizeLineEndings(s)
	s = horizontalSpacePattern.ReplaceAllString(s, " ")
	s = paddedNewlinePattern.ReplaceAllString(s, "\n")
	s = newlineRunPattern.ReplaceAllString(s, "\n\n")
	return s
}

// normalizeLineEndings converts Windows and old Mac line endings to "\n".
func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

package epubtext

import (
	"bytes"
	"io"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// sniffWindow is how many leading bytes of a document are inspected for an
// encoding declaration.
const sniffWindow = 2048

// Declaration patterns, checked in order: XML declaration, meta charset,
// meta http-equiv Content-Type. First match wins.
var (
	xmlDeclEncodingPattern = regexp.MustCompile(`(?i)<\?xml[^>]*\bencoding\s*=\s*["']([^"']+)["']`)
	metaCharsetPattern     = regexp.MustCompile(`(?i)<meta[^>]*\bcharset\s*=\s*["']?([^"'\s/>;]+)`)
	metaContentTypePattern = regexp.MustCompile(`(?i)<meta[^>]*http-equiv\s*=\s*["']?content-type["']?[^>]*\bcontent\s*=\s*["'][^"']*charset=([^"'\s;]+)`)
)

// sniffEncoding inspects at most the first 2 KiB of data for a declared
// character encoding and returns its normalized name, or "" when nothing is
// declared. UTF-16 byte order marks are recognized before any declaration.
func sniffEncoding(data []byte) string {
	head := data
	if len(head) > sniffWindow {
		head = head[:sniffWindow]
	}

	if len(head) >= 2 {
		if head[0] == 0xFF && head[1] == 0xFE {
			return "utf-16le"
		}
		if head[0] == 0xFE && head[1] == 0xFF {
			return "utf-16be"
		}
	}

	for _, re := range []*regexp.Regexp{xmlDeclEncodingPattern, metaCharsetPattern, metaContentTypePattern} {
		if m := re.FindSubmatch(head); m != nil {
			return normalizeEncodingName(string(m[1]))
		}
	}
	return ""
}

// normalizeEncodingName lowercases the name, converts underscores to
// hyphens, and maps the bare "utf8" spelling to "utf-8".
func normalizeEncodingName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "_", "-")
	if name == "utf8" {
		name = "utf-8"
	}
	return name
}

// decodeContent decodes a content document using its declared encoding and
// returns the text plus the encoding name actually used. An undeclared,
// unsupported, or undecodable encoding falls back to UTF-8 rather than
// failing the chapter. A leading BOM is stripped from the result.
func decodeContent(data []byte) (string, string) {
	if name := sniffEncoding(data); name != "" && name != "utf-8" {
		if enc, err := htmlindex.Get(name); err == nil {
			r := transform.NewReader(bytes.NewReader(data), enc.NewDecoder())
			if decoded, err := io.ReadAll(r); err == nil {
				return stripTextBOM(string(decoded)), name
			}
		}
	}
	return stripTextBOM(string(data)), "utf-8"
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// stripTextBOM removes a leading byte order mark from decoded text.
func stripTextBOM(s string) string {
	return strings.TrimPrefix(s, "\uFEFF")
}

// entityNameToNumeric maps lowercase HTML entity names to their XML numeric
// character references. encoding/xml does not recognise HTML named entities,
// so they are converted before container, package, and NCX documents parse.
var entityNameToNumeric = map[string][]byte{
	"nbsp": []byte("&#160;"), "mdash": []byte("&#8212;"), "ndash": []byte("&#8211;"),
	"hellip": []byte("&#8230;"),
	"lsquo":  []byte("&#8216;"), "rsquo": []byte("&#8217;"),
	"ldquo": []byte("&#8220;"), "rdquo": []byte("&#8221;"),
	"copy": []byte("&#169;"), "reg": []byte("&#174;"), "trade": []byte("&#8482;"),
	"bull": []byte("&#8226;"), "middot": []byte("&#183;"),
	"eacute": []byte("&#233;"), "egrave": []byte("&#232;"),
	"ecirc": []byte("&#234;"), "euml": []byte("&#235;"),
	"aacute": []byte("&#225;"), "agrave": []byte("&#224;"),
	"acirc": []byte("&#226;"), "auml": []byte("&#228;"),
	"iacute": []byte("&#237;"), "igrave": []byte("&#236;"),
	"icirc": []byte("&#238;"), "iuml": []byte("&#239;"),
	"oacute": []byte("&#243;"), "ograve": []byte("&#242;"),
	"ocirc": []byte("&#244;"), "ouml": []byte("&#246;"),
	"uacute": []byte("&#250;"), "ugrave": []byte("&#249;"),
	"ucirc": []byte("&#251;"), "uuml": []byte("&#252;"),
	"ntilde": []byte("&#241;"), "ccedil": []byte("&#231;"),
	"times": []byte("&#215;"), "divide": []byte("&#247;"),
	"deg": []byte("&#176;"), "para": []byte("&#182;"), "sect": []byte("&#167;"),
	"laquo": []byte("&#171;"), "raquo": []byte("&#187;"),
	"iexcl": []byte("&#161;"), "iquest": []byte("&#191;"),
}

// htmlEntityPattern matches common HTML named entities case-insensitively.
var htmlEntityPattern = regexp.MustCompile(
	`(?i)&(nbsp|mdash|ndash|hellip|lsquo|rsquo|ldquo|rdquo|copy|reg|trade|bull|middot|` +
		`eacute|egrave|ecirc|euml|aacute|agrave|acirc|auml|iacute|igrave|icirc|iuml|` +
		`oacute|ograve|ocirc|ouml|uacute|ugrave|ucirc|uuml|ntilde|ccedil|` +
		`times|divide|deg|para|sect|laquo|raquo|iexcl|iquest);`)

// preprocessHTMLEntities replaces common HTML named entities with numeric
// character references so that encoding/xml can parse the data. Matching is
// case-insensitive to handle non-standard EPUB content.
func preprocessHTMLEntities(data []byte) []byte {
	return htmlEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := strings.ToLower(string(match[1 : len(match)-1]))
		if replacement, ok := entityNameToNumeric[name]; ok {
			return replacement
		}
		return match
	})
}

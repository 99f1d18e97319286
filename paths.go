package epubtext

import (
	"net/url"
	"path"
	"strings"
)

// splitFragment splits an href into its path part and fragment identifier.
// The fragment is returned without the leading "#" and without decoding.
func splitFragment(href string) (string, string) {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i], href[i+1:]
	}
	return href, ""
}

// resolveHref resolves href relative to the directory of basePath. Both are
// archive-internal paths; backslash separators are tolerated. The fragment
// is stripped and percent-encoded components are decoded (decoding failure
// keeps the raw string). Normalization is stack-based: "." segments are
// dropped, ".." pops the last segment and is a no-op at the root, so the
// result is always archive-root-relative and never contains "..". This is
// the single place path traversal is neutralized; callers do not re-check.
//
// Returns "" for an empty or fragment-only href (no target).
func resolveHref(basePath, href string) string {
	href = strings.TrimSpace(href)
	href, _ = splitFragment(href)
	if href == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}

	isSep := func(r rune) bool { return r == '/' || r == '\\' }

	var stack []string
	apply := func(s string) {
		for _, seg := range strings.FieldsFunc(s, isSep) {
			switch seg {
			case ".":
			case "..":
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			default:
				stack = append(stack, seg)
			}
		}
	}

	// An href starting with a separator is taken relative to the archive
	// root; anything else starts from the base document's directory.
	if !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "\\") {
		if i := strings.LastIndexFunc(basePath, isSep); i >= 0 {
			apply(basePath[:i])
		}
	}
	apply(href)

	return strings.Join(stack, "/")
}

// isHTMLPath reports whether p carries an HTML-like file extension.
func isHTMLPath(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

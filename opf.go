package epubtext

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ncxMediaType is the manifest media type of a legacy NCX navigation file.
const ncxMediaType = "application/x-dtbncx+xml"

// opfPackage represents the root <package> element of an OPF file. Manifest
// is a pointer so an absent <manifest> element can be told apart from a
// present but empty one.
type opfPackage struct {
	XMLName  xml.Name     `xml:"package"`
	Version  string       `xml:"version,attr"`
	Metadata opfMetadata  `xml:"metadata"`
	Manifest *opfManifest `xml:"manifest"`
	Spine    opfSpine     `xml:"spine"`
}

// opfMetadata holds the raw Dublin Core elements from the OPF file.
type opfMetadata struct {
	Titles    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators  []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Languages []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ language"`
}

// opfDCElement holds a Dublin Core element's text content.
type opfDCElement struct {
	Value string `xml:",chardata"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	Toc      string            `xml:"toc,attr"`
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// parsePackage reads and parses the package document at opfPath and derives
// the reading-order chapter list, the navigation document location, and the
// book metadata. Chapter and TOC paths are returned as resolved archive
// paths.
//
// A package without a <manifest> element fails with a wrapped
// ErrInvalidPackage; an empty manifest simply resolves no spine references.
// A spine that yields no chapters falls back to every HTML entry in the
// archive, sorted, with a warning. If that fallback is also empty the
// conversion cannot proceed and a wrapped ErrNoContent is returned.
func parsePackage(a *Archive, opfPath string) (*packageInfo, []string, error) {
	data, err := a.Read(opfPath)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, nil, fmt.Errorf("epubtext: package document %s not in archive: %w", opfPath, ErrMissingPackage)
		}
		return nil, nil, fmt.Errorf("epubtext: read package document %s: %v: %w", opfPath, err, ErrInvalidPackage)
	}

	data = preprocessHTMLEntities(data)
	data = stripBOM(data)

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, nil, fmt.Errorf("epubtext: parse package document %s: %v: %w", opfPath, err, ErrInvalidPackage)
	}
	if pkg.Manifest == nil {
		return nil, nil, fmt.Errorf("epubtext: package document %s has no manifest: %w", opfPath, ErrInvalidPackage)
	}

	var warnings []string

	manifest := buildManifest(*pkg.Manifest)

	chapters := make([]string, 0, len(pkg.Spine.ItemRefs))
	for _, ref := range pkg.Spine.ItemRefs {
		idref := strings.TrimSpace(ref.IDRef)
		if idref == "" {
			continue
		}
		item, ok := manifest[idref]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("spine references unknown manifest id %q", idref))
			continue
		}
		if resolved := resolveHref(opfPath, item.Href); resolved != "" {
			chapters = append(chapters, resolved)
		}
	}

	if len(chapters) == 0 {
		chapters = a.HTMLEntries()
		if len(chapters) == 0 {
			return nil, warnings, fmt.Errorf("epubtext: package has no usable spine and archive has no HTML entries: %w", ErrNoContent)
		}
		warnings = append(warnings, "package spine is empty; using all HTML entries in sorted order")
	}

	info := &packageInfo{
		Chapters: chapters,
		TOCPath:  locateTOC(pkg, manifest, opfPath),
		Metadata: buildMetadata(pkg.Metadata),
	}
	return info, warnings, nil
}

// buildManifest creates an id-keyed lookup map from the parsed manifest.
// Items missing an id or an href are skipped; duplicate ids keep the last
// occurrence.
func buildManifest(manifest opfManifest) map[string]opfManifestItem {
	byID := make(map[string]opfManifestItem, len(manifest.Items))
	for _, item := range manifest.Items {
		if item.ID == "" || item.Href == "" {
			continue
		}
		byID[item.ID] = item
	}
	return byID
}

// locateTOC determines the navigation document path, preferring an EPUB 3
// nav item over a legacy NCX. For the NCX the spine's toc attribute takes
// precedence over a manifest media-type scan. Returns an empty path when
// the package declares no navigation document.
func locateTOC(pkg opfPackage, manifest map[string]opfManifestItem, opfPath string) string {
	// EPUB 3: manifest item whose properties include the "nav" token.
	for _, item := range pkg.Manifest.Items {
		if item.Href == "" || !hasProperty(item.Properties, "nav") {
			continue
		}
		if resolved := resolveHref(opfPath, item.Href); resolved != "" {
			return resolved
		}
	}

	// EPUB 2: the spine's toc attribute names the NCX manifest item.
	if toc := strings.TrimSpace(pkg.Spine.Toc); toc != "" {
		if item, ok := manifest[toc]; ok {
			if resolved := resolveHref(opfPath, item.Href); resolved != "" {
				return resolved
			}
		}
	}

	// Last resort: any manifest item with the NCX media type.
	for _, item := range pkg.Manifest.Items {
		if item.Href == "" || !strings.EqualFold(strings.TrimSpace(item.MediaType), ncxMediaType) {
			continue
		}
		if resolved := resolveHref(opfPath, item.Href); resolved != "" {
			return resolved
		}
	}

	return ""
}

// hasProperty reports whether the space-separated property list contains
// the given token.
func hasProperty(properties, token string) bool {
	for _, p := range strings.Fields(properties) {
		if p == token {
			return true
		}
	}
	return false
}

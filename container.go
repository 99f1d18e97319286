package epubtext

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// containerXML models the META-INF/container.xml file used to locate the
// package document.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// containerPath is the well-known location of container.xml in an EPUB
// archive.
const containerPath = "META-INF/container.xml"

// packageMediaType marks a rootfile entry as the package document.
const packageMediaType = "application/oebps-package+xml"

// locatePackage determines the package document (OPF) path inside the
// archive.
//
// It first tries META-INF/container.xml. When the descriptor is missing,
// unreadable, or names no entry actually present in the archive, it falls
// back to scanning all entries for a ".opf" file and reports the
// degradation as a warning. Returns a wrapped ErrMissingPackage when no
// package document can be located at all.
func locatePackage(a *Archive) (string, []string, error) {
	var warnings []string

	if path, ok := packageFromContainer(a, &warnings); ok {
		return path, warnings, nil
	}

	// Fallback: scan for .opf entries.
	for _, name := range a.Names() {
		if strings.HasSuffix(strings.ToLower(name), ".opf") {
			warnings = append(warnings, fmt.Sprintf("using package document %s found by scan", name))
			return name, warnings, nil
		}
	}

	return "", warnings, fmt.Errorf("epubtext: no package document found in archive: %w", ErrMissingPackage)
}

// packageFromContainer resolves the package path declared in container.xml.
// Every failure mode is recorded as a warning and reported via ok=false so
// the caller falls back to scanning.
func packageFromContainer(a *Archive, warnings *[]string) (string, bool) {
	data, err := a.Read(containerPath)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("cannot read %s: %v", containerPath, err))
		return "", false
	}

	data = stripBOM(data)

	var c containerXML
	if err := xml.Unmarshal(data, &c); err != nil {
		*warnings = append(*warnings, fmt.Sprintf("cannot parse %s: %v", containerPath, err))
		return "", false
	}

	full := selectRootfile(c.RootFiles)
	if full == "" {
		*warnings = append(*warnings, fmt.Sprintf("%s declares no usable rootfile", containerPath))
		return "", false
	}

	// The full-path attribute is relative to the archive root. Resolving
	// against an empty base neutralizes any traversal sequences.
	resolved := resolveHref("", full)
	if resolved == "" || !a.Has(resolved) {
		*warnings = append(*warnings, fmt.Sprintf("declared package document %s not found in archive", full))
		return "", false
	}

	return resolved, true
}

// selectRootfile picks the package rootfile: the first entry declaring the
// package media type wins, otherwise the first entry with a non-empty
// full-path.
func selectRootfile(rootFiles []rootFile) string {
	var fallback string
	for _, rf := range rootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), packageMediaType) {
			return fullPath
		}
		if fallback == "" {
			fallback = fullPath
		}
	}
	return fallback
}

package epubtext

import "strings"

// buildMetadata converts the raw OPF metadata into the public Metadata
// struct. Values are trimmed; empty elements are skipped.
func buildMetadata(om opfMetadata) Metadata {
	var md Metadata

	// First non-empty title wins.
	for _, t := range om.Titles {
		if v := strings.TrimSpace(t.Value); v != "" {
			md.Title = v
			break
		}
	}

	// All creators, in document order.
	for _, c := range om.Creators {
		if v := strings.TrimSpace(c.Value); v != "" {
			md.Authors = append(md.Authors, v)
		}
	}

	// First non-empty language wins.
	for _, l := range om.Languages {
		if v := strings.TrimSpace(l.Value); v != "" {
			md.Language = v
			break
		}
	}

	return md
}

package lifecycle

import (
	"regexp"
	"strings"
)

// Path hint extraction. Hints are the weakest metadata source: anything
// from frontmatter or the caller overrides them.
var (
	epicSegmentRe  = regexp.MustCompile(`(?i)^epic[-_](\d+)$`)
	storySegmentRe = regexp.MustCompile(`(?i)^story[-_](\d+)[._](\d+)$`)
)

// pathHints carries what a document path reveals about its place in the
// feature/epic/story hierarchy.
type pathHints struct {
	Feature string
	Epic    *int
	Story   string
}

// extractPathHints reads hints from path segments, case-insensitively:
// the segment after the first "features/" marker, "epic[-_]N", and
// "story[-_]N[._]M" (normalised to "N.M").
func extractPathHints(path string) pathHints {
	var hints pathHints

	segments := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for i, seg := range segments {
		if hints.Feature == "" && strings.EqualFold(seg, "features") && i+1 < len(segments) {
			hints.Feature = segments[i+1]
		}
		if hints.Epic == nil {
			if m := epicSegmentRe.FindStringSubmatch(stripExt(seg)); m != nil {
				hints.Epic = atoiPtr(m[1])
			}
		}
		if hints.Story == "" {
			if m := storySegmentRe.FindStringSubmatch(stripExt(seg)); m != nil {
				hints.Story = m[1] + "." + m[2]
			}
		}
	}
	return hints
}

func stripExt(seg string) string {
	if i := strings.LastIndex(seg, "."); i > 0 {
		// Only strip a trailing extension-looking suffix; "story_1.2"
		// must keep its ".2".
		if ext := seg[i+1:]; !isDigits(ext) {
			return seg[:i]
		}
	}
	return seg
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func atoiPtr(s string) *int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return &n
}

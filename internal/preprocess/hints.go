package preprocess

import "strings"

// DefaultHintMarker starts a line of optimizer hints in the source scripts.
const DefaultHintMarker = "--HINT"

// HintStripper removes hint lines from script text.
type HintStripper struct {
	marker string
}

// NewHintStripper returns a stripper for marker, or DefaultHintMarker when
// marker is empty.
func NewHintStripper(marker string) *HintStripper {
	if marker == "" {
		marker = DefaultHintMarker
	}
	return &HintStripper{marker: marker}
}

// Strip drops every line whose left-trimmed content begins with the
// marker. All other lines, blank ones included, are kept verbatim.
func (h *HintStripper) Strip(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t\r\f\v"), h.marker) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

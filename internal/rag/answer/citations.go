package answer

import (
	"regexp"
	"strconv"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
)

// citationPattern accepts "[msg: M-68e801dc, page: 1]" plus the spacing, page spellings and missing commas models drift into.
// The id group is deliberately loose so filename citations are captured and then rejected by validation.
var citationPattern = regexp.MustCompile(`(?i)\[\s*msg\s*:\s*([^,\]\s]+)\s*(?:,?\s*(?:page|pg|p)\.?\s*:?\s*(\d+)\s*)?\]`)

func ExtractCitations(text string) []commonModels.Citation {
	var out []commonModels.Citation
	seen := make(map[string]bool)
	for _, m := range citationPattern.FindAllStringSubmatch(text, -1) {
		c := commonModels.Citation{MessageId: m[1]}
		if m[2] != "" {
			if n, err := strconv.Atoi(m[2]); err == nil {
				c.PageNo = commonModels.IntPtr(n)
			}
		}
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// Validate keeps citations whose message id belongs to a chunk in ranked and reports how many were dropped.
// Invalid citations are never corrected.
func Validate(citations []commonModels.Citation, ranked commonModels.RankedResult) ([]commonModels.Citation, int) {
	valid := make([]commonModels.Citation, 0, len(citations))
	for _, c := range citations {
		if ranked.HasMessage(c.MessageId) {
			valid = append(valid, c)
		}
	}
	return valid, len(citations) - len(valid)
}

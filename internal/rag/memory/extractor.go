package memory

import (
	"regexp"
	"sort"
	"strings"
)

type Category string

const (
	Person  Category = "person"
	Date    Category = "date"
	Amount  Category = "amount"
	File    Category = "file"
	Message Category = "message"
)

// Categories is the fixed iteration order used wherever entities are serialized.
var Categories = []Category{Person, Date, Amount, File, Message}

// Fragment holds the distinct values found in one text, per category, in order of appearance.
type Fragment map[Category][]string

// Extractor turns free text into an entity fragment. Implementations must be pure.
type Extractor interface {
	Extract(text string) Fragment
}

type rule struct {
	re    *regexp.Regexp
	group int
}

type PatternExtractor struct {
	nameRun *regexp.Regexp
	rules   map[Category][]rule
}

var notNames = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true, "What": true, "Who": true, "When": true,
	"Where": true, "Which": true, "Why": true, "How": true, "Hi": true, "Hello": true, "Dear": true, "Thanks": true,
	"Regards": true, "Best": true, "Subject": true, "Re": true, "Fw": true, "Fwd": true, "Please": true, "Our": true,
	"Your": true, "My": true, "We": true, "It": true, "If": true, "And": true, "But": true, "For": true, "From": true,
	"To": true, "On": true, "In": true, "At": true, "As": true, "Yes": true, "No": true, "Team": true, "Total": true,
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true, "Friday": true, "Saturday": true, "Sunday": true,
	"January": true, "February": true, "March": true, "April": true, "May": true, "June": true, "July": true,
	"August": true, "September": true, "October": true, "November": true, "December": true,
}

const monthNames = `(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|June?|July?|Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)`

func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{
		nameRun: regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`),
		rules: map[Category][]rule{
			Person: {
				{re: regexp.MustCompile(`\b([A-Z][a-z]+)\s+from\s+[A-Z]\w+`), group: 1},
			},
			Date: {
				{re: regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), group: 1},
				{re: regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{2,4})\b`), group: 1},
				{re: regexp.MustCompile(`\b(` + monthNames + `\.? \d{1,2},? \d{4})\b`), group: 1},
				{re: regexp.MustCompile(`(?i)\b(yesterday|today|tomorrow|(?:last|next) (?:week|month|quarter|year))\b`), group: 1},
			},
			Amount: {
				{re: regexp.MustCompile(`([$€£]\s?(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?(?:[KMBkmb]\b)?)`), group: 1},
				{re: regexp.MustCompile(`(?i)\b((?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d+)?\s?(?:dollars?|usd|euros?|eur))\b`), group: 1},
			},
			File: {
				{re: regexp.MustCompile(`(?i)\b([\w-]+\.(?:pdf|docx?|xlsx?|txt|html?|csv|pptx?))\b`), group: 1},
			},
			Message: {
				{re: regexp.MustCompile(`(?i)\b(M-[a-f0-9]{8})\b`), group: 1},
			},
		},
	}
}

type match struct {
	pos   int
	value string
}

func (p *PatternExtractor) Extract(text string) Fragment {
	out := make(Fragment)
	for _, cat := range Categories {
		var found []match
		if cat == Person {
			found = p.nameBigrams(text)
		}
		for _, r := range p.rules[cat] {
			for _, loc := range r.re.FindAllStringSubmatchIndex(text, -1) {
				start, end := loc[2*r.group], loc[2*r.group+1]
				if start < 0 {
					continue
				}
				value := strings.TrimSpace(text[start:end])
				if cat == Person && !plausibleName(value) {
					continue
				}
				found = append(found, match{pos: start, value: value})
			}
		}
		sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

		seen := make(map[string]bool)
		for _, m := range found {
			if seen[m.value] {
				continue
			}
			seen[m.value] = true
			out[cat] = append(out[cat], m.value)
		}
	}
	return out
}

// nameBigrams splits runs of capitalized words at non-name words and pairs up what remains,
// so "Thanks John Smith" still yields "John Smith".
func (p *PatternExtractor) nameBigrams(text string) []match {
	var out []match
	for _, loc := range p.nameRun.FindAllStringIndex(text, -1) {
		run := text[loc[0]:loc[1]]
		var pending []match
		flush := func() {
			for i := 0; i+1 < len(pending); i += 2 {
				out = append(out, match{pos: pending[i].pos, value: pending[i].value + " " + pending[i+1].value})
			}
			pending = pending[:0]
		}
		offset := 0
		for _, word := range strings.Split(run, " ") {
			if notNames[word] {
				flush()
			} else {
				pending = append(pending, match{pos: loc[0] + offset, value: word})
			}
			offset += len(word) + 1
		}
		flush()
	}
	return out
}

func plausibleName(value string) bool {
	for _, word := range strings.Fields(value) {
		if notNames[word] {
			return false
		}
	}
	return true
}

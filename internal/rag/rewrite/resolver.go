package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/akolanti/ThreadQA/internal/rag/memory"
)

var thingPronoun = regexp.MustCompile(`(?i)\b(it|that|this)\b`)
var personPronoun = regexp.MustCompile(`(?i)\b(he|she|they|him|them)\b`)

// resolveOffline substitutes remembered entities without a model. The first it/that/this becomes the last amount
// (as a budget) or else the last file; he/she/they become the last person. If nothing was substituted the
// remembered file and amount are appended in parentheses. It returns the question unchanged when memory has
// nothing to offer.
func resolveOffline(question string, mem memory.Context) (string, string) {
	last := mem.Entities.LastMentioned
	out := question
	var how []string

	if loc := thingPronoun.FindStringIndex(out); loc != nil {
		var with string
		switch {
		case last[memory.Amount] != "":
			with = "the " + last[memory.Amount] + " budget"
		case last[memory.File] != "":
			with = last[memory.File]
		}
		if with != "" {
			how = append(how, fmt.Sprintf("%q -> %q", strings.ToLower(out[loc[0]:loc[1]]), with))
			out = out[:loc[0]] + with + out[loc[1]:]
		}
	}

	if person := last[memory.Person]; person != "" && personPronoun.MatchString(out) {
		how = append(how, fmt.Sprintf("person -> %q", person))
		out = personPronoun.ReplaceAllLiteralString(out, person)
	}

	if out == question {
		var extra []string
		for _, cat := range []memory.Category{memory.File, memory.Amount} {
			if v := last[cat]; v != "" {
				extra = append(extra, v)
			}
		}
		if len(extra) > 0 {
			out = fmt.Sprintf("%s (%s)", strings.TrimSpace(question), strings.Join(extra, ", "))
			how = append(how, "appended remembered entities")
		}
	}
	return out, strings.Join(how, "; ")
}

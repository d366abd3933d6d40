package rewrite

import (
	"regexp"
	"strings"
)

type Kind string

const (
	KindNone      Kind = ""
	KindPronoun   Kind = "pronoun"
	KindReference Kind = "reference"
	KindEllipsis  Kind = "ellipsis"
)

type Detection struct {
	Kind       Kind
	Expression string
}

func (d Detection) Found() bool {
	return d.Kind != KindNone
}

var pronouns = regexp.MustCompile(`(?i)\b(it|its|this|that|these|those|he|she|they|him|her|them|his|hers|their)\b`)

var references = regexp.MustCompile(`(?i)\b(the (?:draft|contract|proposal|document|file|attachment|budget|approval|amount|meeting)|earlier|previous|above|same)\b`)

var ellipsis = regexp.MustCompile(`(?i)^\s*(?:(what about|how about|and the|and|also)\b)`)

// Detect reports the first referring expression, checking pronouns, then reference phrases, then ellipsis.
func Detect(question string) Detection {
	if m := pronouns.FindStringSubmatch(question); m != nil {
		return Detection{Kind: KindPronoun, Expression: strings.ToLower(m[1])}
	}
	if m := references.FindStringSubmatch(question); m != nil {
		return Detection{Kind: KindReference, Expression: strings.ToLower(m[1])}
	}
	if m := ellipsis.FindStringSubmatch(question); m != nil {
		return Detection{Kind: KindEllipsis, Expression: strings.ToLower(m[1])}
	}
	return Detection{}
}

package rewrite

import (
	"fmt"
	"strings"

	"github.com/akolanti/ThreadQA/internal/rag/memory"
)

const rewriteSystemPrompt = `You rewrite follow-up questions about an email thread into one self-contained question.
Replace pronouns and vague references with the specific people, amounts, dates, files or messages they refer to,
using only the context provided. Do not answer the question. Output only the rewritten question on a single line.`

const maxAnswerContext = 400

func buildRewritePrompt(question string, mem memory.Context) string {
	var b strings.Builder

	b.WriteString("Most recently mentioned entities:\n")
	wrote := false
	for _, cat := range memory.Categories {
		if v := mem.Entities.LastMentioned[cat]; v != "" {
			fmt.Fprintf(&b, "- %s: %s\n", cat, v)
			wrote = true
		}
	}
	if !wrote {
		b.WriteString("- none\n")
	}

	if last, ok := mem.LastTurn(); ok {
		fmt.Fprintf(&b, "\nPrevious question: %s\n", last.Question)
		fmt.Fprintf(&b, "Previous answer: %s\n", truncate(last.Answer, maxAnswerContext))
	}

	fmt.Fprintf(&b, "\nFollow-up question: %s\nRewritten question:", question)
	return b.String()
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

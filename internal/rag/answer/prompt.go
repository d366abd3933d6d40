package answer

import (
	"fmt"
	"strings"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
)

const answerSystemPrompt = `You answer questions about a single email thread using only the numbered sources provided.
Every factual sentence must end with a citation marker of the form [msg: <message_id>] or
[msg: <message_id>, page: <page>] naming the source it came from. Use the message ids exactly as given and never cite
a filename. If the sources do not contain the answer, reply exactly: ` + "\"%s\""

func systemPrompt(insufficient string) string {
	return fmt.Sprintf(answerSystemPrompt, insufficient)
}

func buildPrompt(query string, chunks commonModels.RankedResult, charLimit int) string {
	var b strings.Builder
	b.WriteString("Sources:\n")
	for i, rc := range chunks {
		c := rc.Chunk
		fmt.Fprintf(&b, "\n[%d] message_id: %s", i+1, c.MessageId)
		if c.Filename != "" {
			fmt.Fprintf(&b, " | file: %s", c.Filename)
		}
		if c.PageNo != nil {
			fmt.Fprintf(&b, " | page: %d", *c.PageNo)
		}
		fmt.Fprintf(&b, " | cite as %s\n", commonModels.Citation{MessageId: c.MessageId, PageNo: c.PageNo})
		b.WriteString(clip(c.Text, charLimit))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer with inline citations:", query)
	return b.String()
}

func clip(text string, limit int) string {
	r := []rune(strings.TrimSpace(text))
	if limit <= 0 || len(r) <= limit {
		return string(r)
	}
	return string(r[:limit]) + "..."
}

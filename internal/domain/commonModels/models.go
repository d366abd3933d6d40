package commonModels

import "fmt"

type DocType string

const (
	EMAIL DocType = "email"
	PDF   DocType = "pdf"
	DOCX  DocType = "docx"
	TXT   DocType = "txt"
)

func (d DocType) Valid() bool {
	switch d {
	case EMAIL, PDF, DOCX, TXT:
		return true
	}
	return false
}

// Chunk is immutable once it is part of a ThreadIndex.
type Chunk struct {
	ChunkId   string    `json:"chunk_id"`
	ThreadId  string    `json:"thread_id"`
	MessageId string    `json:"message_id"`
	DocType   DocType   `json:"doc_type"`
	PageNo    *int      `json:"page_no,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding,omitempty"`
}

func (c Chunk) Validate(threadId string) error {
	if c.ChunkId == "" {
		return fmt.Errorf("chunk without chunk_id")
	}
	if c.ThreadId != threadId {
		return fmt.Errorf("chunk %s belongs to thread %q, not %q", c.ChunkId, c.ThreadId, threadId)
	}
	if c.MessageId == "" {
		return fmt.Errorf("chunk %s has no message_id", c.ChunkId)
	}
	if !c.DocType.Valid() {
		return fmt.Errorf("chunk %s has unknown doc_type %q", c.ChunkId, c.DocType)
	}
	if c.PageNo != nil && c.DocType != PDF {
		return fmt.Errorf("chunk %s: page_no is only allowed on pdf chunks", c.ChunkId)
	}
	return nil
}

// ScoredChunk is a raw, un-normalized hit from a single ranking signal.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// RankedChunk carries the fused score in [0,1].
type RankedChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

type RankedResult []RankedChunk

func (r RankedResult) ChunkIds() []string {
	ids := make([]string, len(r))
	for i, rc := range r {
		ids[i] = rc.Chunk.ChunkId
	}
	return ids
}

func (r RankedResult) HasMessage(messageId string) bool {
	for _, rc := range r {
		if rc.Chunk.MessageId == messageId {
			return true
		}
	}
	return false
}

type Citation struct {
	MessageId string `json:"message_id"`
	PageNo    *int   `json:"page_no,omitempty"`
}

func (c Citation) String() string {
	if c.PageNo != nil {
		return fmt.Sprintf("[msg: %s, page: %d]", c.MessageId, *c.PageNo)
	}
	return fmt.Sprintf("[msg: %s]", c.MessageId)
}

type FallbackKind string

const (
	FallbackNone             FallbackKind = "none"
	FallbackInsufficient     FallbackKind = "insufficient"
	FallbackGenerationFailed FallbackKind = "generation_failed"
)

type Answer struct {
	Text             string       `json:"text"`
	Citations        []Citation   `json:"citations"`
	Grounded         bool         `json:"grounded"`
	Fallback         FallbackKind `json:"fallback"`
	DroppedCitations int          `json:"dropped_citations"`
}

func IntPtr(v int) *int {
	return &v
}

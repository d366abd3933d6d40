package session

import (
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
)

type TurnState string

const (
	Received      TurnState = "RECEIVED"
	MemoryRead    TurnState = "MEMORY_READ"
	Rewritten     TurnState = "REWRITTEN"
	Retrieved     TurnState = "RETRIEVED"
	Answered      TurnState = "ANSWERED"
	MemoryUpdated TurnState = "MEMORY_UPDATED"
	Logged        TurnState = "LOGGED"
)

// TurnStates is the only order a turn may move through.
var TurnStates = []TurnState{Received, MemoryRead, Rewritten, Retrieved, Answered, MemoryUpdated, Logged}

type RetrievedChunk struct {
	ChunkId   string  `json:"chunk_id"`
	MessageId string  `json:"message_id"`
	PageNo    *int    `json:"page_no,omitempty"`
	Score     float64 `json:"score"`
}

type TurnResult struct {
	TraceId           string                    `json:"trace_id"`
	SessionId         string                    `json:"session_id"`
	ThreadId          string                    `json:"thread_id"`
	Question          string                    `json:"question"`
	AnswerText        string                    `json:"answer"`
	Citations         []commonModels.Citation   `json:"citations"`
	Grounded          bool                      `json:"grounded"`
	Fallback          commonModels.FallbackKind `json:"fallback"`
	RewrittenQuery    string                    `json:"rewritten_query"`
	Rewritten         bool                      `json:"rewritten"`
	RewriteReason     string                    `json:"rewrite_reason"`
	RetrievedChunks   []RetrievedChunk          `json:"retrieved_chunks"`
	RetrievedChunkIds []string                  `json:"retrieved_chunk_ids"`
	Warnings          []string                  `json:"warnings,omitempty"`
	States            []TurnState               `json:"states"`
}

func (r *TurnResult) advance(state TurnState) {
	r.States = append(r.States, state)
}

func (r *TurnResult) warn(msg string) {
	if msg != "" {
		r.Warnings = append(r.Warnings, msg)
	}
}

func retrievedChunks(ranked commonModels.RankedResult) []RetrievedChunk {
	out := make([]RetrievedChunk, len(ranked))
	for i, rc := range ranked {
		out[i] = RetrievedChunk{
			ChunkId:   rc.Chunk.ChunkId,
			MessageId: rc.Chunk.MessageId,
			PageNo:    rc.Chunk.PageNo,
			Score:     rc.Score,
		}
	}
	return out
}

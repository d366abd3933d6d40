package api

import "time"

// responses---------------------

type StartSessionResponse struct {
	SessionId string `json:"session_id" example:"5b0e3c1e-4f3a-4a8e-9d0c-2a1f6f1c9e11"`
	ThreadId  string `json:"thread_id" example:"T-storage"`
	Message   string `json:"message" example:"Session started for thread T-storage"`
}

type CitationResponse struct {
	Type         string `json:"type" example:"attachment"`
	MessageId    string `json:"message_id" example:"M-68e801dc"`
	Page         *int   `json:"page,omitempty" example:"1"`
	CitationText string `json:"citation_text" example:"[msg: M-68e801dc, page: 1]"`
}

type RetrievedChunkResponse struct {
	ChunkId   string  `json:"chunk_id" example:"att-1_p1_chunk_0"`
	MessageId string  `json:"message_id" example:"M-68e801dc"`
	Score     float64 `json:"score" example:"0.87"`
}

type AskResponse struct {
	Answer           string                   `json:"answer"`
	Citations        []CitationResponse       `json:"citations"`
	Grounded         bool                     `json:"grounded"`
	Rewritten        bool                     `json:"rewritten"`
	RewrittenQuery   string                   `json:"rewritten_query"`
	RewriteReasoning string                   `json:"rewrite_reasoning"`
	RetrievedChunks  []RetrievedChunkResponse `json:"retrieved_chunks"`
	Warnings         []string                 `json:"warnings,omitempty"`
	TraceId          string                   `json:"trace_id"`
	ThreadId         string                   `json:"thread_id"`
	SessionId        string                   `json:"session_id"`
}

type MessageResponse struct {
	Message string `json:"message" example:"Session reset successfully"`
}

type ThreadResponse struct {
	ThreadId   string `json:"thread_id" example:"T-storage"`
	Subject    string `json:"subject,omitempty" example:"Storage Upgrade & Budget"`
	ChunkCount int    `json:"chunk_count" example:"3"`
}

type ThreadsResponse struct {
	Threads []ThreadResponse `json:"threads"`
}

type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Sessions int    `json:"sessions" example:"2"`
	Threads  int    `json:"threads" example:"4"`
}

type EventResponse struct {
	Type      string         `json:"type" example:"query_rewritten"`
	TraceId   string         `json:"trace_id"`
	Timestamp time.Time      `json:"timestamp"`
	Fields    map[string]any `json:"fields"`
}

type EventsResponse struct {
	SessionId string          `json:"session_id"`
	Events    []EventResponse `json:"events"`
}

type ErrorResponse struct {
	Id    string          `json:"id,omitempty"`
	Error OutgoingError `json:"error"`
}

type OutgoingError struct {
	Code    int    `json:"code" example:"404"`
	Message string `json:"message" example:"Session not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// requests---------------------

type StartSessionRequest struct {
	ThreadId string `json:"thread_id" validate:"required" example:"T-storage"`
}

type AskRequest struct {
	Question string `json:"question" validate:"required" example:"Who approved it?"`
	TopK     *int   `json:"top_k,omitempty" example:"5"`
}

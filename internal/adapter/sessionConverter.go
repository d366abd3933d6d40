package adapter

import (
	"fmt"

	"github.com/akolanti/ThreadQA/internal/api"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/index"
	"github.com/akolanti/ThreadQA/internal/session"
	"github.com/akolanti/ThreadQA/internal/trace"
)

func ToStartSessionResponse(sessionId, threadId string) api.StartSessionResponse {
	return api.StartSessionResponse{
		SessionId: sessionId,
		ThreadId:  threadId,
		Message:   fmt.Sprintf("Session started for thread %s", threadId),
	}
}

func ToAskResponse(res session.TurnResult) api.AskResponse {
	chunks := make([]api.RetrievedChunkResponse, len(res.RetrievedChunks))
	for i, c := range res.RetrievedChunks {
		chunks[i] = api.RetrievedChunkResponse{ChunkId: c.ChunkId, MessageId: c.MessageId, Score: c.Score}
	}

	return api.AskResponse{
		Answer:           res.AnswerText,
		Citations:        ToCitationResponses(res.Citations),
		Grounded:         res.Grounded,
		Rewritten:        res.Rewritten,
		RewrittenQuery:   res.RewrittenQuery,
		RewriteReasoning: res.RewriteReason,
		RetrievedChunks:  chunks,
		Warnings:         res.Warnings,
		TraceId:          res.TraceId,
		ThreadId:         res.ThreadId,
		SessionId:        res.SessionId,
	}
}

// ToCitationResponses labels paginated citations as attachments, everything else as messages.
func ToCitationResponses(citations []commonModels.Citation) []api.CitationResponse {
	out := make([]api.CitationResponse, len(citations))
	for i, c := range citations {
		kind := "message"
		if c.PageNo != nil {
			kind = "attachment"
		}
		out[i] = api.CitationResponse{
			Type:         kind,
			MessageId:    c.MessageId,
			Page:         c.PageNo,
			CitationText: c.String(),
		}
	}
	return out
}

func ToThreadsResponse(threads []index.ThreadInfo) api.ThreadsResponse {
	out := make([]api.ThreadResponse, len(threads))
	for i, t := range threads {
		out[i] = api.ThreadResponse{ThreadId: t.ThreadId, Subject: t.Subject, ChunkCount: t.ChunkCount}
	}
	return api.ThreadsResponse{Threads: out}
}

func ToEventsResponse(sessionId string, events []trace.Event) api.EventsResponse {
	out := make([]api.EventResponse, len(events))
	for i, e := range events {
		out[i] = api.EventResponse{Type: string(e.Type), TraceId: e.TraceID, Timestamp: e.Timestamp, Fields: e.Fields}
	}
	return api.EventsResponse{SessionId: sessionId, Events: out}
}

func BadRequest(id string, message string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id: id,
		Error: api.OutgoingError{
			Code:    code,
			Message: message,
			Retry:   code == 429 || code >= 500,
		},
	}
}

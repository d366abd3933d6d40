package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/data/store"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/answer"
	"github.com/akolanti/ThreadQA/internal/rag/index"
	"github.com/akolanti/ThreadQA/internal/rag/llm"
	"github.com/akolanti/ThreadQA/internal/rag/memory"
	"github.com/akolanti/ThreadQA/internal/rag/retrieval"
	"github.com/akolanti/ThreadQA/internal/rag/rewrite"
	"github.com/akolanti/ThreadQA/internal/session"
	"github.com/akolanti/ThreadQA/internal/trace"
)

func storageChunks() []commonModels.Chunk {
	return []commonModels.Chunk{
		{ChunkId: "M-68e801dc_chunk_0", ThreadId: "T-storage", MessageId: "M-68e801dc", DocType: commonModels.EMAIL,
			Text: "Hi team, the storage upgrade proposal is attached."},
		{ChunkId: "att-1_p1_chunk_0", ThreadId: "T-storage", MessageId: "M-68e801dc", DocType: commonModels.PDF,
			PageNo: commonModels.IntPtr(1), Filename: "storage_proposal.pdf",
			Text: "The total budget is $45,000 covering hardware and migration."},
		{ChunkId: "M-7a21c3f0_chunk_0", ThreadId: "T-storage", MessageId: "M-7a21c3f0", DocType: commonModels.EMAIL,
			Text: "The $45,000 budget was approved by Maria Lopez on 2024-03-12."},
	}
}

func storageCatalog(t *testing.T) *index.Catalog {
	t.Helper()
	storage, err := index.Build("T-storage", storageChunks(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	empty, err := index.Build("T-empty", nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	catalog, err := index.NewCatalog(index.Entry{Index: storage, Subject: "Storage Upgrade & Budget"}, index.Entry{Index: empty})
	if err != nil {
		t.Fatal(err)
	}
	return catalog
}

type mockProvider struct {
	mu         sync.Mutex
	OnRewrite  func(req llm.Request) (string, error)
	OnAnswer   func(req llm.Request) (string, error)
	answerReqs []llm.Request
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) Generate(ctx context.Context, req llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strings.Contains(req.Prompt, "Follow-up question:") {
		if m.OnRewrite == nil {
			return "", errors.New("no rewrite configured")
		}
		return m.OnRewrite(req)
	}
	m.answerReqs = append(m.answerReqs, req)
	return m.OnAnswer(req)
}

// storageProvider behaves like a well-grounded model for the two scenario questions.
func storageProvider() *mockProvider {
	return &mockProvider{
		OnRewrite: func(req llm.Request) (string, error) {
			if strings.Contains(req.Prompt, "amount: $45,000") {
				return "Who approved the $45,000 budget?", nil
			}
			return "", nil
		},
		OnAnswer: func(req llm.Request) (string, error) {
			switch {
			case strings.Contains(req.Prompt, "Question: What is the budget amount?"):
				return "The total budget is $45,000 [msg: M-68e801dc, page: 1].", nil
			case strings.Contains(req.Prompt, "Question: Who approved the $45,000 budget?"):
				return "Maria Lopez approved it on 2024-03-12 [msg: M-7a21c3f0].", nil
			}
			return config.InsufficientInfoText, nil
		},
	}
}

func keywordOnly() retrieval.FusionConfig {
	return retrieval.FusionConfig{BM25Weight: 1, VectorWeight: 0, FetchK: config.FusionFetchK}
}

func newService(t *testing.T, p llm.Provider) (session.Service, *trace.StoreSink) {
	sink := trace.NewStoreSink(store.InitInMemoryEventStore())
	opts := answer.DefaultOptions()
	opts.RetryDelay = time.Millisecond
	return session.NewService(session.Dependencies{
		Catalog:  storageCatalog(t),
		Provider: p,
		Fusion:   keywordOnly(),
		MaxTurns: 5,
		Answer:   opts,
		Sink:     sink,
		Events:   sink,
	}), sink
}

type recordingSearcher struct {
	inner   session.Searcher
	queries []string
}

func (r *recordingSearcher) Search(ctx context.Context, query string, topK int) (retrieval.Result, error) {
	r.queries = append(r.queries, query)
	return r.inner.Search(ctx, query, topK)
}

func TestThreadSession_StorageScenario(t *testing.T) {
	catalog := storageCatalog(t)
	idx, _ := catalog.Get("T-storage")
	searcher := &recordingSearcher{inner: retrieval.ForIndex(idx, keywordOnly())}
	p := storageProvider()
	opts := answer.DefaultOptions()
	opts.RetryDelay = time.Millisecond

	sess := session.NewThreadSession("s-1", "T-storage", searcher, memory.NewManager(5, nil),
		rewrite.New(p), answer.NewComposer(p, opts), nil)
	ctx := context.Background()

	first, err := sess.Ask(ctx, "What is the budget amount?", 5)
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if first.Rewritten {
		t.Errorf("turn 1 should not be rewritten: %+v", first)
	}
	if len(first.Citations) != 1 || first.Citations[0].MessageId != "M-68e801dc" || first.Citations[0].PageNo == nil || *first.Citations[0].PageNo != 1 {
		t.Fatalf("turn 1 citations %+v", first.Citations)
	}
	if got := sess.Memory().Entities.LastMentioned[memory.Amount]; got != "$45,000" {
		t.Fatalf("last amount after turn 1: %q", got)
	}

	second, err := sess.Ask(ctx, "Who approved it?", 5)
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if !second.Rewritten || !strings.Contains(second.RewrittenQuery, "$45,000") {
		t.Fatalf("turn 2 not rewritten with the amount: %+v", second)
	}
	if searcher.queries[1] != second.RewrittenQuery {
		t.Errorf("retrieval used %q, want the rewritten query %q", searcher.queries[1], second.RewrittenQuery)
	}
	if len(second.Citations) != 1 || second.Citations[0].MessageId != "M-7a21c3f0" {
		t.Errorf("turn 2 citations %+v", second.Citations)
	}
	if got := sess.Memory().Entities.LastMentioned[memory.Person]; got != "Maria Lopez" {
		t.Errorf("last person after turn 2: %q", got)
	}

	for _, res := range []session.TurnResult{first, second} {
		if !equalStates(res.States, session.TurnStates) {
			t.Errorf("states %v", res.States)
		}
		if res.TraceId == "" || len(res.RetrievedChunkIds) == 0 {
			t.Errorf("missing trace id or chunks: %+v", res)
		}
		for _, c := range res.Citations {
			found := false
			for _, rc := range res.RetrievedChunks {
				if rc.MessageId == c.MessageId {
					found = true
				}
			}
			if !found {
				t.Errorf("citation %s not among retrieved chunks", c)
			}
		}
	}
}

func TestService_EmptyRetrievalIsInsufficient(t *testing.T) {
	p := storageProvider()
	svc, _ := newService(t, p)
	ctx := context.Background()

	id, err := svc.StartSession(ctx, "T-empty")
	if err != nil {
		t.Fatal(err)
	}
	res, err := svc.Ask(ctx, id, "What is the weather on Mars?", 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.AnswerText != config.InsufficientInfoText || len(res.Citations) != 0 || res.Fallback != commonModels.FallbackInsufficient {
		t.Errorf("unexpected result %+v", res)
	}
	if len(p.answerReqs) != 0 {
		t.Error("generation invoked for empty retrieval")
	}
	if !equalStates(res.States, session.TurnStates) {
		t.Errorf("states %v", res.States)
	}
}

func TestService_GenerationFailureStillCompletes(t *testing.T) {
	p := &mockProvider{
		OnRewrite: func(req llm.Request) (string, error) { return "", errors.New("rewrite down") },
		OnAnswer:  func(req llm.Request) (string, error) { return "", errors.New("answer down") },
	}
	svc, _ := newService(t, p)
	ctx := context.Background()
	id, _ := svc.StartSession(ctx, "T-storage")

	first, err := svc.Ask(ctx, id, "What is the budget amount?", 3)
	if err != nil {
		t.Fatal(err)
	}
	if first.AnswerText != config.CannotAnswerText || len(first.Citations) != 0 {
		t.Errorf("unexpected answer %+v", first)
	}

	second, err := svc.Ask(ctx, id, "Who approved it?", 3)
	if err != nil {
		t.Fatal(err)
	}
	if second.Rewritten || second.RewrittenQuery != "Who approved it?" {
		t.Errorf("failed rewrite must keep the question: %+v", second)
	}
	if len(second.Warnings) < 2 {
		t.Errorf("expected rewrite and answer warnings, got %v", second.Warnings)
	}
	if !equalStates(second.States, session.TurnStates) {
		t.Errorf("states %v", second.States)
	}
}

func TestService_Errors(t *testing.T) {
	svc, _ := newService(t, storageProvider())
	ctx := context.Background()

	if _, err := svc.StartSession(ctx, "T-missing"); !errors.Is(err, commonModels.ErrUnknownThread) {
		t.Errorf("StartSession unknown thread: %v", err)
	}
	if _, err := svc.Ask(ctx, "nope", "q", 5); !errors.Is(err, commonModels.ErrUnknownSession) {
		t.Errorf("Ask unknown session: %v", err)
	}
	if err := svc.ResetSession(ctx, "nope"); !errors.Is(err, commonModels.ErrUnknownSession) {
		t.Errorf("Reset unknown session: %v", err)
	}

	id, _ := svc.StartSession(ctx, "T-storage")
	if _, err := svc.Ask(ctx, id, "   ", 5); !errors.Is(err, commonModels.ErrEmptyQuestion) {
		t.Errorf("empty question: %v", err)
	}
	for _, k := range []int{-1, config.MaxTopK + 1} {
		if _, err := svc.Ask(ctx, id, "budget?", k); !errors.Is(err, commonModels.ErrInvalidTopK) {
			t.Errorf("top_k %d: %v", k, err)
		}
	}

	if err := svc.EndSession(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Ask(ctx, id, "budget?", 5); !errors.Is(err, commonModels.ErrUnknownSession) {
		t.Errorf("Ask after EndSession: %v", err)
	}
	if err := svc.EndSession(ctx, id); !errors.Is(err, commonModels.ErrUnknownSession) {
		t.Errorf("second EndSession: %v", err)
	}
}

func TestService_ResetClearsMemory(t *testing.T) {
	svc, _ := newService(t, storageProvider())
	ctx := context.Background()
	id, _ := svc.StartSession(ctx, "T-storage")

	if _, err := svc.Ask(ctx, id, "What is the budget amount?", 5); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := svc.ResetSession(ctx, id); err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
	}
	res, err := svc.Ask(ctx, id, "Who approved it?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rewritten {
		t.Errorf("rewrite used memory that should have been cleared: %+v", res)
	}
}

func TestService_EventsAreRecorded(t *testing.T) {
	svc, _ := newService(t, storageProvider())
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-abc")
	id, _ := svc.StartSession(ctx, "T-storage")

	res, err := svc.Ask(ctx, id, "What is the budget amount?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.TraceId != "trace-abc" {
		t.Errorf("trace id %q", res.TraceId)
	}

	events, err := svc.Events(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	want := []trace.EventType{trace.QueryReceived, trace.QueryRewritten, trace.RetrievalComplete, trace.AnswerGenerated}
	if len(events) != len(want) {
		t.Fatalf("got %d events: %+v", len(events), events)
	}
	for i, e := range events {
		if e.Type != want[i] || e.TraceID != "trace-abc" || e.SessionID != id {
			t.Errorf("event %d: %+v", i, e)
		}
	}
	if events[1].Fields["noop"] != true {
		t.Errorf("unchanged question should be flagged as a no-op rewrite: %+v", events[1].Fields)
	}
}

func TestService_ConcurrentTurnsAreSerialized(t *testing.T) {
	svc, _ := newService(t, storageProvider())
	ctx := context.Background()
	id, _ := svc.StartSession(ctx, "T-storage")
	other, _ := svc.StartSession(ctx, "T-storage")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := svc.Ask(ctx, id, "What is the budget amount?", 5); err != nil {
				t.Error(err)
			}
		}()
		go func() {
			defer wg.Done()
			_ = svc.ResetSession(ctx, other)
			_, _ = svc.Ask(ctx, other, "What is the budget amount?", 5)
		}()
	}
	wg.Wait()

	if n := svc.SessionCount(); n != 2 {
		t.Errorf("session count %d", n)
	}
}

func TestService_EvictIdle(t *testing.T) {
	svc, _ := newService(t, storageProvider())
	ctx := context.Background()
	id, _ := svc.StartSession(ctx, "T-storage")

	if n := svc.EvictIdle(time.Hour); n != 0 {
		t.Errorf("evicted fresh session")
	}
	time.Sleep(5 * time.Millisecond)
	if n := svc.EvictIdle(time.Millisecond); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if _, err := svc.Ask(ctx, id, "budget?", 5); !errors.Is(err, commonModels.ErrUnknownSession) {
		t.Errorf("evicted session still answers: %v", err)
	}
}

func TestService_Janitor(t *testing.T) {
	svc, _ := newService(t, storageProvider())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, _ = svc.StartSession(ctx, "T-storage")

	svc.StartJanitor(ctx, 5*time.Millisecond, time.Millisecond)
	deadline := time.Now().Add(2 * time.Second)
	for svc.SessionCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.SessionCount() != 0 {
		t.Error("janitor did not evict the idle session")
	}
}

func equalStates(a, b []session.TurnState) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestService_EndSessionDropsEvents(t *testing.T) {
	svc, sink := newService(t, storageProvider())
	ctx := context.Background()
	id, _ := svc.StartSession(ctx, "T-storage")
	if _, err := svc.Ask(ctx, id, "What is the budget amount?", 3); err != nil {
		t.Fatal(err)
	}
	if err := svc.EndSession(ctx, id); err != nil {
		t.Fatal(err)
	}

	events, err := sink.Events(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("events kept after EndSession: %d", len(events))
	}
	if _, err := svc.Events(ctx, id); !errors.Is(err, commonModels.ErrUnknownSession) {
		t.Errorf("expected ErrUnknownSession, got %v", err)
	}
}

// cancelAware fails like a real client once its context is done.
type cancelAware struct {
	llm.Provider
}

func (c cancelAware) Generate(ctx context.Context, req llm.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.Provider.Generate(ctx, req)
}

func TestService_CanceledRequestStillCompletesTurn(t *testing.T) {
	svc, _ := newService(t, cancelAware{storageProvider()})
	id, _ := svc.StartSession(context.Background(), "T-storage")

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), config.TRACE_ID_KEY, "trace-gone"))
	cancel()
	res, err := svc.Ask(ctx, id, "What is the budget amount?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback != commonModels.FallbackNone || len(res.Citations) != 1 || res.TraceId != "trace-gone" {
		t.Errorf("turn did not complete normally: %+v", res)
	}
	if !equalStates(res.States, session.TurnStates) {
		t.Errorf("states %v", res.States)
	}

	next, err := svc.Ask(context.Background(), id, "Who approved it?", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !next.Rewritten || !strings.Contains(next.RewrittenQuery, "$45,000") {
		t.Errorf("memory from the canceled turn was not kept: %+v", next)
	}
}

func TestService_EndSessionWaitsForInFlightTurn(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	p := storageProvider()
	answerBudget := p.OnAnswer
	p.OnAnswer = func(req llm.Request) (string, error) {
		close(started)
		<-release
		return answerBudget(req)
	}
	svc, sink := newService(t, p)
	ctx := context.Background()
	id, _ := svc.StartSession(ctx, "T-storage")

	asked := make(chan error, 1)
	go func() {
		_, err := svc.Ask(ctx, id, "What is the budget amount?", 5)
		asked <- err
	}()
	<-started

	ended := make(chan error, 1)
	go func() { ended <- svc.EndSession(ctx, id) }()
	select {
	case err := <-ended:
		t.Fatalf("EndSession returned during a turn: %v", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	if err := <-asked; err != nil {
		t.Fatalf("in-flight turn: %v", err)
	}
	if err := <-ended; err != nil {
		t.Fatal(err)
	}

	events, err := sink.Events(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 0 {
		t.Errorf("in-flight turn left %d events behind", len(events))
	}
}

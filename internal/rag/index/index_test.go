package index

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB"
)

func testChunks() []commonModels.Chunk {
	return []commonModels.Chunk{
		{ChunkId: "c3", ThreadId: "T-1", MessageId: "M-3", DocType: commonModels.EMAIL, Text: "Lunch on Friday anyone?"},
		{ChunkId: "c1", ThreadId: "T-1", MessageId: "M-1", DocType: commonModels.EMAIL, Text: "The storage upgrade budget is $45,000 for this quarter."},
		{ChunkId: "c2", ThreadId: "T-1", MessageId: "M-2", DocType: commonModels.PDF, PageNo: commonModels.IntPtr(1),
			Filename: "budget_proposal.pdf", Text: "Proposal: storage upgrade, approved by Jane Smith."},
	}
}

type mockSearcher struct {
	OnSearch func(ctx context.Context, threadId string, vector []float32, k int) ([]vectorDB.Hit, error)
}

func (m *mockSearcher) Index(ctx context.Context, threadId string, chunks []commonModels.Chunk) error {
	return nil
}

func (m *mockSearcher) Search(ctx context.Context, threadId string, vector []float32, k int) ([]vectorDB.Hit, error) {
	return m.OnSearch(ctx, threadId, vector, k)
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Budget: $45,000 (Q3) for budget_proposal.pdf!")
	want := []string{"budget", "45", "000", "q3", "for", "budget", "proposal", "pdf"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestBuild_Validation(t *testing.T) {
	tests := []struct {
		name   string
		chunks []commonModels.Chunk
	}{
		{"wrong_thread", []commonModels.Chunk{{ChunkId: "c1", ThreadId: "T-2", MessageId: "M-1", DocType: commonModels.EMAIL}}},
		{"duplicate_id", []commonModels.Chunk{
			{ChunkId: "c1", ThreadId: "T-1", MessageId: "M-1", DocType: commonModels.EMAIL},
			{ChunkId: "c1", ThreadId: "T-1", MessageId: "M-2", DocType: commonModels.EMAIL},
		}},
		{"bad_doc_type", []commonModels.Chunk{{ChunkId: "c1", ThreadId: "T-1", MessageId: "M-1", DocType: "xls"}}},
		{"page_on_email", []commonModels.Chunk{{ChunkId: "c1", ThreadId: "T-1", MessageId: "M-1", DocType: commonModels.EMAIL, PageNo: commonModels.IntPtr(2)}}},
		{"missing_message", []commonModels.Chunk{{ChunkId: "c1", ThreadId: "T-1", DocType: commonModels.EMAIL}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build("T-1", tt.chunks, nil, nil); err == nil {
				t.Error("expected build error")
			}
		})
	}
}

func TestKeywordSearch(t *testing.T) {
	idx, err := Build("T-1", testChunks(), nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	hits := idx.KeywordSearch("storage budget", 10)
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ChunkId != "c1" {
		t.Errorf("expected c1 first, got %s", hits[0].Chunk.ChunkId)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("scores not descending: %v", hits)
	}

	if hits := idx.KeywordSearch("budget_proposal.pdf", 1); len(hits) != 1 || hits[0].Chunk.ChunkId != "c2" {
		t.Errorf("filename lookup failed: %+v", hits)
	}
	if hits := idx.KeywordSearch("kubernetes", 5); len(hits) != 0 {
		t.Errorf("expected no hits, got %+v", hits)
	}
}

func TestKeywordSearch_EmptyIndex(t *testing.T) {
	idx, err := Build("T-1", nil, nil, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if hits := idx.KeywordSearch("anything", 5); len(hits) != 0 {
		t.Errorf("expected no hits")
	}
}

func TestVectorSearch_ResolvesAndSkipsStale(t *testing.T) {
	searcher := &mockSearcher{OnSearch: func(ctx context.Context, threadId string, vector []float32, k int) ([]vectorDB.Hit, error) {
		if threadId != "T-1" {
			t.Errorf("searched wrong thread %s", threadId)
		}
		return []vectorDB.Hit{{ChunkId: "c2", Score: 0.9}, {ChunkId: "gone", Score: 0.8}, {ChunkId: "c1", Score: 0.5}}, nil
	}}
	idx, _ := Build("T-1", testChunks(), searcher, nil)

	hits, err := idx.VectorSearch(context.Background(), []float32{1}, 3)
	if err != nil {
		t.Fatalf("VectorSearch failed: %v", err)
	}
	if len(hits) != 2 || hits[0].Chunk.ChunkId != "c2" || hits[1].Chunk.ChunkId != "c1" {
		t.Errorf("unexpected hits %+v", hits)
	}
}

func TestEmbed_NoEmbedder(t *testing.T) {
	idx, _ := Build("T-1", testChunks(), nil, nil)
	if _, err := idx.Embed(context.Background(), "q"); !errors.Is(err, ErrNoEmbedder) {
		t.Errorf("expected ErrNoEmbedder, got %v", err)
	}
}

func TestCatalog(t *testing.T) {
	a, _ := Build("T-b", nil, nil, nil)
	b, _ := Build("T-a", nil, nil, nil)
	cat, err := NewCatalog(Entry{Index: a, Subject: "B"}, Entry{Index: b, Subject: "A"})
	if err != nil {
		t.Fatalf("NewCatalog failed: %v", err)
	}

	if _, err := cat.Get("T-a"); err != nil {
		t.Errorf("Get failed: %v", err)
	}
	if _, err := cat.Get("T-missing"); !errors.Is(err, commonModels.ErrUnknownThread) {
		t.Errorf("expected ErrUnknownThread, got %v", err)
	}

	threads := cat.Threads()
	if len(threads) != 2 || threads[0].ThreadId != "T-a" || threads[0].Subject != "A" {
		t.Errorf("unexpected listing %+v", threads)
	}

	if _, err := NewCatalog(Entry{Index: a}, Entry{Index: a}); err == nil {
		t.Error("expected duplicate thread error")
	}
}

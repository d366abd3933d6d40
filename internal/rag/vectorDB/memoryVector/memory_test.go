package memoryVector

import (
	"context"
	"testing"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
)

func chunk(id string, v ...float32) commonModels.Chunk {
	return commonModels.Chunk{ChunkId: id, ThreadId: "T-1", MessageId: "M-1", DocType: commonModels.EMAIL, Embedding: v}
}

func TestSearch_OrdersByCosine(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	err := s.Index(ctx, "T-1", []commonModels.Chunk{
		chunk("c1", 1, 0),
		chunk("c2", 0, 1),
		chunk("c3", 1, 1),
		chunk("c4"), // no embedding, skipped
	})
	if err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	hits, err := s.Search(ctx, "T-1", []float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	want := []string{"c1", "c3", "c2"}
	for i, id := range want {
		if hits[i].ChunkId != id {
			t.Errorf("hit %d: got %s, want %s", i, hits[i].ChunkId, id)
		}
	}
}

func TestSearch_TieBreakAndLimit(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_ = s.Index(ctx, "T-1", []commonModels.Chunk{chunk("b", 1, 0), chunk("a", 2, 0), chunk("c", 0, 1)})

	hits, _ := s.Search(ctx, "T-1", []float32{1, 0}, 2)
	if len(hits) != 2 || hits[0].ChunkId != "a" || hits[1].ChunkId != "b" {
		t.Errorf("unexpected hits %+v", hits)
	}
}

func TestSearch_ScopedToThread(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	_ = s.Index(ctx, "T-1", []commonModels.Chunk{chunk("c1", 1, 0)})

	hits, err := s.Search(ctx, "T-2", []float32{1, 0}, 5)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits for other thread, got %v %v", hits, err)
	}
}

func TestIndex_DimensionMismatch(t *testing.T) {
	s := NewStore()
	err := s.Index(context.Background(), "T-1", []commonModels.Chunk{chunk("c1", 1, 0), chunk("c2", 1, 0, 0)})
	if err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestSearch_QueryDimensionMismatch(t *testing.T) {
	s := NewStore()
	_ = s.Index(context.Background(), "T-1", []commonModels.Chunk{chunk("c1", 1, 0)})
	if _, err := s.Search(context.Background(), "T-1", []float32{1, 0, 0}, 1); err == nil {
		t.Error("expected error for query dimension mismatch")
	}
}

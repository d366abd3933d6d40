package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB/memoryVector"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string) ([][]float32, error)
	calls     [][]string
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return []float32{1, 0, 0}, nil
}

func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string) ([][]float32, error) {
	m.calls = append(m.calls, chunks)
	if m.batchFunc != nil {
		return m.batchFunc(ctx, chunks)
	}
	out := make([][]float32, len(chunks))
	for i := range chunks {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestLoadDirectory(t *testing.T) {
	embedder := &mockEmbedder{}
	loader := NewLoader(embedder, memoryVector.NewStore())

	catalog, err := loader.LoadDirectory(context.Background(), "testdata")
	if err != nil {
		t.Fatalf("LoadDirectory failed: %v", err)
	}
	if catalog.Len() != 2 {
		t.Fatalf("expected 2 threads, got %d", catalog.Len())
	}

	threads := catalog.Threads()
	if threads[0].ThreadId != "T-offsite" || threads[1].ThreadId != "T-storage" {
		t.Errorf("unexpected threads %+v", threads)
	}
	if threads[1].Subject != "Storage Upgrade & Budget" || threads[1].ChunkCount != 3 {
		t.Errorf("unexpected storage info %+v", threads[1])
	}

	idx, err := catalog.Get("T-storage")
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range idx.Chunks() {
		if len(c.Embedding) == 0 {
			t.Errorf("chunk %s was not backfilled", c.ChunkId)
		}
	}
	hits, err := idx.VectorSearch(context.Background(), []float32{1, 0, 0}, 5)
	if err != nil || len(hits) != 3 {
		t.Errorf("vector search after load: %v %v", hits, err)
	}

	// T-offsite already carries embeddings, so only the storage thread is embedded.
	if len(embedder.calls) != 1 || len(embedder.calls[0]) != 3 {
		t.Errorf("unexpected embedding calls %v", embedder.calls)
	}
}

func TestLoadDirectory_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	bad := `{"thread_id":"T-x","chunks":[{"chunk_id":"c1","thread_id":"T-y","message_id":"M-1","doc_type":"email","text":"hi"}]}`
	if err := os.WriteFile(filepath.Join(dir, "T-x.json"), []byte(bad), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(nil, nil).LoadDirectory(context.Background(), dir); err == nil {
		t.Error("expected error for chunk from another thread")
	}
}

func TestLoadDirectory_EmptyDir(t *testing.T) {
	catalog, err := NewLoader(nil, nil).LoadDirectory(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.Len() != 0 {
		t.Errorf("expected empty catalog")
	}
}

func TestBackfillEmbeddings_Batches(t *testing.T) {
	n := config.EmbeddingBatchSize*2 + 5
	chunks := make([]commonModels.Chunk, n)
	for i := range chunks {
		chunks[i] = commonModels.Chunk{ChunkId: "c", Text: "text"}
	}
	chunks[0].Embedding = []float32{9}

	embedder := &mockEmbedder{}
	out, err := BackfillEmbeddings(context.Background(), chunks, embedder, logger_i.NewLogger("test"))
	if err != nil {
		t.Fatalf("BackfillEmbeddings failed: %v", err)
	}

	sizes := make([]int, 0, len(embedder.calls))
	for _, c := range embedder.calls {
		sizes = append(sizes, len(c))
	}
	sort.Ints(sizes)
	want := []int{4, config.EmbeddingBatchSize, config.EmbeddingBatchSize}
	if len(sizes) != 3 || sizes[0] != want[0] || sizes[2] != want[2] {
		t.Errorf("batch sizes %v, want %v", sizes, want)
	}
	if out[0].Embedding[0] != 9 {
		t.Errorf("existing embedding overwritten")
	}
	if chunks[1].Embedding != nil {
		t.Errorf("input slice was modified")
	}
}

func TestBackfillEmbeddings_Error(t *testing.T) {
	embedder := &mockEmbedder{batchFunc: func(ctx context.Context, chunks []string) ([][]float32, error) {
		return nil, errors.New("quota")
	}}
	_, err := BackfillEmbeddings(context.Background(), []commonModels.Chunk{{ChunkId: "c", Text: "t"}}, embedder, logger_i.NewLogger("test"))
	if err == nil {
		t.Error("expected error")
	}
}

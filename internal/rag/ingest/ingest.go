package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/metrics"
	"github.com/akolanti/ThreadQA/internal/rag/embedding"
	"github.com/akolanti/ThreadQA/internal/rag/index"
	"github.com/akolanti/ThreadQA/internal/rag/vectorDB"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

const maxParallelThreads = 4

// ThreadFile is the on-disk shape written by the chunking pipeline: one file per thread, named <thread_id>.json.
type ThreadFile struct {
	ThreadId string               `json:"thread_id"`
	Subject  string               `json:"subject,omitempty"`
	Chunks   []commonModels.Chunk `json:"chunks"`
}

type Loader struct {
	embedder embedding.Embedder
	searcher vectorDB.ThreadSearcher
	logger   *logger_i.Logger
}

// NewLoader accepts a nil embedder; chunks without vectors then stay keyword-only.
func NewLoader(embedder embedding.Embedder, searcher vectorDB.ThreadSearcher) *Loader {
	return &Loader{
		embedder: embedder,
		searcher: searcher,
		logger:   logger_i.NewLogger("thread_loader"),
	}
}

func (l *Loader) LoadDirectory(ctx context.Context, dir string) (*index.Catalog, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("index_load", time.Since(start)) }()

	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var mu sync.Mutex
	entries := make([]index.Entry, 0, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelThreads)
	for _, path := range paths {
		g.Go(func() error {
			entry, err := l.loadFile(gctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			mu.Lock()
			entries = append(entries, entry)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	catalog, err := index.NewCatalog(entries...)
	if err != nil {
		return nil, err
	}
	l.logger.Info("thread catalog loaded", "dir", dir, "threads", catalog.Len(), "elapsed", time.Since(start))
	return catalog, nil
}

func (l *Loader) loadFile(ctx context.Context, path string) (index.Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return index.Entry{}, err
	}
	var tf ThreadFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return index.Entry{}, fmt.Errorf("decode: %w", err)
	}
	if tf.ThreadId == "" {
		tf.ThreadId = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return l.Load(ctx, tf)
}

// Load backfills missing embeddings, hands the vectors to the searcher and builds the thread's index.
func (l *Loader) Load(ctx context.Context, tf ThreadFile) (index.Entry, error) {
	log := l.logger.With("threadId", tf.ThreadId)

	for _, c := range tf.Chunks {
		if err := c.Validate(tf.ThreadId); err != nil {
			return index.Entry{}, err
		}
	}

	chunks := tf.Chunks
	if l.embedder != nil {
		var err error
		chunks, err = BackfillEmbeddings(ctx, chunks, l.embedder, log)
		if err != nil {
			return index.Entry{}, err
		}
	}

	if l.searcher != nil {
		if err := l.searcher.Index(ctx, tf.ThreadId, chunks); err != nil {
			return index.Entry{}, fmt.Errorf("vector index: %w", err)
		}
	}

	idx, err := index.Build(tf.ThreadId, chunks, l.searcher, l.embedder)
	if err != nil {
		return index.Entry{}, err
	}
	log.Debug("thread indexed", "chunks", len(chunks))
	return index.Entry{Index: idx, Subject: tf.Subject}, nil
}

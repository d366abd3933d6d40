package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/akolanti/ThreadQA/internal/config"
	"github.com/akolanti/ThreadQA/internal/domain/commonModels"
	"github.com/akolanti/ThreadQA/internal/rag/index"
	"github.com/akolanti/ThreadQA/pkg/logger_i"
)

type FusionConfig struct {
	BM25Weight   float64
	VectorWeight float64
	FetchK       int

	// MinVectorScore drops dense hits whose raw similarity is below it; 0 keeps every hit.
	MinVectorScore float64
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		BM25Weight:     config.FusionBM25Weight,
		VectorWeight:   config.FusionVectorWeight,
		FetchK:         config.FusionFetchK,
		MinVectorScore: config.FusionMinVectorScore,
	}
}

type Result struct {
	Ranked       commonModels.RankedResult
	KeywordCount int
	VectorCount  int
	Warnings     []string
}

type FusionRetriever struct {
	keyword Retriever
	vector  Retriever
	cfg     FusionConfig
	logger  *logger_i.Logger
}

func NewFusionRetriever(keyword, vector Retriever, cfg FusionConfig) *FusionRetriever {
	return &FusionRetriever{
		keyword: keyword,
		vector:  vector,
		cfg:     cfg,
		logger:  logger_i.NewLogger("fusion_retriever"),
	}
}

// ForIndex wires both signals to the same thread index.
func ForIndex(idx index.ThreadIndex, cfg FusionConfig) *FusionRetriever {
	return NewFusionRetriever(NewKeywordRetriever(idx), NewVectorRetriever(idx), cfg)
}

// Search fuses the two rankings. A signal whose weight is zero is not queried at all, so a zero-weight signal
// can never add chunks to the result. A failing vector signal degrades to keyword-only with a warning.
func (f *FusionRetriever) Search(ctx context.Context, query string, topK int) (Result, error) {
	if topK < 1 {
		return Result{}, fmt.Errorf("%w: %d", commonModels.ErrInvalidTopK, topK)
	}
	pool := topK
	if f.cfg.FetchK > pool {
		pool = f.cfg.FetchK
	}
	log := f.logger.FromContext(ctx)

	var result Result
	var keywordHits, vectorHits []commonModels.ScoredChunk

	if f.cfg.BM25Weight != 0 && f.keyword != nil {
		hits, err := f.keyword.Retrieve(ctx, query, pool)
		if err != nil {
			log.Warn("keyword retrieval failed", "error", err)
			result.Warnings = append(result.Warnings, "keyword retrieval failed: "+err.Error())
		}
		keywordHits = hits
	}
	if f.cfg.VectorWeight != 0 && f.vector != nil {
		hits, err := f.vector.Retrieve(ctx, query, pool)
		if err != nil {
			log.Warn("vector retrieval failed, using keyword ranking only", "error", err)
			result.Warnings = append(result.Warnings, "vector retrieval unavailable: "+err.Error())
		}
		vectorHits = aboveFloor(hits, f.cfg.MinVectorScore)
		if dropped := len(hits) - len(vectorHits); dropped > 0 {
			log.Debug("dense hits below similarity floor", "dropped", dropped, "floor", f.cfg.MinVectorScore)
		}
	}
	result.KeywordCount = len(keywordHits)
	result.VectorCount = len(vectorHits)

	result.Ranked = Fuse(keywordHits, vectorHits, f.cfg.BM25Weight, f.cfg.VectorWeight, topK)
	log.Debug("fusion complete", "keyword", result.KeywordCount, "vector", result.VectorCount, "returned", len(result.Ranked))
	return result, nil
}

// Fuse min-max normalizes each pool, combines them with the given weights and keeps the best topK.
// Ordering is by fused score descending, then chunk id ascending.
func Fuse(keywordHits, vectorHits []commonModels.ScoredChunk, keywordWeight, vectorWeight float64, topK int) commonModels.RankedResult {
	type fused struct {
		chunk commonModels.Chunk
		score float64
	}
	byId := make(map[string]*fused)

	add := func(hits []commonModels.ScoredChunk, weight float64) {
		norm := normalize(hits)
		for i, h := range hits {
			entry, ok := byId[h.Chunk.ChunkId]
			if !ok {
				entry = &fused{chunk: h.Chunk}
				byId[h.Chunk.ChunkId] = entry
			}
			entry.score += weight * norm[i]
		}
	}
	add(keywordHits, keywordWeight)
	add(vectorHits, vectorWeight)

	ranked := make(commonModels.RankedResult, 0, len(byId))
	for _, e := range byId {
		ranked = append(ranked, commonModels.RankedChunk{Chunk: e.chunk, Score: e.score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score == ranked[j].Score {
			return ranked[i].Chunk.ChunkId < ranked[j].Chunk.ChunkId
		}
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

func aboveFloor(hits []commonModels.ScoredChunk, floor float64) []commonModels.ScoredChunk {
	if floor <= 0 {
		return hits
	}
	out := make([]commonModels.ScoredChunk, 0, len(hits))
	for _, h := range hits {
		if h.Score >= floor {
			out = append(out, h)
		}
	}
	return out
}

// normalize maps scores onto [0,1]. A single candidate or a pool with no spread scores 1.0.
func normalize(hits []commonModels.ScoredChunk) []float64 {
	out := make([]float64, len(hits))
	if len(hits) == 0 {
		return out
	}
	lo, hi := hits[0].Score, hits[0].Score
	for _, h := range hits[1:] {
		if h.Score < lo {
			lo = h.Score
		}
		if h.Score > hi {
			hi = h.Score
		}
	}
	spread := hi - lo
	for i, h := range hits {
		if spread == 0 {
			out[i] = 1.0
			continue
		}
		out[i] = (h.Score - lo) / spread
	}
	return out
}

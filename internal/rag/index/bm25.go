package index

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Tokenize lowercases and splits on anything that is not a letter or digit.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

type bm25Index struct {
	k1        float64
	b         float64
	docLens   []int
	avgDocLen float64
	postings  map[string]map[int]int // term -> doc -> term frequency
	idf       map[string]float64
}

type bm25Hit struct {
	doc   int
	score float64
}

func newBM25(docs []string, k1, b float64) *bm25Index {
	idx := &bm25Index{
		k1:       k1,
		b:        b,
		docLens:  make([]int, len(docs)),
		postings: make(map[string]map[int]int),
		idf:      make(map[string]float64),
	}

	total := 0
	for i, doc := range docs {
		tokens := Tokenize(doc)
		idx.docLens[i] = len(tokens)
		total += len(tokens)
		for _, tok := range tokens {
			p, ok := idx.postings[tok]
			if !ok {
				p = make(map[int]int)
				idx.postings[tok] = p
			}
			p[i]++
		}
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(total) / float64(len(docs))
	}

	n := float64(len(docs))
	for term, p := range idx.postings {
		df := float64(len(p))
		idx.idf[term] = math.Log(1 + (n-df+0.5)/(df+0.5))
	}
	return idx
}

// search returns docs with a positive score, best first, ties by doc position.
func (idx *bm25Index) search(query string, k int) []bm25Hit {
	if k <= 0 || len(idx.docLens) == 0 {
		return nil
	}

	scores := make(map[int]float64)
	seen := make(map[string]bool)
	for _, term := range Tokenize(query) {
		if seen[term] {
			continue
		}
		seen[term] = true
		p, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := idx.idf[term]
		for doc, tf := range p {
			f := float64(tf)
			lenNorm := 1 - idx.b
			if idx.avgDocLen > 0 {
				lenNorm += idx.b * float64(idx.docLens[doc]) / idx.avgDocLen
			}
			scores[doc] += idf * f * (idx.k1 + 1) / (f + idx.k1*lenNorm)
		}
	}

	hits := make([]bm25Hit, 0, len(scores))
	for doc, s := range scores {
		if s > 0 {
			hits = append(hits, bm25Hit{doc: doc, score: s})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score == hits[j].score {
			return hits[i].doc < hits[j].doc
		}
		return hits[i].score > hits[j].score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

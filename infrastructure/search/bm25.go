package search

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/kodit-ai/kodit/domain/search"
)

// Okapi BM25 parameters.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

var _ search.KeywordIndex = (*BM25Index)(nil)

// BM25Index is an in-process Okapi BM25 keyword index, partitioned by
// repository. Rebuild constructs a staging index and swaps it in under the
// write lock, so readers observe either the old or the new corpus, never a
// mix.
type BM25Index struct {
	tokenizer Tokenizer
	mu        sync.RWMutex
	repos     map[int64]*repoIndex
}

type repoIndex struct {
	docs     []indexedDoc
	postings map[string][]posting
	totalLen int
}

type indexedDoc struct {
	snippetID int64
	length    int
}

type posting struct {
	doc int
	tf  int
}

// NewBM25Index creates an empty index.
func NewBM25Index() *BM25Index {
	return &BM25Index{
		tokenizer: NewTokenizer(),
		repos:     make(map[int64]*repoIndex),
	}
}

// Rebuild atomically replaces the repository's corpus.
func (b *BM25Index) Rebuild(ctx context.Context, repoID int64, docs []search.Document) error {
	staging := &repoIndex{postings: make(map[string][]posting)}

	for _, doc := range docs {
		terms := b.tokenizer.Tokenize(doc.Text())
		idx := len(staging.docs)
		staging.docs = append(staging.docs, indexedDoc{snippetID: doc.SnippetID(), length: len(terms)})
		staging.totalLen += len(terms)

		counts := make(map[string]int, len(terms))
		for _, term := range terms {
			counts[term]++
		}
		for term, tf := range counts {
			staging.postings[term] = append(staging.postings[term], posting{doc: idx, tf: tf})
		}
	}

	b.mu.Lock()
	b.repos[repoID] = staging
	b.mu.Unlock()
	return nil
}

// Search scores the repository's corpus against the query. Results are
// sorted by score descending with insertion order breaking ties, and scores
// are never negative.
func (b *BM25Index) Search(ctx context.Context, repoID int64, query string, topK int) ([]search.Result, error) {
	terms := b.tokenizer.Tokenize(query)
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	b.mu.RLock()
	idx := b.repos[repoID]
	b.mu.RUnlock()
	if idx == nil || len(idx.docs) == 0 {
		return nil, nil
	}

	n := float64(len(idx.docs))
	avgLen := float64(idx.totalLen) / n

	scores := make([]float64, len(idx.docs))
	for _, term := range terms {
		postings := idx.postings[term]
		if len(postings) == 0 {
			continue
		}
		df := float64(len(postings))
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		for _, p := range postings {
			tf := float64(p.tf)
			docLen := float64(idx.docs[p.doc].length)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
			scores[p.doc] += idf * norm
		}
	}

	type scored struct {
		doc   int
		score float64
	}
	var hits []scored
	for doc, score := range scores {
		if score > 0 {
			hits = append(hits, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].doc < hits[j].doc
	})

	if topK < len(hits) {
		hits = hits[:topK]
	}

	results := make([]search.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, search.NewResult(idx.docs[h.doc].snippetID, h.score))
	}
	return results, nil
}

// Drop discards the repository's corpus.
func (b *BM25Index) Drop(ctx context.Context, repoID int64) error {
	b.mu.Lock()
	delete(b.repos, repoID)
	b.mu.Unlock()
	return nil
}

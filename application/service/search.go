package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/kodit-ai/kodit/domain/repository"
	"github.com/kodit-ai/kodit/domain/search"
	"github.com/kodit-ai/kodit/domain/snippet"
	"github.com/kodit-ai/kodit/internal/config"
	"github.com/kodit-ai/kodit/internal/database"
)

// candidateFactor is how many candidates each method contributes per
// requested result before fusion.
const candidateFactor = 4

// Match is one retrieval hit: the snippet, its fused score and the
// method-native scores it earned.
type Match struct {
	snippet   snippet.Snippet
	score     float64
	originals map[search.Method]float64
}

// NewMatch creates a Match. Callers implementing a Searcher outside this
// package use it to hand back results.
func NewMatch(sn snippet.Snippet, score float64, originals map[search.Method]float64) Match {
	return Match{snippet: sn, score: score, originals: originals}
}

// Snippet returns the matched snippet.
func (m Match) Snippet() snippet.Snippet { return m.snippet }

// Score returns the fused score.
func (m Match) Score() float64 { return m.score }

// OriginalScore returns the method-native score and whether the snippet
// appeared in that method's candidate list.
func (m Match) OriginalScore(method search.Method) (float64, bool) {
	v, ok := m.originals[method]
	return v, ok
}

// SearchRequest scopes one retrieval query.
type SearchRequest struct {
	Query   string
	RepoURI string
	Limit   int
}

// Search runs hybrid retrieval: BM25, code-vector and text-vector candidate
// lists fused with reciprocal rank fusion. The embedder is optional; without
// it retrieval falls back to BM25 alone.
type Search struct {
	repos    repository.Store
	commits  repository.CommitStore
	snippets snippet.Store
	keyword  search.KeywordIndex
	vectors  search.VectorStore
	embedder search.Embedder
	fusion   search.Fusion
	limit    int
	logger   *slog.Logger
}

// NewSearch creates a Search service. embedder may be nil.
func NewSearch(
	repos repository.Store,
	commits repository.CommitStore,
	snippets snippet.Store,
	keyword search.KeywordIndex,
	vectors search.VectorStore,
	embedder search.Embedder,
	logger *slog.Logger,
) *Search {
	return &Search{
		repos:    repos,
		commits:  commits,
		snippets: snippets,
		keyword:  keyword,
		vectors:  vectors,
		embedder: embedder,
		fusion:   search.NewFusion(),
		limit:    config.DefaultSearchLimit,
		logger:   logger,
	}
}

// WithDefaultLimit sets the result count used when a request has none.
func (s *Search) WithDefaultLimit(n int) *Search {
	if n > 0 {
		s.limit = n
	}
	return s
}

// Query retrieves the best-matching snippets for the request.
func (s *Search) Query(ctx context.Context, req SearchRequest) ([]Match, error) {
	if req.Query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.limit
	}
	topN := limit * candidateFactor

	scope, err := s.resolveScope(ctx, req.RepoURI)
	if err != nil {
		return nil, err
	}

	bm25, err := s.keywordCandidates(ctx, scope, req.Query, topN)
	if err != nil {
		return nil, err
	}

	var codeVec, textVec []search.Result
	if s.embedder != nil {
		codeVec, textVec, err = s.vectorCandidates(ctx, scope, req.Query, topN)
		if err != nil {
			return nil, err
		}
	}

	fused := s.fusion.FuseTopK(limit, bm25, codeVec, textVec)
	return s.materialize(ctx, fused)
}

// scope restricts retrieval to one repository; nil means global.
type scope struct {
	repoIDs []int64
}

func (s *Search) resolveScope(ctx context.Context, repoURI string) (scope, error) {
	if repoURI == "" {
		repos, err := s.repos.Find(ctx)
		if err != nil {
			return scope{}, err
		}
		ids := make([]int64, len(repos))
		for i, r := range repos {
			ids[i] = r.ID()
		}
		return scope{repoIDs: ids}, nil
	}

	sanitized := repository.SanitizeRemoteURI(repoURI)
	repo, err := s.repos.GetBySanitizedURI(ctx, sanitized)
	if err != nil {
		return scope{}, err
	}
	return scope{repoIDs: []int64{repo.ID()}}, nil
}

// keywordCandidates merges per-repository BM25 lists into one ranked list.
func (s *Search) keywordCandidates(ctx context.Context, sc scope, query string, topN int) ([]search.Result, error) {
	var merged []search.Result
	for _, repoID := range sc.repoIDs {
		results, err := s.keyword.Search(ctx, repoID, query, topN)
		if err != nil {
			return nil, err
		}
		merged = append(merged, results...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score() > merged[j].Score()
	})
	if topN < len(merged) {
		merged = merged[:topN]
	}
	return merged, nil
}

// vectorCandidates embeds the query once and ranks both embedding spaces.
func (s *Search) vectorCandidates(ctx context.Context, sc scope, query string, topN int) (codeVec, textVec []search.Result, err error) {
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, nil, nil
	}
	qvec := vectors[0]

	restrict, bySHA, err := s.scopeSnippets(ctx, sc)
	if err != nil {
		return nil, nil, err
	}
	if len(restrict) == 0 {
		return nil, nil, nil
	}

	codeVec, err = s.rankKind(ctx, search.KindCode, qvec, topN, restrict, bySHA)
	if err != nil {
		return nil, nil, err
	}
	textVec, err = s.rankKind(ctx, search.KindText, qvec, topN, restrict, bySHA)
	if err != nil {
		return nil, nil, err
	}
	return codeVec, textVec, nil
}

func (s *Search) rankKind(ctx context.Context, kind search.Kind, qvec []float64, topN int, restrict []string, bySHA map[string]int64) ([]search.Result, error) {
	hits, err := s.vectors.TopK(ctx, kind, qvec, topN, restrict)
	if err != nil {
		return nil, err
	}
	results := make([]search.Result, 0, len(hits))
	for _, hit := range hits {
		id, ok := bySHA[hit.SHA()]
		if !ok {
			continue
		}
		results = append(results, search.NewResult(id, hit.Similarity()))
	}
	return results, nil
}

// scopeSnippets returns the content-addresses inside the scope and a mapping
// from content-address to one representative snippet row (the newest).
func (s *Search) scopeSnippets(ctx context.Context, sc scope) ([]string, map[string]int64, error) {
	if len(sc.repoIDs) == 0 {
		return nil, nil, nil
	}
	commits, err := s.commits.Find(ctx, database.WhereIn("repo_id", sc.repoIDs))
	if err != nil {
		return nil, nil, err
	}
	if len(commits) == 0 {
		return nil, nil, nil
	}
	commitIDs := make([]int64, len(commits))
	for i, c := range commits {
		commitIDs[i] = c.ID()
	}

	scoped, err := s.snippets.Find(ctx, database.WhereIn("commit_id", commitIDs))
	if err != nil {
		return nil, nil, err
	}

	bySHA := make(map[string]int64, len(scoped))
	shas := make([]string, 0, len(scoped))
	for _, sn := range scoped {
		if existing, ok := bySHA[sn.SHA()]; !ok {
			bySHA[sn.SHA()] = sn.ID()
			shas = append(shas, sn.SHA())
		} else if sn.ID() > existing {
			bySHA[sn.SHA()] = sn.ID()
		}
	}
	return shas, bySHA, nil
}

func (s *Search) materialize(ctx context.Context, fused []search.Fused) ([]Match, error) {
	if len(fused) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(fused))
	for i, f := range fused {
		ids[i] = f.SnippetID()
	}
	loaded, err := s.snippets.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]snippet.Snippet, len(loaded))
	for _, sn := range loaded {
		byID[sn.ID()] = sn
	}

	matches := make([]Match, 0, len(fused))
	for _, f := range fused {
		sn, ok := byID[f.SnippetID()]
		if !ok {
			continue
		}
		matches = append(matches, Match{
			snippet:   sn,
			score:     f.Score(),
			originals: f.OriginalScores(),
		})
	}
	return matches, nil
}

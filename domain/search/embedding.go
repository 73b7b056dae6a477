package search

import "context"

// Kind distinguishes the two embedding spaces.
type Kind string

// Embedding kinds. Code embeddings index snippet source text, text
// embeddings index enrichment summaries.
const (
	KindCode Kind = "code"
	KindText Kind = "text"
)

// Embedding is a dense vector for one snippet content-address and kind.
// Keying by content SHA shares vectors between identical snippets across
// commits.
type Embedding struct {
	id     int64
	sha    string
	kind   Kind
	vector []float64
}

// NewEmbedding creates an Embedding.
func NewEmbedding(sha string, kind Kind, vector []float64) Embedding {
	v := make([]float64, len(vector))
	copy(v, vector)
	return Embedding{sha: sha, kind: kind, vector: v}
}

// ReconstructEmbedding rebuilds an Embedding from persistence.
func ReconstructEmbedding(id int64, sha string, kind Kind, vector []float64) Embedding {
	e := NewEmbedding(sha, kind, vector)
	e.id = id
	return e
}

// ID returns the row id.
func (e Embedding) ID() int64 { return e.id }

// SHA returns the snippet content-address.
func (e Embedding) SHA() string { return e.sha }

// Kind returns the embedding space.
func (e Embedding) Kind() Kind { return e.kind }

// Vector returns a copy of the dense vector.
func (e Embedding) Vector() []float64 {
	v := make([]float64, len(e.vector))
	copy(v, e.vector)
	return v
}

// Embedder turns batches of texts into vectors. Order is preserved:
// vectors[i] corresponds to texts[i]. Implementations skip empty texts by
// returning nil vectors for them.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// SemanticResult is one k-NN hit: a content-address and its cosine
// similarity to the query.
type SemanticResult struct {
	sha        string
	similarity float64
}

// NewSemanticResult creates a SemanticResult.
func NewSemanticResult(sha string, similarity float64) SemanticResult {
	return SemanticResult{sha: sha, similarity: similarity}
}

// SHA returns the content-address.
func (r SemanticResult) SHA() string { return r.sha }

// Similarity returns the cosine similarity, higher is closer.
func (r SemanticResult) Similarity() float64 { return r.similarity }

// VectorStore persists embeddings and answers k-NN queries.
type VectorStore interface {
	Put(ctx context.Context, embeddings []Embedding) error
	// ExistingSHAs filters shas down to those already embedded for kind.
	ExistingSHAs(ctx context.Context, kind Kind, shas []string) (map[string]bool, error)
	// TopK returns the most similar stored vectors, optionally restricted
	// to the given content-addresses (nil means unrestricted).
	TopK(ctx context.Context, kind Kind, query []float64, k int, restrict []string) ([]SemanticResult, error)
	DeleteBySHAs(ctx context.Context, shas []string) error
}

// KeywordIndex is the BM25 side of the dual index.
type KeywordIndex interface {
	// Rebuild atomically replaces the repository's keyword index with the
	// given corpus.
	Rebuild(ctx context.Context, repoID int64, docs []Document) error
	Search(ctx context.Context, repoID int64, query string, topK int) ([]Result, error)
	Drop(ctx context.Context, repoID int64) error
}

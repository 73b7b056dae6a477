// Package search holds the retrieval domain types: ranked results, fusion,
// documents and embedding contracts.
package search

// Method names one of the ranked lists feeding fusion.
type Method string

// Retrieval methods.
const (
	MethodBM25       Method = "bm25"
	MethodCodeVector Method = "code_vector"
	MethodTextVector Method = "text_vector"
)

// Result is one entry of a ranked list: a snippet and its method-native
// score (BM25 score or cosine similarity).
type Result struct {
	snippetID int64
	score     float64
}

// NewResult creates a Result.
func NewResult(snippetID int64, score float64) Result {
	return Result{snippetID: snippetID, score: score}
}

// SnippetID returns the snippet row id.
func (r Result) SnippetID() int64 { return r.snippetID }

// Score returns the method-native score.
func (r Result) Score() float64 { return r.score }

// Document is a unit of text to index, addressed by snippet.
type Document struct {
	snippetID int64
	sha       string
	text      string
}

// NewDocument creates a Document.
func NewDocument(snippetID int64, sha, text string) Document {
	return Document{snippetID: snippetID, sha: sha, text: text}
}

// SnippetID returns the snippet row id.
func (d Document) SnippetID() int64 { return d.snippetID }

// SHA returns the snippet content-address.
func (d Document) SHA() string { return d.sha }

// Text returns the text to index.
func (d Document) Text() string { return d.text }

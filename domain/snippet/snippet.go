// Package snippet holds the extracted code unit domain types.
package snippet

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Snippet is a self-contained code region extracted from one file of one
// commit. It is content-addressed: the identity hash covers the text, the
// originating path and the language, so identical extractions collide and
// share embeddings across commits.
type Snippet struct {
	id         int64
	contentSHA string
	commitID   int64
	filePath   string
	language   Language
	content    string
	enrichment string
	createdAt  time.Time
}

// ComputeSHA returns the hex SHA-256 identity of a snippet.
func ComputeSHA(content, filePath string, language Language) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", content, filePath, language)
	return hex.EncodeToString(h.Sum(nil))
}

// New creates a Snippet extracted from a commit's file.
func New(commitID int64, filePath string, language Language, content string) Snippet {
	return Snippet{
		contentSHA: ComputeSHA(content, filePath, language),
		commitID:   commitID,
		filePath:   filePath,
		language:   language,
		content:    content,
		createdAt:  time.Now().UTC(),
	}
}

// Reconstruct rebuilds a Snippet from persistence.
func Reconstruct(
	id int64,
	contentSHA string,
	commitID int64,
	filePath string,
	language Language,
	content string,
	enrichment string,
	createdAt time.Time,
) Snippet {
	return Snippet{
		id:         id,
		contentSHA: contentSHA,
		commitID:   commitID,
		filePath:   filePath,
		language:   language,
		content:    content,
		enrichment: enrichment,
		createdAt:  createdAt,
	}
}

// ID returns the row id.
func (s Snippet) ID() int64 { return s.id }

// SHA returns the content-address of the snippet.
func (s Snippet) SHA() string { return s.contentSHA }

// CommitID returns the owning commit id.
func (s Snippet) CommitID() int64 { return s.commitID }

// FilePath returns the originating file path within the commit.
func (s Snippet) FilePath() string { return s.filePath }

// Language returns the snippet language.
func (s Snippet) Language() Language { return s.language }

// Content returns the snippet source text.
func (s Snippet) Content() string { return s.content }

// Enrichment returns the LLM summary, empty when not enriched.
func (s Snippet) Enrichment() string { return s.enrichment }

// HasEnrichment reports whether a summary exists.
func (s Snippet) HasEnrichment() bool { return s.enrichment != "" }

// CreatedAt returns when the snippet was extracted.
func (s Snippet) CreatedAt() time.Time { return s.createdAt }

// WithID returns a copy with the row id set.
func (s Snippet) WithID(id int64) Snippet {
	s.id = id
	return s
}

// WithEnrichment returns a copy carrying the summary text.
func (s Snippet) WithEnrichment(text string) Snippet {
	s.enrichment = text
	return s
}

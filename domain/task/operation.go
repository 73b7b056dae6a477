package task

// Operation identifies a task type. The set is closed: the dispatcher drops
// tasks carrying any other value as fatal.
type Operation string

// Queue operations.
const (
	OperationRepositoryIndex Operation = "repository.index"
	OperationCommitExtract   Operation = "commit.extract"
	OperationSnippetEmbed    Operation = "snippet.embed"
	OperationSnippetEnrich   Operation = "snippet.enrich"
)

// Operations returns every known operation, in pipeline order.
func Operations() []Operation {
	return []Operation{
		OperationRepositoryIndex,
		OperationCommitExtract,
		OperationSnippetEmbed,
		OperationSnippetEnrich,
	}
}

// String returns the operation name.
func (o Operation) String() string { return string(o) }

// IsValid reports whether o belongs to the closed operation set.
func (o Operation) IsValid() bool {
	switch o {
	case OperationRepositoryIndex, OperationCommitExtract,
		OperationSnippetEmbed, OperationSnippetEnrich:
		return true
	}
	return false
}

// MaxRetries returns the retry budget for the operation. Acquisition retries
// harder than provider-backed work.
func (o Operation) MaxRetries() int {
	switch o {
	case OperationRepositoryIndex:
		return 8
	case OperationCommitExtract:
		return 3
	case OperationSnippetEmbed, OperationSnippetEnrich:
		return 5
	default:
		return 0
	}
}

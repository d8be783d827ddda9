// Package embedding wraps the external AI providers that turn text into
// vectors. Provider failures are transport errors and treated as
// retryable by the command layer.
package embedding

import "context"

// Task types passed through to providers that rank documents and
// queries differently.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

// Provider generates embeddings. GenerateEmbeddings returns one vector
// per input text, in input order.
type Provider interface {
	GenerateEmbedding(ctx context.Context, text string, taskType string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

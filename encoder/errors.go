package encoder

import "errors"

var (
	// ErrEmbedderRequired is returned when New is called without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrVectorCount is returned when the embedder returns a different number
	// of vectors than texts it was given.
	ErrVectorCount = errors.New("embedder returned wrong number of vectors")

	// ErrEmptyVector is returned when the embedder returns a zero-length vector.
	ErrEmptyVector = errors.New("embedder returned empty vector")

	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)

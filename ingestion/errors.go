package ingestion

import "errors"

var (
	// ErrEncoderRequired is returned when an encoder is not provided.
	ErrEncoderRequired = errors.New("encoder required")

	// ErrStoreRequired is returned when an artifact store is not provided.
	ErrStoreRequired = errors.New("artifact store required")

	// ErrPipelineReleased is returned when a released pipeline is used.
	ErrPipelineReleased = errors.New("pipeline has been released")
)

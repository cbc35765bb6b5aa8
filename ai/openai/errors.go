package openai

import "errors"

var (
	// ErrEmptyResponse is returned when the model returns no choices or vectors.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrNoJSON is returned when a generation response contains no JSON object.
	ErrNoJSON = errors.New("model response contains no JSON object")

	// ErrVectorCountMismatch is returned when an embedding batch returns a
	// different number of vectors than texts sent.
	ErrVectorCountMismatch = errors.New("embedding count does not match input count")
)

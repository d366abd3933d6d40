package commonModels

import "errors"

var (
	ErrUnknownThread     = errors.New("unknown thread")
	ErrUnknownSession    = errors.New("unknown session")
	ErrGenerationService = errors.New("generation service error")
	ErrEmptyQuestion     = errors.New("question must not be empty")
	ErrInvalidTopK       = errors.New("top_k out of range")
)

package birdmatch

import "github.com/kailas-cloud/birdmatch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation             = domain.ErrValidation
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrSpeciesNotFound        = domain.ErrSpeciesNotFound
	ErrCorruptRecord          = domain.ErrCorruptRecord
)

// ValidationError carries the offending field. Use errors.As() to extract it.
type ValidationError = domain.ValidationError

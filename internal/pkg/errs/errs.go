// Package errs holds the sentinel errors shared by the storage and identity
// adapters. Callers discriminate with errors.Is; stores wrap backend errors
// with %w so the underlying cause stays inspectable.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection signals an unreachable backend or an exhausted pool.
	// Retryable by the caller, never retried internally.
	ErrConnection = errors.New("backend connection failed")
	// ErrNotFound signals a well-formed id with no matching entity.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey signals an id collision on create.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrAlreadyReviewed signals a second review for the same (protocol, user) pair.
	ErrAlreadyReviewed = errors.New("protocol already reviewed by user")
	// ErrProtocolNotFound signals a review or bookmark write against an
	// absent protocol. It wraps ErrNotFound so generic handling still applies.
	ErrProtocolNotFound = fmt.Errorf("protocol %w", ErrNotFound)
	// ErrUnauthorized signals a missing or unverifiable credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals a verified identity lacking a required role.
	ErrForbidden = errors.New("forbidden")
	// ErrUnknownAdapterType signals an unrecognized adapter tag at start-up.
	ErrUnknownAdapterType = errors.New("unknown adapter type")
	// ErrAggregationInconsistency signals a failed aggregate recomputation
	// after one retry.
	ErrAggregationInconsistency = errors.New("rating aggregation inconsistency")
)

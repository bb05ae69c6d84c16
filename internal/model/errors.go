package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the provider answered but had no candidate for the title.
	ErrNotFound = errors.New("no provider match")
	// ErrConfig means a provider credential is missing.
	ErrConfig = errors.New("provider credentials missing")
	// ErrCancelled is reported for items observed after a batch was cancelled.
	ErrCancelled = errors.New("cancelled")
)

// ProviderError wraps an HTTP, auth or network failure of a provider call.
type ProviderError struct {
	Provider string
	Op       string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failed cache write.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

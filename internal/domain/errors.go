package domain

import (
	"errors"
	"fmt"
)

// FetchError reports a failed proposal-list fetch (transport, HTTP status or
// GraphQL-level errors). No partial data accompanies it.
type FetchError struct {
	Reason string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch proposals: %s: %v", e.Reason, e.Err)
	}
	return "fetch proposals: " + e.Reason
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// SummaryError reports a failed summarization of a single body.
type SummaryError struct {
	Reason string
	Err    error
}

func (e *SummaryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("summarize: %s: %v", e.Reason, e.Err)
	}
	return "summarize: " + e.Reason
}

func (e *SummaryError) Unwrap() error {
	return e.Err
}

// CacheError reports a durable store failure. Callers treat it as a miss.
type CacheError struct {
	Op  string
	Key string
	Err error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err wraps a FetchError.
func IsFetchError(err error) bool {
	var target *FetchError
	return errors.As(err, &target)
}

// IsSummaryError reports whether err wraps a SummaryError.
func IsSummaryError(err error) bool {
	var target *SummaryError
	return errors.As(err, &target)
}

// IsCacheError reports whether err wraps a CacheError.
func IsCacheError(err error) bool {
	var target *CacheError
	return errors.As(err, &target)
}

package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidParameter signals a malformed or missing request parameter.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrMissingAssetSelection signals that neither assets nor expression was given.
	ErrMissingAssetSelection = fmt.Errorf("%w: either assets or expression is required", ErrInvalidParameter)
	// ErrSearch signals a catalog search failure (transport, auth, 4xx/5xx).
	ErrSearch = errors.New("search failed")
	// ErrItemNotFound signals a missing item on direct lookup.
	ErrItemNotFound = errors.New("item not found")
	// ErrCollectionNotFound signals a missing collection.
	ErrCollectionNotFound = errors.New("collection not found")
	// ErrNoMatchingItems signals that the search matched nothing.
	ErrNoMatchingItems = errors.New("no items matched the query")
	// ErrEmptyMosaic signals that every matched item failed to contribute.
	ErrEmptyMosaic = errors.New("empty mosaic: no asset found")
)

// SearchError wraps ErrSearch with the failing request details.
type SearchError struct {
	StatusCode int
	URL        string
	Detail     string
}

func (e *SearchError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s returned %d: %s", ErrSearch.Error(), e.URL, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s returned %d", ErrSearch.Error(), e.URL, e.StatusCode)
}

func (e *SearchError) Unwrap() error { return ErrSearch }

// ItemError records a per-item read failure. Item failures never abort
// a mosaic request; they are collected and reported in the envelope.
type ItemError struct {
	ItemID     string
	Collection string
	Err        error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %s/%s: %v", e.Collection, e.ItemID, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// EmptyMosaicError wraps ErrEmptyMosaic with one entry per attempted item.
type EmptyMosaicError struct {
	Errors []ItemError
}

func (e *EmptyMosaicError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, ie := range e.Errors {
		parts[i] = ie.Error()
	}
	return fmt.Sprintf(
		"%s (%d items attempted): %s",
		ErrEmptyMosaic.Error(), len(e.Errors), strings.Join(parts, "; "),
	)
}

func (e *EmptyMosaicError) Unwrap() error { return ErrEmptyMosaic }

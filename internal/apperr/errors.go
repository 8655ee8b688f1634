// Package apperr defines sentinel errors shared across the engine.
package apperr

import "errors"

var (
	// ErrNotFound means a note could not be located in the vault.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous means a note name matched more than one vault file.
	ErrAmbiguous = errors.New("ambiguous note name")
	// ErrSkipped means a note was intentionally left unprocessed
	// (excluded folder, empty or too-short content).
	ErrSkipped = errors.New("skipped")
	// ErrDisabled means the daily-notes feature is turned off in config.
	ErrDisabled = errors.New("daily notes disabled")
	// ErrProcessingFailed is the terminal outcome for one note after LLM
	// retries are exhausted or its result could not be written back.
	ErrProcessingFailed = errors.New("processing failed")
)

package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrNotFound indicates a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedRecord indicates a document record could not be parsed
	ErrMalformedRecord = errors.New("malformed document record")

	// ErrEmptyIndex indicates a similarity search was attempted against an
	// index with no fragments. This is a setup defect, not a runtime
	// condition, and is deliberately surfaced to the caller.
	ErrEmptyIndex = errors.New("vector index is empty")

	// ErrIndexOperation indicates a vector index operation failed
	ErrIndexOperation = errors.New("index operation failed")

	// ErrLLMCommunication indicates LLM communication failed
	ErrLLMCommunication = errors.New("llm communication failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformedRecord checks if error is a malformed record error
func IsMalformedRecord(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsEmptyIndex checks if error is an empty index error
func IsEmptyIndex(err error) bool {
	return errors.Is(err, ErrEmptyIndex)
}

// IsLLMCommunication checks if error is an LLM communication error
func IsLLMCommunication(err error) bool {
	return errors.Is(err, ErrLLMCommunication)
}

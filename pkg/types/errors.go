package types

import (
	"errors"
	"fmt"
)

// Chunking error kinds. Every failure returned by the chunker wraps exactly
// one of these and can be matched with errors.Is.
var (
	ErrSourceOpen           = errors.New("source cannot be opened")
	ErrSourceRead           = errors.New("source read failed")
	ErrChunkCreate          = errors.New("chunk file cannot be created")
	ErrChunkWrite           = errors.New("chunk write failed")
	ErrLineDecode           = errors.New("line is not valid UTF-8")
	ErrInvalidConfiguration = errors.New("invalid chunking configuration")
	ErrTokenTooLarge        = errors.New("token exceeds max_bytes")

	// Descriptor access errors
	ErrChunkNotFound   = errors.New("chunk file not found")
	ErrChunkUnreadable = errors.New("chunk file is not readable")
)

// ChunkError reports a failed chunking operation together with the path it
// touched. Kind is one of the sentinel errors above; Err is the underlying
// cause (may be nil).
type ChunkError struct {
	Op   string
	Path string
	Kind error
	Err  error
}

// Error implements the error interface
func (e *ChunkError) Error() string {
	msg := e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *ChunkError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// InvalidConfigf returns an ErrInvalidConfiguration error with a formatted reason
func InvalidConfigf(format string, args ...any) error {
	return &ChunkError{Op: "configure", Kind: ErrInvalidConfiguration, Err: fmt.Errorf(format, args...)}
}

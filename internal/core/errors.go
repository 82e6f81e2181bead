package core

import (
	"fmt"
)

// UnsupportedTypeError is returned when an upload declares a file type no
// extractor handles. It fails the upload before any pipeline stage runs.
type UnsupportedTypeError struct {
	FileType string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("unsupported file type: %q", e.FileType)
}

// IngestionError is returned when the ingestion pipeline produces no result
// for an upload.
type IngestionError struct {
	FileName string
	Reason   string
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion of %q failed: %s", e.FileName, e.Reason)
}

// StorageError wraps adapter-level failures, such as a chunk arriving at the
// store without an embedding of the expected dimensionality.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// CompletionError reports a failed call to the completion server. StatusCode
// is zero for transport-level failures. Elapsed carries the wall time spent
// on the attempt so callers can surface it on the rendered turn.
type CompletionError struct {
	StatusCode int
	Body       string
	Elapsed    float64 // seconds
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion server returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("communicating with completion server: %v", e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

package core

import "context"

// DocumentExtractor converts uploaded bytes into raw text, dispatched by the
// declared file type. An unrecognized type fails with *UnsupportedTypeError
// before any conversion is attempted.
type DocumentExtractor interface {
	// Supports reports whether the extractor can handle the declared type.
	Supports(fileType string) bool

	// Extract converts content to text. fileType is an extension ("txt",
	// "pdf", "md") or a MIME type ("text/plain", "application/pdf").
	Extract(ctx context.Context, content []byte, fileType string) (string, error)
}
